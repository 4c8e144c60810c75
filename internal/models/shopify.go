package models

import "github.com/shopspring/decimal"

// The types below mirror the storefront web-pixel payload schema.
// Pointer leaves are optional: when absent they are left out of the output record.
// Plain string leaves fall back to "". Fields tagged required abort the event at decode time.

type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

// Float returns the amount as a JSON-friendly number.
func (m Money) Float() float64 {
	return m.Amount.InexactFloat64()
}

type Product struct {
	ID     *string `json:"id"`
	Title  *string `json:"title"`
	Vendor *string `json:"vendor"`
}

type ProductVariant struct {
	ID      *string  `json:"id"`
	Title   *string  `json:"title"`
	SKU     *string  `json:"sku"`
	Price   *Money   `json:"price" validate:"required"`
	Product *Product `json:"product" validate:"required"`
}

type DiscountApplication struct {
	Title string `json:"title"`
}

type DiscountAllocation struct {
	Amount              Money               `json:"amount"`
	DiscountApplication DiscountApplication `json:"discountApplication"`
}

type CheckoutLineItem struct {
	ID                  *string              `json:"id"`
	Title               *string              `json:"title"`
	Quantity            *int                 `json:"quantity"`
	Variant             *ProductVariant      `json:"variant" validate:"required"`
	DiscountAllocations []DiscountAllocation `json:"discountAllocations"`
}

type MailingAddress struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	Country      string `json:"country"`
	CountryCode  string `json:"countryCode"`
	Province     string `json:"province"`
	ProvinceCode string `json:"provinceCode"`
	Zip          string `json:"zip"`
}

type Order struct {
	ID string `json:"id"`
}

type ShippingLine struct {
	Price *Money `json:"price" validate:"required"`
}

type Checkout struct {
	Token                string                `json:"token"`
	Email                string                `json:"email"`
	Phone                string                `json:"phone"`
	CurrencyCode         string                `json:"currencyCode"`
	ShippingAddress      MailingAddress        `json:"shippingAddress"`
	Order                Order                 `json:"order"`
	LineItems            []CheckoutLineItem    `json:"lineItems" validate:"dive"`
	DiscountApplications []DiscountApplication `json:"discountApplications"`
	SubtotalPrice        *Money                `json:"subtotalPrice" validate:"required"`
	ShippingLine         *ShippingLine         `json:"shippingLine" validate:"required"`
	TotalTax             *Money                `json:"totalTax" validate:"required"`
	TotalPrice           *Money                `json:"totalPrice" validate:"required"`
}

type CartCost struct {
	TotalAmount *Money `json:"totalAmount" validate:"required"`
}

type CartLine struct {
	Quantity    *int            `json:"quantity"`
	Cost        CartCost        `json:"cost"`
	Merchandise *ProductVariant `json:"merchandise" validate:"required"`
}

type Cart struct {
	ID            *string    `json:"id"`
	TotalQuantity *int       `json:"totalQuantity"`
	Cost          CartCost   `json:"cost"`
	Lines         []CartLine `json:"lines" validate:"dive"`
}

type Collection struct {
	ID              *string          `json:"id"`
	Title           *string          `json:"title"`
	ProductVariants []ProductVariant `json:"productVariants" validate:"dive"`
}

type SearchResult struct {
	Query *string `json:"query"`
}
