// Package mapper converts storefront entities into GA4-style analytics items.
package mapper

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/models"
)

// CheckoutLineItemToItem maps a checkout line item at position index.
// coupon joins the discount titles in allocation order and discount sums their amounts.
func CheckoutLineItemToItem(item models.CheckoutLineItem, index int) models.Item {
	out := models.Item{"index": index}
	models.SetOptional(out, "item_id", item.ID)
	models.SetOptional(out, "item_name", item.Title)
	models.SetOptional(out, "quantity", item.Quantity)
	out["price"] = item.Variant.Price.Float()
	models.SetOptional(out, "item_variant", item.Variant.Title)
	models.SetOptional(out, "item_brand", item.Variant.Product.Vendor)

	titles := make([]string, 0, len(item.DiscountAllocations))
	total := decimal.Zero
	for _, a := range item.DiscountAllocations {
		titles = append(titles, a.DiscountApplication.Title)
		total = total.Add(a.Amount.Amount)
	}
	out["coupon"] = strings.Join(titles, ",")
	out["discount"] = total.InexactFloat64()

	return out
}

// ProductVariantToItem maps a variant using its parent product for id, name and brand.
func ProductVariantToItem(variant models.ProductVariant) models.Item {
	out := models.Item{}
	models.SetOptional(out, "item_id", variant.Product.ID)
	models.SetOptional(out, "item_name", variant.Product.Title)
	models.SetOptional(out, "item_brand", variant.Product.Vendor)
	models.SetOptional(out, "item_variant", variant.Title)
	out["price"] = variant.Price.Float()
	return out
}

// CollectionToItems maps every variant of the collection and tags each item with the list it came from.
func CollectionToItems(collection models.Collection) []models.Item {
	items := make([]models.Item, 0, len(collection.ProductVariants))
	for _, v := range collection.ProductVariants {
		item := ProductVariantToItem(v)
		models.SetOptional(item, "item_list_id", collection.ID)
		models.SetOptional(item, "item_list_name", collection.Title)
		items = append(items, item)
	}
	return items
}

// CartLineToItem maps a cart line; price is the line's total cost, not the unit price.
func CartLineToItem(line models.CartLine) models.Item {
	out := models.Item{}
	models.SetOptional(out, "item_id", line.Merchandise.Product.ID)
	models.SetOptional(out, "item_name", line.Merchandise.Product.Title)
	models.SetOptional(out, "item_brand", line.Merchandise.Product.Vendor)
	models.SetOptional(out, "item_variant", line.Merchandise.Title)
	out["price"] = line.Cost.TotalAmount.Float()
	models.SetOptional(out, "quantity", line.Quantity)
	return out
}

// CommaSeparatedDiscountTitles joins the titles of all applied discounts.
func CommaSeparatedDiscountTitles(applications []models.DiscountApplication) string {
	titles := make([]string, len(applications))
	for i, a := range applications {
		titles[i] = a.Title
	}
	return strings.Join(titles, ",")
}
