package pixel

import (
	"context"
	"fmt"
	"strings"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/mapper"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/models"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/sink"
)

// Handler builds the record for one decoded event.
type Handler func(env models.Envelope, p models.Payload) (models.Record, error)

// handle adapts a typed record builder to Handler.
func handle[T models.Payload](build func(env models.Envelope, data T) models.Record) Handler {
	return func(env models.Envelope, p models.Payload) (models.Record, error) {
		data, ok := p.(T)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot use %T", models.ErrInvalidPayload, env.Name, p)
		}
		return build(env, data), nil
	}
}

// Handlers returns the built-in handler for every supported event name.
func Handlers() map[string]Handler {
	checkout := handle(checkoutRecord)
	return map[string]Handler{
		models.EventCheckoutStarted:               checkout,
		models.EventCheckoutContactInfoSubmitted:  checkout,
		models.EventCheckoutAddressInfoSubmitted:  checkout,
		models.EventCheckoutShippingInfoSubmitted: checkout,
		models.EventPaymentInfoSubmitted:          checkout,
		models.EventCheckoutCompleted:             handle(checkoutCompletedRecord),
		models.EventProductAddedToCart:            handle(productAddedToCartRecord),
		models.EventCartViewed:                    handle(cartViewedRecord),
		models.EventPageViewed:                    handle(pageViewedRecord),
		models.EventProductViewed:                 handle(productViewedRecord),
		models.EventSearchSubmitted:               handle(searchSubmittedRecord),
		models.EventCollectionViewed:              handle(collectionViewedRecord),
	}
}

// Register subscribes every built-in handler on bus, emitting records to s.
func Register(bus *Bus, s sink.Sink) {
	for name, h := range Handlers() {
		bus.Subscribe(name, subscription(h, s))
	}
}

func subscription(h Handler, s sink.Sink) Callback {
	return func(ctx context.Context, env models.Envelope) error {
		p, err := models.DecodePayload(env)
		if err != nil {
			return err
		}
		rec, err := h(env, p)
		if err != nil {
			return err
		}
		if err := s.Emit(ctx, rec); err != nil {
			return fmt.Errorf("%w: %w", ErrEmit, err)
		}
		return nil
	}
}

// Map decodes env and builds its record without emitting it.
func Map(env models.Envelope) (models.Record, error) {
	h, ok := Handlers()[env.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownEvent, env.Name)
	}
	p, err := models.DecodePayload(env)
	if err != nil {
		return nil, err
	}
	return h(env, p)
}

// common holds the fields every record carries, copied from the envelope as-is.
// An absent timestamp is left out rather than written as null.
func common(env models.Envelope) models.Record {
	r := models.Record{
		"event":         env.Name,
		"event_id":      env.ID,
		"page_location": env.Context.Window.Location.Href,
		"page_title":    env.Context.Document.Title,
		"client_id":     env.ClientID,
	}
	if ts := env.Timestamp; len(ts) > 0 && string(ts) != "null" {
		r["timestamp"] = ts
	}
	return r
}

func checkoutRecord(env models.Envelope, data models.CheckoutData) models.Record {
	c := data.Checkout
	addr := c.ShippingAddress

	r := common(env)
	r["token"] = c.Token
	r["email"] = c.Email
	r["phone"] = c.Phone
	r["first_name"] = addr.FirstName
	r["last_name"] = addr.LastName
	r["address1"] = addr.Address1
	r["address2"] = addr.Address2
	r["city"] = addr.City
	r["country"] = addr.Country
	r["countryCode"] = addr.CountryCode
	r["province"] = addr.Province
	r["provinceCode"] = addr.ProvinceCode
	r["zip"] = addr.Zip
	r["orderId"] = c.Order.ID
	r["checkout_items"] = checkoutItems(c.LineItems)
	r["coupons"] = mapper.CommaSeparatedDiscountTitles(c.DiscountApplications)
	r["currency"] = c.CurrencyCode
	r["subtotal"] = c.SubtotalPrice.Float()
	r["shipping"] = c.ShippingLine.Price.Float()
	r["value"] = c.TotalPrice.Float()
	r["tax"] = c.TotalTax.Float()
	return r
}

func checkoutCompletedRecord(env models.Envelope, data models.CheckoutData) models.Record {
	r := checkoutRecord(env, data)

	skus := make([]string, len(data.Checkout.LineItems))
	for i, li := range data.Checkout.LineItems {
		if li.Variant.SKU != nil {
			skus[i] = *li.Variant.SKU
		}
	}
	r["checkout_item_skus"] = strings.Join(skus, ",")
	return r
}

func checkoutItems(lines []models.CheckoutLineItem) []models.Item {
	items := make([]models.Item, len(lines))
	for i, li := range lines {
		items[i] = mapper.CheckoutLineItemToItem(li, i)
	}
	return items
}

func productAddedToCartRecord(env models.Envelope, data models.CartLineData) models.Record {
	line := data.CartLine

	r := common(env)
	r["price"] = line.Merchandise.Price.Float()
	r["currency"] = line.Cost.TotalAmount.CurrencyCode
	r["total_cost"] = line.Cost.TotalAmount.Float()
	models.SetOptional(r, "product_title", line.Merchandise.Product.Title)
	models.SetOptional(r, "quantity", line.Quantity)
	r["cart_items"] = []models.Item{mapper.CartLineToItem(line)}
	return r
}

func cartViewedRecord(env models.Envelope, data models.CartData) models.Record {
	cart := data.Cart

	items := make([]models.Item, len(cart.Lines))
	for i, line := range cart.Lines {
		items[i] = mapper.CartLineToItem(line)
	}

	r := common(env)
	r["currency"] = cart.Cost.TotalAmount.CurrencyCode
	r["total_cost"] = cart.Cost.TotalAmount.Float()
	models.SetOptional(r, "quantity", cart.TotalQuantity)
	models.SetOptional(r, "cart_id", cart.ID)
	r["cart_items"] = items
	return r
}

func pageViewedRecord(env models.Envelope, _ models.PageData) models.Record {
	return common(env)
}

func productViewedRecord(env models.Envelope, data models.ProductVariantData) models.Record {
	v := data.ProductVariant

	r := common(env)
	models.SetOptional(r, "product_id", v.Product.ID)
	// product_title is the variant title; item_name below carries the product title.
	models.SetOptional(r, "product_title", v.Title)
	models.SetOptional(r, "product_sku", v.SKU)
	r["value"] = v.Price.Float()
	r["currency"] = v.Price.CurrencyCode
	r["product_items"] = []models.Item{mapper.ProductVariantToItem(v)}
	return r
}

func searchSubmittedRecord(env models.Envelope, data models.SearchData) models.Record {
	r := common(env)
	models.SetOptional(r, "search_query", data.SearchResult.Query)
	return r
}

func collectionViewedRecord(env models.Envelope, data models.CollectionData) models.Record {
	c := data.Collection

	r := common(env)
	models.SetOptional(r, "collection_id", c.ID)
	models.SetOptional(r, "collection_title", c.Title)
	r["collection_items"] = mapper.CollectionToItems(c)
	return r
}
