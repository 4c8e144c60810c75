package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Event names published by the storefront pixel bus.
const (
	EventCheckoutStarted               = "checkout_started"
	EventCheckoutContactInfoSubmitted  = "checkout_contact_info_submitted"
	EventCheckoutAddressInfoSubmitted  = "checkout_address_info_submitted"
	EventCheckoutShippingInfoSubmitted = "checkout_shipping_info_submitted"
	EventPaymentInfoSubmitted          = "payment_info_submitted"
	EventCheckoutCompleted             = "checkout_completed"
	EventProductAddedToCart            = "product_added_to_cart"
	EventCartViewed                    = "cart_viewed"
	EventPageViewed                    = "page_viewed"
	EventProductViewed                 = "product_viewed"
	EventSearchSubmitted               = "search_submitted"
	EventCollectionViewed              = "collection_viewed"
)

var (
	// ErrUnknownEvent means no payload schema exists for the event name.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrInvalidPayload means data is malformed or lacks required structure.
	ErrInvalidPayload = errors.New("invalid event payload")
)

// Payload is the decoded data of an envelope. The concrete type is fixed by the event name.
type Payload interface {
	payload()
}

type CheckoutData struct {
	Checkout Checkout `json:"checkout"`
}

type CartLineData struct {
	CartLine CartLine `json:"cartLine"`
}

type CartData struct {
	Cart Cart `json:"cart"`
}

type ProductVariantData struct {
	ProductVariant ProductVariant `json:"productVariant"`
}

type CollectionData struct {
	Collection Collection `json:"collection"`
}

type SearchData struct {
	SearchResult SearchResult `json:"searchResult"`
}

// PageData carries nothing; page_viewed only uses the envelope.
type PageData struct{}

func (CheckoutData) payload()       {}
func (CartLineData) payload()       {}
func (CartData) payload()           {}
func (ProductVariantData) payload() {}
func (CollectionData) payload()     {}
func (SearchData) payload()         {}
func (PageData) payload()           {}

// DecodePayload decodes env.Data into the payload type registered for env.Name
// and validates required structure once, at the boundary.
func DecodePayload(env Envelope) (Payload, error) {
	switch env.Name {
	case EventCheckoutStarted,
		EventCheckoutContactInfoSubmitted,
		EventCheckoutAddressInfoSubmitted,
		EventCheckoutShippingInfoSubmitted,
		EventPaymentInfoSubmitted,
		EventCheckoutCompleted:
		return decodeInto[CheckoutData](env.Data)
	case EventProductAddedToCart:
		return decodeInto[CartLineData](env.Data)
	case EventCartViewed:
		return decodeInto[CartData](env.Data)
	case EventPageViewed:
		return PageData{}, nil
	case EventProductViewed:
		return decodeInto[ProductVariantData](env.Data)
	case EventSearchSubmitted:
		return decodeInto[SearchData](env.Data)
	case EventCollectionViewed:
		return decodeInto[CollectionData](env.Data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Name)
	}
}

func decodeInto[T Payload](raw json.RawMessage) (Payload, error) {
	var v T
	if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}
	if err := validate.Struct(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return v, nil
}
