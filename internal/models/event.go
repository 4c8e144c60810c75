package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidEnvelope is returned when the raw bytes are not an event envelope.
var ErrInvalidEnvelope = errors.New("invalid event envelope")

// Envelope is a single storefront analytics event as delivered by the pixel bus.
// Data stays raw until the event name is known (see DecodePayload).
type Envelope struct {
	ID        string          `json:"id"`
	Name      string          `json:"name" validate:"required"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
	ClientID  string          `json:"clientId"`
	Context   PageContext     `json:"context"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// PageContext is the browser context captured with the event.
type PageContext struct {
	Window   WindowContext   `json:"window"`
	Document DocumentContext `json:"document"`
}

type WindowContext struct {
	Location Location `json:"location"`
}

type Location struct {
	Href string `json:"href"`
}

type DocumentContext struct {
	Title string `json:"title"`
}

// ParseEnvelope decodes and validates one envelope.
func ParseEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if err := ValidateEnvelope(env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// ValidateEnvelope checks the fields every transport must supply.
func ValidateEnvelope(env Envelope) error {
	if err := validate.Struct(env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return nil
}

// EventIngestResponse is returned by POST /events.
// Status is one of emitted, dropped or ignored.
type EventIngestResponse struct {
	EventID string `json:"event_id"`
	Event   string `json:"event"`
	Status  string `json:"status"`
}

// WithID fills env.ID using the precedence preferred, then env.ID, then a new UUID.
// preferred is usually an Idempotency-Key header and may be empty.
func WithID(env Envelope, preferred string) Envelope {
	if preferred != "" {
		env.ID = preferred
	}
	if env.ID == "" {
		env.ID = uuid.New().String()
	}
	return env
}
