// Package pixel turns storefront pixel events into analytics data-layer records.
//
// A Bus holds one subscription per event name. Register wires the built-in
// handlers so each one decodes its payload, builds a record and emits it to a sink.
// Dispatch is the failure boundary: a broken event is logged, counted and dropped.
package pixel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/models"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/sink"
)

// Outcome reports what happened to one dispatched event.
type Outcome string

const (
	OutcomeEmitted Outcome = "emitted"
	OutcomeDropped Outcome = "dropped"
	OutcomeIgnored Outcome = "ignored"
)

var (
	// ErrEmit wraps sink failures.
	ErrEmit = errors.New("emit record")
	// ErrHandlerPanic is reported when a subscription panics.
	ErrHandlerPanic = errors.New("handler panic")
)

// Callback is a subscription on the bus. It runs synchronously and must not retain env.
type Callback func(ctx context.Context, env models.Envelope) error

// Bus dispatches envelopes to the subscription registered for their name.
// Subscribe everything before the first Dispatch; the table is read without locking.
type Bus struct {
	log     *zap.Logger
	metrics *Metrics
	subs    map[string]Callback
}

func NewBus(log *zap.Logger, m *Metrics) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		log:     log,
		metrics: m,
		subs:    make(map[string]Callback),
	}
}

// Subscribe registers cb for name, replacing any previous subscription.
func (b *Bus) Subscribe(name string, cb Callback) {
	b.subs[name] = cb
}

// Names lists the subscribed event names in sorted order.
func (b *Bus) Names() []string {
	names := make([]string, 0, len(b.subs))
	for n := range b.subs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the subscription for env.Name. Errors and panics stay inside.
func (b *Bus) Dispatch(ctx context.Context, env models.Envelope) Outcome {
	cb, ok := b.subs[env.Name]
	if !ok {
		b.log.Debug("event_ignored", zap.String("event", env.Name), zap.String("event_id", env.ID))
		b.metrics.dropped("unknown", "unknown_event")
		return OutcomeIgnored
	}

	start := time.Now()
	err := invoke(ctx, cb, env)
	b.metrics.observe(env.Name, time.Since(start))

	if err != nil {
		reason := dropReason(err)
		b.log.Warn("event_dropped",
			zap.String("event", env.Name),
			zap.String("event_id", env.ID),
			zap.String("reason", reason),
			zap.Error(err),
		)
		b.metrics.dropped(env.Name, reason)
		return OutcomeDropped
	}

	b.metrics.handled(env.Name)
	return OutcomeEmitted
}

func invoke(ctx context.Context, cb Callback, env models.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return cb(ctx, env)
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, models.ErrUnknownEvent):
		return "unknown_event"
	case errors.Is(err, sink.ErrPartial):
		return "sink_partial"
	case errors.Is(err, ErrEmit):
		return "sink_error"
	case errors.Is(err, ErrHandlerPanic):
		return "panic"
	default:
		return "error"
	}
}
