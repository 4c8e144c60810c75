package subscriber

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/auth"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/handlers"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/models"
)

// Subscriber feeds pixel envelopes published on NATS into the bus.
// Messages on <prefix>.> are load balanced across the queue group. The optional
// Idempotency-Key and Tenant-Id headers mirror their HTTP counterparts.
type Subscriber struct {
	conn   *nats.Conn
	bus    handlers.Dispatcher
	prefix string
	queue  string
	log    *zap.Logger
	sub    *nats.Subscription
}

func New(conn *nats.Conn, bus handlers.Dispatcher, prefix, queue string, log *zap.Logger) *Subscriber {
	if log == nil {
		log = zap.NewNop()
	}
	return &Subscriber{
		conn:   conn,
		bus:    bus,
		prefix: prefix,
		queue:  queue,
		log:    log.With(zap.String("component", "nats-subscriber")),
	}
}

// Subject is the wildcard subject the subscriber listens on.
func (s *Subscriber) Subject() string {
	return s.prefix + ".>"
}

// Start subscribes; messages are handled on the nats client goroutine.
func (s *Subscriber) Start(ctx context.Context) error {
	sub, err := s.conn.QueueSubscribe(s.Subject(), s.queue, func(msg *nats.Msg) {
		s.Handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.Subject(), err)
	}
	s.sub = sub

	s.log.Info("nats_subscriber_started",
		zap.String("subject", s.Subject()),
		zap.String("queue_group", s.queue),
	)
	return nil
}

// Handle decodes one message and dispatches it. Malformed envelopes are logged and skipped.
func (s *Subscriber) Handle(ctx context.Context, msg *nats.Msg) {
	env, err := models.ParseEnvelope(msg.Data)
	if err != nil {
		s.log.Warn("invalid_envelope",
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return
	}

	var key, tenant string
	if msg.Header != nil {
		key = msg.Header.Get("Idempotency-Key")
		tenant = msg.Header.Get("Tenant-Id")
	}
	env = models.WithID(env, key)

	s.bus.Dispatch(auth.WithTenant(ctx, tenant), env)
}

// Stop drains the subscription so in-flight messages finish.
func (s *Subscriber) Stop() error {
	if s.sub == nil {
		return nil
	}
	err := s.sub.Drain()
	s.sub = nil
	return err
}
