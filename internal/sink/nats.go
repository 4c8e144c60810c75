package sink

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/auth"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/models"
)

// NATS publishes each record on <prefix>.<event>.
type NATS struct {
	conn   *nats.Conn
	prefix string
}

func NewNATS(conn *nats.Conn, prefix string) *NATS {
	return &NATS{conn: conn, prefix: prefix}
}

// Subject returns the subject a record with the given event name is published on.
func (s *NATS) Subject(event string) string {
	return s.prefix + "." + event
}

func (s *NATS) Emit(ctx context.Context, r models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := encode(r)
	if err != nil {
		return err
	}

	msg := &nats.Msg{
		Subject: s.Subject(r.Event()),
		Data:    b,
		Header:  nats.Header{},
	}
	msg.Header.Set("Event-Id", r.EventID())
	if tenant := auth.Tenant(ctx); tenant != "" {
		msg.Header.Set("Tenant-Id", tenant)
	}

	if err := s.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", msg.Subject, err)
	}
	return nil
}
