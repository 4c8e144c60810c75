package sink

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/auth"
)

func runNATS(t *testing.T) *nats.Conn {
	t.Helper()
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	srv := natsserver.RunServer(&opts)
	t.Cleanup(srv.Shutdown)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}

func TestNATS_PublishesOnEventSubject(t *testing.T) {
	nc := runNATS(t)

	sub, err := nc.SubscribeSync("analytics.datalayer.>")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	s := NewNATS(nc, "analytics.datalayer")
	require.NoError(t, s.Emit(auth.WithTenant(context.Background(), "shop1"), record("n1")))
	require.NoError(t, s.Emit(context.Background(), record("n2")))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "analytics.datalayer.page_viewed", msg.Subject)
	assert.Equal(t, "n1", msg.Header.Get("Event-Id"))
	assert.Equal(t, "shop1", msg.Header.Get("Tenant-Id"))
	assert.JSONEq(t, `{"event":"page_viewed","event_id":"n1","page_location":"https://shop.example/"}`, string(msg.Data))

	msg, err = sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "n2", msg.Header.Get("Event-Id"))
	assert.Empty(t, msg.Header.Get("Tenant-Id"))
}

func TestNATS_CanceledContext(t *testing.T) {
	nc := runNATS(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewNATS(nc, "analytics.datalayer").Emit(ctx, record("n3"))
	assert.ErrorIs(t, err, context.Canceled)
}
