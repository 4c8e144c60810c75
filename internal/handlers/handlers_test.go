package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/auth"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/models"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/pixel"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/sink"
)

const testKey = "tenant-key-123"

type fakeCounter struct {
	count     int64
	byEvent   map[string]int64
	err       error
	gotTenant string
	gotEvent  string
	gotFrom   time.Time
	gotTo     time.Time
}

func (f *fakeCounter) CountRecords(_ context.Context, tenant, event string, from, to time.Time) (int64, error) {
	f.gotTenant, f.gotEvent, f.gotFrom, f.gotTo = tenant, event, from, to
	return f.count, f.err
}

func (f *fakeCounter) CountByEvent(_ context.Context, tenant string, from, to time.Time) (map[string]int64, error) {
	f.gotTenant, f.gotEvent, f.gotFrom, f.gotTo = tenant, "", from, to
	return f.byEvent, f.err
}

func newTestRouter(t *testing.T, counter RecordCounter) (*gin.Engine, *sink.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := sink.NewMemory()
	bus := pixel.NewBus(nil, nil)
	pixel.Register(bus, mem)

	r := gin.New()
	g := r.Group("/")
	g.Use(auth.APIKeyMiddleware(map[string]string{testKey: "tenant1"}))
	RegisterEventRoutes(g, bus)
	RegisterStatsRoutes(g, counter)
	return r, mem
}

func post(r http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/plain;charset=UTF-8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) models.EventIngestResponse {
	t.Helper()
	var resp models.EventIngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestEvents_UnauthorizedWithoutAPIKey(t *testing.T) {
	r, mem := newTestRouter(t, &fakeCounter{})

	w := post(r, `{"name":"page_viewed"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, mem.Len())
}

func TestEvents_BadRequestOnInvalidEnvelope(t *testing.T) {
	r, _ := newTestRouter(t, &fakeCounter{})

	for _, body := range []string{`not json`, `{"id":"x"}`} {
		w := post(r, body, map[string]string{"X-API-Key": testKey})
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestEvents_EmitsRecord(t *testing.T) {
	r, mem := newTestRouter(t, &fakeCounter{})

	w := post(r, `{
		"id": "evt-1", "name": "search_submitted", "timestamp": 1700000000000, "clientId": "c1",
		"context": {"window": {"location": {"href": "https://shop.example/search"}}, "document": {"title": "Search"}},
		"data": {"searchResult": {"query": "boots"}}
	}`, map[string]string{"X-API-Key": testKey})

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, models.EventIngestResponse{EventID: "evt-1", Event: "search_submitted", Status: "emitted"}, decode(t, w))

	require.Equal(t, 1, mem.Len())
	rec := mem.Records()[0]
	assert.Equal(t, "boots", rec["search_query"])
	assert.Equal(t, "https://shop.example/search", rec["page_location"])
}

func TestEvents_IdempotencyKeyOverridesID(t *testing.T) {
	r, mem := newTestRouter(t, &fakeCounter{})

	w := post(r, `{"id":"body-id","name":"page_viewed"}`, map[string]string{
		"X-API-Key":       testKey,
		"Idempotency-Key": "hdr-id",
	})

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "hdr-id", decode(t, w).EventID)
	assert.Equal(t, "hdr-id", mem.Records()[0].EventID())
}

func TestEvents_GeneratesIDWhenMissing(t *testing.T) {
	r, _ := newTestRouter(t, &fakeCounter{})

	w := post(r, `{"name":"page_viewed"}`, map[string]string{"X-API-Key": testKey})

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.NotEmpty(t, decode(t, w).EventID)
}

func TestEvents_DroppedAndIgnoredAreStillAccepted(t *testing.T) {
	r, mem := newTestRouter(t, &fakeCounter{})
	hdr := map[string]string{"X-API-Key": testKey}

	w := post(r, `{"id":"1","name":"checkout_completed","data":{"checkout":{}}}`, hdr)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "dropped", decode(t, w).Status)

	w = post(r, `{"id":"2","name":"alert_displayed"}`, hdr)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "ignored", decode(t, w).Status)

	assert.Zero(t, mem.Len())
}

func TestEvents_QueryAPIKeyForBeacons(t *testing.T) {
	r, mem := newTestRouter(t, &fakeCounter{})

	req := httptest.NewRequest(http.MethodPost, "/events?api_key="+testKey, strings.NewReader(`{"name":"page_viewed"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, mem.Len())
}

func TestStats(t *testing.T) {
	counter := &fakeCounter{count: 7}
	r, _ := newTestRouter(t, counter)

	get := func(query string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/stats"+query, nil)
		req.Header.Set("X-API-Key", testKey)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("?event=cart_viewed&from=2024-01-01T00:00:00Z&to=2024-01-02T00:00:00Z")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"event":"cart_viewed","count":7}`, w.Body.String())
	assert.Equal(t, "cart_viewed", counter.gotEvent)
	assert.Equal(t, "tenant1", counter.gotTenant)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), counter.gotFrom)

	counter.byEvent = map[string]int64{"cart_viewed": 7, "page_viewed": 2}
	w = get("?from=2024-01-01T00:00:00Z&to=2024-01-02T00:00:00Z")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"counts":{"cart_viewed":7,"page_viewed":2}}`, w.Body.String())

	for _, q := range []string{
		"",
		"?event=x",
		"?event=x&from=bad&to=2024-01-02T00:00:00Z",
		"?event=x&from=2024-01-02T00:00:00Z&to=bad",
		"?event=x&from=2024-01-02T00:00:00Z&to=2024-01-01T00:00:00Z",
	} {
		assert.Equal(t, http.StatusBadRequest, get(q).Code, q)
	}

	counter.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, get("?event=x&from=2024-01-01T00:00:00Z&to=2024-01-02T00:00:00Z").Code)
}

func TestEvents_TenantReachesSink(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var tenant string
	bus := pixel.NewBus(nil, nil)
	pixel.Register(bus, sink.Func(func(ctx context.Context, _ models.Record) error {
		tenant = auth.Tenant(ctx)
		return nil
	}))

	r := gin.New()
	r.Use(auth.APIKeyMiddleware(map[string]string{testKey: "tenant1"}))
	RegisterEventRoutes(r, bus)

	w := post(r, `{"name":"page_viewed"}`, map[string]string{"X-API-Key": testKey})

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "tenant1", tenant)
}

func TestEvents_ClientDisconnectDoesNotCancelEmit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var tenant string
	bus := pixel.NewBus(nil, nil)
	pixel.Register(bus, sink.Combine(
		sink.NewRedis(client, "dataLayer"),
		sink.Func(func(ctx context.Context, _ models.Record) error {
			tenant = auth.Tenant(ctx)
			return nil
		}),
	))

	r := gin.New()
	r.Use(auth.APIKeyMiddleware(map[string]string{testKey: "tenant1"}))
	RegisterEventRoutes(r, bus)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"id":"e1","name":"page_viewed"}`)).WithContext(ctx)
	req.Header.Set("X-API-Key", testKey)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "emitted", decode(t, w).Status)
	assert.Equal(t, "tenant1", tenant)

	items, err := mr.List("dataLayer")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
