package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/auth"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// ErrMissingIdentity is returned for records without event or event_id.
var ErrMissingIdentity = errors.New("record event/event_id required")

// PostgresStore archives emitted records per tenant, next to the live queues.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}

// Emit archives r under the tenant carried by ctx. Re-deliveries are absorbed silently.
func (p *PostgresStore) Emit(ctx context.Context, r models.Record) error {
	_, err := p.InsertRecord(ctx, auth.Tenant(ctx), r)
	return err
}

// InsertRecord reports inserted=false when (tenant, event, event_id) is already archived.
func (p *PostgresStore) InsertRecord(ctx context.Context, tenant string, r models.Record) (bool, error) {
	event, eventID := r.Event(), r.EventID()
	if event == "" || eventID == "" {
		return false, ErrMissingIdentity
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}
	clientID, _ := r["client_id"].(string)

	var one int
	err = p.pool.QueryRow(ctx, `
		INSERT INTO records(tenant_id, event, event_id, client_id, received_at, payload)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (tenant_id, event, event_id) DO NOTHING
		RETURNING 1
	`, tenant, event, eventID, clientID, p.now().UTC(), payload).Scan(&one)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		// RETURNING yields nothing on conflict.
		return false, nil
	default:
		return false, fmt.Errorf("insert record %s/%s: %w", event, eventID, err)
	}
}

// CountRecords counts the tenant's records for event received in [from,to).
func (p *PostgresStore) CountRecords(ctx context.Context, tenant, event string, from, to time.Time) (int64, error) {
	var count int64
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM records
		WHERE tenant_id=$1
		  AND event=$2
		  AND received_at >= $3
		  AND received_at <  $4
	`, tenant, event, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// CountByEvent breaks the tenant's records received in [from,to) down by event name.
func (p *PostgresStore) CountByEvent(ctx context.Context, tenant string, from, to time.Time) (map[string]int64, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT event, COUNT(*)
		FROM records
		WHERE tenant_id=$1
		  AND received_at >= $2
		  AND received_at <  $3
		GROUP BY event
	`, tenant, from, to)
	if err != nil {
		return nil, fmt.Errorf("count by event: %w", err)
	}

	counts := map[string]int64{}
	var (
		event string
		n     int64
	)
	_, err = pgx.ForEachRow(rows, []any{&event, &n}, func() error {
		counts[event] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count by event: %w", err)
	}
	return counts, nil
}
