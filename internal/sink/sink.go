// Package sink holds the output queue backends that analytics records are appended to.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/models"
)

// Sink appends one record to an output queue. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, r models.Record) error
}

// Func adapts a plain function to Sink.
type Func func(ctx context.Context, r models.Record) error

func (f Func) Emit(ctx context.Context, r models.Record) error { return f(ctx, r) }

// Memory is an in-process, append-only data layer. It never evicts, so it backs
// tests and the replay tool, not a long-running server.
type Memory struct {
	mu      sync.Mutex
	records []models.Record
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Emit(_ context.Context, r models.Record) error {
	m.mu.Lock()
	m.records = append(m.records, r)
	m.mu.Unlock()
	return nil
}

// Records returns a snapshot of everything emitted so far.
func (m *Memory) Records() []models.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Record, len(m.records))
	copy(out, m.records)
	return out
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// ErrPartial marks a Fanout failure where at least one backend did store the record.
var ErrPartial = errors.New("record reached only some sinks")

// Fanout emits to every backend and joins their errors.
type Fanout []Sink

func (f Fanout) Emit(ctx context.Context, r models.Record) error {
	var errs []error
	for _, s := range f {
		if err := s.Emit(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if len(errs) < len(f) {
		return fmt.Errorf("%w: %w", ErrPartial, errors.Join(errs...))
	}
	return errors.Join(errs...)
}

// Combine returns the single backend when there is only one, a Fanout otherwise.
func Combine(sinks ...Sink) Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return Fanout(sinks)
}

func encode(r models.Record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record %s/%s: %w", r.Event(), r.EventID(), err)
	}
	return b, nil
}
