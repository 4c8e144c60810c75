package sink

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/models"
)

// Writer writes records as JSON lines.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (s *Writer) Emit(_ context.Context, r models.Record) error {
	b, err := encode(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
