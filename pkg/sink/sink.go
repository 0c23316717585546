package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
)

const module = "sink"

// Sink receives the results of a run.
type Sink[R any] interface {
	// Write delivers a batch of records.
	Write(ctx context.Context, records []R) error

	// Close releases resources. Writes after Close return errors.ErrClosed.
	Close() error
}

// JSONLines writes one JSON document per record to an io.Writer.
type JSONLines[R any] struct {
	mu      sync.Mutex
	w       io.Writer
	enc     *json.Encoder
	written int
	closed  bool
}

// NewJSONLines creates a sink encoding records to w.
func NewJSONLines[R any](w io.Writer) *JSONLines[R] {
	return &JSONLines[R]{w: w, enc: json.NewEncoder(w)}
}

// Write encodes records in order. It stops at the first encoding error.
func (s *JSONLines[R]) Write(ctx context.Context, records []R) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tferrors.NewOperationError(module, "Write", tferrors.ErrClosed)
	}

	for i, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.enc.Encode(r); err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		s.written++
	}
	return nil
}

// Written returns the number of records encoded so far.
func (s *JSONLines[R]) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Close marks the sink closed and closes the writer if it is an io.Closer.
func (s *JSONLines[R]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var (
	_ Sink[any] = (*JSONLines[any])(nil)
	_ Sink[any] = (*RedisList[any])(nil)
)
