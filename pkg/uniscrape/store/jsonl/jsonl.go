// Package jsonl writes document records as JSON, one per line, or as
// indented JSON blocks for console output.
package jsonl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cognicore/uniscrape/pkg/uniscrape/store"
)

var _ store.Store = (*Writer)(nil)

// Writer is a store.Store that encodes records to an io.Writer.
type Writer struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	ids    *store.IDs
}

// Option configures a Writer.
type Option func(*Writer)

// WithIndent writes indented JSON instead of one record per line.
func WithIndent(indent string) Option {
	return func(w *Writer) { w.enc.SetIndent("", indent) }
}

// New creates a Writer on w. Close does not close w.
func New(w io.Writer, opts ...Option) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	jw := &Writer{enc: enc, ids: store.NewIDs()}
	for _, opt := range opts {
		opt(jw)
	}
	return jw
}

// Create opens path for appending and returns a Writer that closes it.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	w := New(f)
	w.closer = f
	return w, nil
}

// Append implements store.Store.
func (w *Writer) Append(ctx context.Context, r store.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(r); err != nil {
		return "", fmt.Errorf("encode record %s: %w", r.Metadata.Source, err)
	}
	return w.ids.New(time.Now()), nil
}

// Close implements store.Store.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
