// Package store defines how finished document records are persisted.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cognicore/uniscrape/pkg/uniscrape/metrics"
)

// DateLayout is the format of Metadata.Date.
const DateLayout = "2006-01-02 15:04:05"

// Store is the persistence collaborator of the pipeline.
type Store interface {
	// Append persists r and returns the ID assigned to it.
	Append(ctx context.Context, r Record) (string, error)
	Close() error
}

// Record is a published document. Its JSON form is
//
//	{"metadata": {"title", "date", "source", "institution", "language",
//	              "type", "metrics"}, "content"}
//
// with every key always present.
type Record struct {
	Metadata Metadata `json:"metadata"`
	Content  string   `json:"content"`
}

// Metadata describes a Record.
type Metadata struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Source      string `json:"source"`
	Institution string `json:"institution"`
	Language    string `json:"language"`
	Type        string `json:"type"`
	// Metrics is nil when they could not be computed; it is written as {}.
	Metrics *metrics.Metrics `json:"metrics"`
}

// MarshalJSON writes nil Metrics as an empty object.
func (m Metadata) MarshalJSON() ([]byte, error) {
	type alias Metadata
	out := struct {
		alias
		Metrics any `json:"metrics"`
	}{alias: alias(m), Metrics: m.Metrics}
	if m.Metrics == nil {
		out.Metrics = struct{}{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// FormatDate formats t as Metadata.Date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

type multi []Store

// MirrorError reports stores after the first that failed to take a record
// the first store accepted.
type MirrorError struct {
	Errs []error
}

func (e *MirrorError) Error() string {
	return "mirror store: " + errors.Join(e.Errs...).Error()
}

func (e *MirrorError) Unwrap() []error { return e.Errs }

// Multi returns a Store that appends to every store in order. The first
// store is the store of record: if it fails, the record is not written
// anywhere else and its error is returned. Once it holds the record, the
// record counts as stored and failures of the other stores come back as a
// *MirrorError alongside the first store's ID.
func Multi(stores ...Store) Store {
	return multi(stores)
}

func (m multi) Append(ctx context.Context, r Record) (string, error) {
	if len(m) == 0 {
		return "", errors.New("store: no stores")
	}
	id, err := m[0].Append(ctx, r)
	if err != nil {
		return "", err
	}
	var errs []error
	for _, s := range m[1:] {
		if _, err := s.Append(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return id, &MirrorError{Errs: errs}
	}
	return id, nil
}

func (m multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
