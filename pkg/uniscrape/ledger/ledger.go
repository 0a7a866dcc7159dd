// Package ledger records which provenances have reached a terminal state,
// so that later runs skip them.
//
// The on-disk format is a tab-separated file with a one-column header
// ("url" for web pages, "filename" for local PDFs), one provenance per line.
// Every Mark is flushed and synced before it returns.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// File is an append-only ledger backed by a file.
type File struct {
	mu     sync.Mutex
	path   string
	seen   map[string]struct{}
	file   *os.File
	writer *csv.Writer
}

// Open loads the ledger at path, creating it (and its directory) with the
// given header column when missing.
func Open(path, column string) (*File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ledger: create dir: %w", err)
		}
	}

	seen, err := load(path, column)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	l := &File{path: path, seen: seen, file: f, writer: newWriter(f)}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ledger: stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		if err := l.write(column); err != nil {
			f.Close()
			return nil, err
		}
	}
	return l, nil
}

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return cw
}

func load(path, column string) (map[string]struct{}, error) {
	seen := make(map[string]struct{})
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return seen, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return seen, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: read %s: %w", path, err)
	}
	col := 0
	for i, name := range header {
		if name == column {
			col = i
			break
		}
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ledger: read %s: %w", path, err)
		}
		if col < len(rec) && rec[col] != "" {
			seen[rec[col]] = struct{}{}
		}
	}
	return seen, nil
}

// Contains reports whether provenance was marked.
func (l *File) Contains(provenance string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[provenance]
	return ok
}

// Mark appends provenance to the ledger and syncs the file. Marking a
// known provenance is a no-op.
func (l *File) Mark(provenance string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[provenance]; ok {
		return nil
	}
	if err := l.write(provenance); err != nil {
		return err
	}
	l.seen[provenance] = struct{}{}
	return nil
}

func (l *File) write(value string) error {
	if err := l.writer.Write([]string{value}); err != nil {
		return fmt.Errorf("ledger: write %s: %w", l.path, err)
	}
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		return fmt.Errorf("ledger: write %s: %w", l.path, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("ledger: sync %s: %w", l.path, err)
	}
	return nil
}

// Len returns the number of marked provenances.
func (l *File) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// Close closes the underlying file.
func (l *File) Close() error {
	return l.file.Close()
}

// Memory is a ledger that is never persisted.
type Memory struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemory creates an empty in-memory ledger.
func NewMemory(provenances ...string) *Memory {
	m := &Memory{seen: make(map[string]struct{})}
	for _, p := range provenances {
		m.seen[p] = struct{}{}
	}
	return m
}

func (m *Memory) Contains(provenance string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[provenance]
	return ok
}

func (m *Memory) Mark(provenance string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[provenance] = struct{}{}
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
