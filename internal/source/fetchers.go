package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/uniscrape/internal/extract"
	"github.com/cognicore/uniscrape/internal/fetch"
	"github.com/cognicore/uniscrape/pkg/uniscrape/ingest"
	"github.com/cognicore/uniscrape/pkg/uniscrape/internalerr"
)

// IsPDFURL reports whether a URL's path ends in "pdf".
func IsPDFURL(raw string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	return strings.HasSuffix(strings.ToLower(p), "pdf")
}

// Web downloads pages and extracts their text. PDF URLs and responses go
// through PDF extraction.
type Web struct {
	Fetcher *fetch.Fetcher
}

// Fetch implements uniscrape.Fetcher. A page without text yields an item
// with empty text, which the length gate rejects.
func (w Web) Fetch(ctx context.Context, provenance string) (ingest.Item, error) {
	res, err := w.Fetcher.Fetch(ctx, provenance)
	if err != nil {
		return ingest.Item{}, err
	}

	item := ingest.Item{Provenance: provenance}
	var doc extract.Document
	if IsPDFURL(provenance) || res.IsPDF() {
		item.IsPDF = true
		doc, err = extract.PDF(res.Body)
	} else {
		doc, err = extract.HTML(res.Body, provenance)
	}
	if err != nil && !errors.Is(err, extract.ErrNoText) {
		return ingest.Item{}, err
	}
	item.Title, item.RawText = doc.Title, doc.Text
	return item, nil
}

// Files reads PDFs from a local directory. Provenances are file names
// relative to Dir.
type Files struct {
	Dir string
}

// Fetch implements uniscrape.Fetcher.
func (f Files) Fetch(ctx context.Context, provenance string) (ingest.Item, error) {
	if err := ctx.Err(); err != nil {
		return ingest.Item{}, err
	}
	data, err := os.ReadFile(filepath.Join(f.Dir, provenance))
	if err != nil {
		return ingest.Item{}, fmt.Errorf("read pdf: %w", err)
	}
	doc, err := extract.PDF(data)
	if err != nil && !errors.Is(err, extract.ErrNoText) {
		return ingest.Item{}, fmt.Errorf("%s: %w", provenance, err)
	}
	return ingest.Item{Provenance: provenance, Title: doc.Title, RawText: doc.Text, IsPDF: true}, nil
}

// Static serves items that were extracted elsewhere, such as OCR output.
type Static struct {
	order []string
	items map[string]ingest.Item
}

// NewStatic indexes items by provenance. Later duplicates replace earlier
// ones but keep the first position.
func NewStatic(items []ingest.Item) *Static {
	s := &Static{items: make(map[string]ingest.Item, len(items))}
	for _, it := range items {
		if _, ok := s.items[it.Provenance]; !ok {
			s.order = append(s.order, it.Provenance)
		}
		s.items[it.Provenance] = it
	}
	return s
}

// Provenances returns the provenances in input order.
func (s *Static) Provenances() []string {
	return append([]string(nil), s.order...)
}

// Fetch implements uniscrape.Fetcher.
func (s *Static) Fetch(ctx context.Context, provenance string) (ingest.Item, error) {
	if err := ctx.Err(); err != nil {
		return ingest.Item{}, err
	}
	it, ok := s.items[provenance]
	if !ok {
		return ingest.Item{}, fmt.Errorf("%s: %w", provenance, internalerr.ErrNotFound)
	}
	return it, nil
}
