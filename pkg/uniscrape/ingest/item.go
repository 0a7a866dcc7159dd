// Package ingest holds the unit of work of the pipeline and the enrichment
// stage that turns normalized text into metadata.
package ingest

import (
	"errors"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Item is one fetched document: raw extracted text plus where it came from.
type Item struct {
	// Provenance is the source URL or file name, also the dedup key.
	Provenance string
	RawText    string
	// Title reported by the extractor (og:title, <title>, PDF info), if any.
	Title string
	IsPDF bool
}

// Validate checks if the item has required fields.
func (it Item) Validate() error {
	if strings.TrimSpace(it.Provenance) == "" {
		return errors.New("item provenance is required")
	}
	return nil
}

// DisplayTitle returns the extractor's title, or one derived from the
// provenance.
func (it Item) DisplayTitle() string {
	if t := strings.TrimSpace(it.Title); t != "" {
		return t
	}
	return TitleFromProvenance(it.Provenance)
}

// TitleFromProvenance derives a readable title from a URL or file name: the
// last path segment without its extension, with '-' and '_' as spaces. A URL
// without a path yields its host.
func TitleFromProvenance(provenance string) string {
	provenance = strings.TrimSpace(provenance)
	segment := ""
	if u, err := url.Parse(provenance); err == nil && u.Host != "" {
		p := strings.TrimRight(u.Path, "/")
		if p == "" {
			return u.Host
		}
		segment = path.Base(p)
	} else {
		segment = filepath.Base(provenance)
	}

	if ext := path.Ext(segment); ext != "" && len(ext) <= 5 {
		segment = strings.TrimSuffix(segment, ext)
	}
	segment = strings.NewReplacer("-", " ", "_", " ").Replace(segment)
	return strings.Join(strings.Fields(segment), " ")
}
