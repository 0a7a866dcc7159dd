// Package source reads work queues (URL lists, PDF directories, JSONL of
// pre-extracted text) and turns provenances into ingest items.
package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cognicore/uniscrape/pkg/uniscrape/ingest"
	"github.com/cognicore/uniscrape/pkg/uniscrape/internalerr"
)

// LoadURLs reads a crawler output file: a header row naming a "url" column,
// then one row per page, separated by tabs or commas. Blank and repeated
// URLs are dropped; order is kept.
func LoadURLs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read url list %s: %w", path, err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = detectComma(data)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse url list %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := -1
	for i, name := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(name), "url") {
			col = i
			break
		}
	}
	if col < 0 {
		// headerless list: one URL per line
		col = 0
	} else {
		rows = rows[1:]
	}

	seen := make(map[string]struct{}, len(rows))
	urls := make([]string, 0, len(rows))
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		u := strings.TrimSpace(row[col])
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls, nil
}

func detectComma(data []byte) rune {
	first, _, _ := bytes.Cut(data, []byte{'\n'})
	if bytes.ContainsRune(first, '\t') {
		return '\t'
	}
	return ','
}

// jsonlItem is one line of a pre-extracted input file.
type jsonlItem struct {
	Provenance string `json:"provenance"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	IsPDF      bool   `json:"is_pdf"`
}

// LoadJSONL reads pre-extracted items, one JSON object per line. Malformed
// lines and lines without a provenance are skipped with a warning.
func LoadJSONL(path string) ([]ingest.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	defer f.Close()

	var items []ingest.Item
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 32<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var raw jsonlItem
		if err := json.Unmarshal(line, &raw); err != nil {
			slog.Warn("source: skipping malformed line", "path", path, "line", lineNo, "error", err)
			continue
		}
		item := ingest.Item{Provenance: raw.Provenance, Title: raw.Title, RawText: raw.Text, IsPDF: raw.IsPDF}
		if err := item.Validate(); err != nil {
			slog.Warn("source: skipping line", "path", path, "line", lineNo, "error", err)
			continue
		}
		items = append(items, item)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no valid items found in %s: %w", path, internalerr.ErrInvalidInput)
	}
	return items, nil
}

// ListPDFs returns the names of the PDF files in dir, sorted.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list pdfs %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
