// Package extract turns fetched HTML pages and PDF files into plain text.
package extract

import "errors"

// ErrNoText is returned when a document yields no text, typically a scanned
// PDF that would need OCR.
var ErrNoText = errors.New("extract: no text content")

// Document is the text of a fetched page or file.
type Document struct {
	// Title is the document's own title, empty when it has none.
	Title string
	Text  string
	// Pages is the page count for PDFs, 0 for HTML.
	Pages int
}
