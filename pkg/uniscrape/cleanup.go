package uniscrape

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// cleanup sends text to the cleaner in sequential chunks and joins the
// answers in order. On any chunk failure the original text is returned with
// the error.
func (s *Scraper) cleanup(ctx context.Context, text string) (string, error) {
	chunks := chunkText(text, s.chunkSize)
	if len(chunks) == 0 {
		return text, nil
	}
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		out, err := s.cleaner.CleanToMarkdown(ctx, c)
		if err != nil {
			return text, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		parts = append(parts, strings.TrimSpace(out))
	}
	return strings.Join(parts, "\n\n"), nil
}

// chunkText splits text into pieces of at most size runes. A piece ends at
// its last whitespace when that lies in its second half, so words are not
// cut.
func chunkText(text string, size int) []string {
	runes := []rune(strings.TrimSpace(text))
	if size <= 0 || len(runes) == 0 {
		if len(runes) == 0 {
			return nil
		}
		return []string{string(runes)}
	}

	var chunks []string
	for len(runes) > 0 {
		end := size
		if end >= len(runes) {
			end = len(runes)
		} else {
			for k := end; k > size/2; k-- {
				if unicode.IsSpace(runes[k]) {
					end = k
					break
				}
			}
		}
		if c := strings.TrimSpace(string(runes[:end])); c != "" {
			chunks = append(chunks, c)
		}
		runes = runes[end:]
	}
	return chunks
}
