// Package normalize cleans raw extracted text into the canonical body that
// every downstream analysis consumes.
//
// The policy runs in a fixed order:
//  1. NFKC composition, then removal of every rune outside the allow-list
//     (ASCII letters and digits, Polish diacritics, a small punctuation set).
//     Emoji and pictographs fall outside the allow-list.
//  2. Line cleanup: runs of horizontal whitespace become one space, each line
//     is trimmed, whitespace before a period is dropped, runs of dots become
//     one dot, and runs of blank lines become exactly one blank line.
//
// Normalize is total and idempotent: Normalize(Normalize(x).Body) returns the
// same body.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Text is the normalized body of a document.
type Text struct {
	Body             string
	AllowlistApplied bool
}

// punctuation kept by the allow-list
const punctuation = `.,;:'"?!-`

// letters outside ASCII kept by the allow-list
const polishLetters = "ąćęłńóśźżĄĆĘŁŃÓŚŹŻ"

// Normalize applies the full cleanup policy to raw.
func Normalize(raw string) Text {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	filtered := filter(norm.NFKC.String(raw))
	return Text{
		Body:             cleanLines(filtered),
		AllowlistApplied: true,
	}
}

// Allowed reports whether r survives the allow-list.
func Allowed(r rune) bool {
	switch {
	case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		return true
	case strings.ContainsRune(punctuation, r):
		return true
	case strings.ContainsRune(polishLetters, r):
		return true
	}
	return false
}

// filter drops disallowed runes. Whitespace is kept as a separator: line
// breaks stay line breaks, every other space rune becomes a plain space.
func filter(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			sb.WriteByte('\n')
		case unicode.IsSpace(r):
			sb.WriteByte(' ')
		case Allowed(r):
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func cleanLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = cleanLine(line)
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// cleanLine collapses spaces, removes spaces before periods and squeezes
// repeated periods, then trims the result.
func cleanLine(line string) string {
	var sb strings.Builder
	sb.Grow(len(line))
	pendingSpace, lastDot := false, false
	for _, r := range line {
		switch {
		case r == ' ':
			pendingSpace = true
		case r == '.':
			pendingSpace = false
			if !lastDot {
				sb.WriteByte('.')
			}
			lastDot = true
		default:
			if pendingSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			pendingSpace, lastDot = false, false
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}
