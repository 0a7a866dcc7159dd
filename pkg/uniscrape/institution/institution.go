// Package institution recovers the name of the institution that owns a
// document from its normalized text and the named entities found in it.
//
// Institution names are rarely tagged as one entity. They are rebuilt from a
// PLACE entity, which taggers find reliably, and an institution-type keyword
// ("Uniwersytet", "Szkoła", "III Liceum") in a bounded window before it.
package institution

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/uniscrape/pkg/uniscrape/nlp"
)

// Source tells which rule produced a Candidate.
type Source string

const (
	SourceOrgWindow    Source = "org_window"
	SourceSchoolRegex  Source = "school_regex"
	SourceStatuteRegex Source = "statute_regex"
)

// Candidate is an extracted institution name.
type Candidate struct {
	Name   string
	Source Source
}

// Window sizes, in characters.
const (
	orgProximity  = 90
	placeWindow   = 70
	statuteWindow = 90
)

const (
	keyword = `(?:szk(?:o[lł](?:a|y|e|ę|ą|o|om|ami|ach)?|ół)|uniwersytet\p{L}*|instytut\p{L}*|wydzia[lł]\p{L}*` +
		`|zak[lł]ad\p{L}*|katedr\p{L}*|technikum|liceum|zesp[oó][lł]\p{L}*\s+szk[oó][lł]\p{L}*|politechnik\p{L}*` +
		`|akademi\p{L}*|wy[zż]sz\p{L}*)`
	// optional Roman ordinal: "III Liceum"
	numeral = `(?:(?-i:[IVXLC]+)\s+)?`
	// abbreviation whose period does not end the name: "im. Adama"
	abbrev = `[^\p{L}\n;:.](?:im|św|prof|dr|hab|inż|ks|bł|bp|gen|ul|al|pl|nr)\.[ \t]*`
	// a period that does not end a sentence: "o.o.", "3. piętro"
	innerDot = `\.(?:[^\s.;:]|[ \t]+(?-i:[^\s\p{Lu}]))`
	// a name never crosses a line break, a semicolon, a colon or a sentence end
	span     = `(?:` + abbrev + `|[^\n;:.]|` + innerDot + `)`
	nameBody = `(?:(?:` + abbrev + `|[^\p{L}\n;:.]|` + innerDot + `)` + span + `*)?`
	boundary = `(?:^|[^\p{L}])`
)

var (
	// ORG text that already reads "<keyword> ... w <Place>"
	orgExact = regexp.MustCompile(`(?i)` + boundary + `(` + numeral + keyword + nameBody +
		`\s(?:w|we)\s+(?-i:\p{Lu})` + span + `*)$`)
	// keyword-anchored name running to the end of the window
	anchored = regexp.MustCompile(`(?i)` + boundary + `(` + numeral + keyword + nameBody + `)$`)
	// same, preceded by "STATUT"/"STATUC" in the window
	statute = regexp.MustCompile(`(?i)statu[tc]\p{L}*` + span + `*?` + boundary + `(` + numeral + keyword + nameBody + `)$`)
)

// findName returns the bounds of the first capitalized name re captures in
// s. Lower-case keyword hits ("w szkole") are skipped.
func findName(re *regexp.Regexp, s string) (int, int, bool) {
	off := 0
	for {
		m := re.FindStringSubmatchIndex(s[off:])
		if m == nil {
			return 0, 0, false
		}
		start, end := off+m[2], off+m[3]
		if nlp.IsCapitalized(s[start:end]) {
			return start, end, true
		}
		next := strings.IndexFunc(s[start:], func(r rune) bool { return !unicode.IsLetter(r) })
		if next < 0 {
			return 0, 0, false
		}
		off = start + next
	}
}

// Extract returns the institution named in text, if any. entities must be
// ordered by Start and carry byte offsets into text. Absence of a match is
// an expected outcome, reported as ok == false.
//
// Precedence, highest first:
//  1. an ORG entity that is itself a complete "<keyword> ... w <Place>" name;
//  2. an ORG entity closed by a PLACE at most 90 characters after it, when the
//     span from the ORG to the PLACE is keyword-anchored;
//  3. a keyword-anchored name ending at a PLACE, found in the 70 characters
//     before it;
//  4. the same within 90 characters, preceded by "Statut".
func Extract(text string, entities []nlp.Entity) (Candidate, bool) {
	var orgs, places []nlp.Entity
	for _, e := range entities {
		if e.Start < 0 || e.End > len(text) || e.Start >= e.End {
			continue
		}
		switch e.Label {
		case nlp.LabelOrg:
			orgs = append(orgs, e)
		case nlp.LabelPlace:
			places = append(places, e)
		}
	}

	for _, org := range orgs {
		name := text[org.Start:org.End]
		if start, end, ok := findName(orgExact, name); ok {
			return Candidate{Name: name[start:end], Source: SourceOrgWindow}, true
		}
	}

	for _, p := range pairs(text, orgs, places) {
		window := text[p.org.Start:p.place.End]
		if start, end, ok := findName(anchored, window); ok {
			return Candidate{Name: window[start:end], Source: SourceOrgWindow}, true
		}
	}

	var fallback string
	for _, place := range places {
		start := windowStart(text, place.Start, placeWindow)
		if i, j, ok := findName(anchored, text[start:place.End]); ok && start+i < place.Start {
			return Candidate{Name: text[start+i : start+j], Source: SourceSchoolRegex}, true
		}
		if fallback != "" {
			continue
		}
		start = windowStart(text, place.Start, statuteWindow)
		if i, j, ok := findName(statute, text[start:place.End]); ok && start+i < place.Start {
			fallback = text[start+i : start+j]
		}
	}
	if fallback != "" {
		return Candidate{Name: fallback, Source: SourceStatuteRegex}, true
	}
	return Candidate{}, false
}

type orgPlace struct {
	org, place nlp.Entity
}

// pairs closes every ORG with the first PLACE that starts after it within
// orgProximity characters. ORGs left open are dropped.
func pairs(text string, orgs, places []nlp.Entity) []orgPlace {
	var out []orgPlace
	for _, org := range orgs {
		for _, place := range places {
			if place.Start < org.End {
				continue
			}
			if utf8.RuneCountInString(text[org.End:place.Start]) <= orgProximity {
				out = append(out, orgPlace{org: org, place: place})
			}
			break
		}
	}
	return out
}

// windowStart returns the byte offset n characters before pos, moved
// forward to the next word start when it lands inside a word.
func windowStart(text string, pos, n int) int {
	start := pos
	for i := 0; i < n && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	if start == 0 {
		return 0
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:start])
	if !unicode.IsLetter(prev) {
		return start
	}
	for start < pos {
		r, size := utf8.DecodeRuneInString(text[start:])
		if !unicode.IsLetter(r) {
			break
		}
		start += size
	}
	return start
}
