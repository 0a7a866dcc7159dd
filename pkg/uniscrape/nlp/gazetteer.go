package nlp

import "strings"

// GazetteerEntry is a named place with its inflected surface forms.
type GazetteerEntry struct {
	Canonical string   `yaml:"canonical"`
	Variants  []string `yaml:"variants"`
}

// Gazetteer recognizes place names, including multi-word ones, by greedy
// longest match over word tokens.
type Gazetteer struct {
	dict   map[string]string // lower-cased phrase → canonical form
	maxLen int
}

// NewGazetteer creates a gazetteer from the given entries.
func NewGazetteer(entries []GazetteerEntry) *Gazetteer {
	g := &Gazetteer{dict: make(map[string]string), maxLen: 1}
	for _, e := range entries {
		g.add(e.Canonical, e.Canonical)
		for _, v := range e.Variants {
			g.add(v, e.Canonical)
		}
	}
	return g
}

func (g *Gazetteer) add(phrase, canonical string) {
	key := phraseKey(strings.Fields(phrase))
	if key == "" {
		return
	}
	g.dict[key] = canonical
	if l := len(strings.Fields(phrase)); l > g.maxLen {
		g.maxLen = l
	}
}

// Len returns the number of known surface forms.
func (g *Gazetteer) Len() int {
	return len(g.dict)
}

// Canonical returns the canonical name for a surface form.
func (g *Gazetteer) Canonical(phrase string) (string, bool) {
	c, ok := g.dict[phraseKey(strings.Fields(phrase))]
	return c, ok
}

// Match returns PLACE entities found in tokens. A match must start with a
// capitalized word and may only span word tokens separated by plain spaces.
func (g *Gazetteer) Match(text string, tokens []Token) []Entity {
	var entities []Entity
	i := 0
	for i < len(tokens) {
		if !tokens[i].IsWord() || !IsCapitalized(tokens[i].Text) {
			i++
			continue
		}

		matchLen := 0
		maxPhrase := g.maxLen
		if remaining := len(tokens) - i; maxPhrase > remaining {
			maxPhrase = remaining
		}
		for n := maxPhrase; n >= 1; n-- {
			if !contiguousWords(text, tokens[i:i+n]) {
				continue
			}
			words := make([]string, n)
			for k := 0; k < n; k++ {
				words[k] = tokens[i+k].Text
			}
			if _, ok := g.dict[phraseKey(words)]; ok {
				matchLen = n
				break
			}
		}

		if matchLen == 0 {
			i++
			continue
		}
		first, last := tokens[i], tokens[i+matchLen-1]
		entities = append(entities, Entity{
			Label: LabelPlace,
			Text:  text[first.Start:last.End],
			Start: first.Start,
			End:   last.End,
		})
		i += matchLen
	}
	return entities
}

func contiguousWords(text string, tokens []Token) bool {
	for k, tok := range tokens {
		if !tok.IsWord() {
			return false
		}
		if k > 0 && strings.TrimLeft(text[tokens[k-1].End:tok.Start], " ") != "" {
			return false
		}
	}
	return true
}

func phraseKey(words []string) string {
	return strings.ToLower(strings.Join(words, " "))
}
