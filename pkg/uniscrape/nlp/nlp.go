// Package nlp defines the tagging contract consumed by the extraction and
// metrics stages, plus two implementations: a rule-based tagger built from a
// tokenizer, a place gazetteer and a lemma lexicon, and an HTTP client for a
// remote tagging service.
//
// All offsets are byte offsets into the tagged text.
package nlp

import "context"

// Label is a named-entity class.
type Label string

const (
	LabelPlace Label = "PLACE"
	LabelOrg   Label = "ORG"
	LabelOther Label = "OTHER"
)

// Entity is a labeled span of the tagged text.
type Entity struct {
	Label Label
	Text  string
	Start int
	End   int
}

// Part-of-speech tags, Universal Dependencies names.
const (
	POSNoun  = "NOUN"
	POSPropn = "PROPN"
	POSVerb  = "VERB"
	POSAdj   = "ADJ"
	POSAdp   = "ADP"
	POSConj  = "CCONJ"
	POSPron  = "PRON"
	POSPart  = "PART"
	POSNum   = "NUM"
	POSPunct = "PUNCT"
	POSSpace = "SPACE"
	POSOther = "X"
)

// Token is one tagged token.
type Token struct {
	Text  string
	Lemma string
	POS   string
	Start int
	End   int
	Punct bool
	Space bool
}

// IsWord reports whether the token counts as a word (not punctuation, not
// whitespace).
func (t Token) IsWord() bool {
	return !t.Punct && !t.Space
}

// Sentence is a half-open range of token indexes [Start, End).
type Sentence struct {
	Start int
	End   int
}

// Len returns the number of tokens in the sentence.
func (s Sentence) Len() int {
	return s.End - s.Start
}

// Analysis is everything a tagger reports for one text.
type Analysis struct {
	Tokens    []Token
	Sentences []Sentence
	Entities  []Entity
}

// Tagger tags text in the configured document language. Implementations
// must be deterministic for identical input.
type Tagger interface {
	Tag(ctx context.Context, text string) (Analysis, error)
}
