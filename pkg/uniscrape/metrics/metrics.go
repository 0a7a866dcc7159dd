// Package metrics computes lexical and readability statistics of a
// document from its tagged tokens.
package metrics

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/cognicore/uniscrape/pkg/uniscrape/nlp"
)

// Metrics are the statistics stored with every record. Floating values are
// rounded to four decimal places.
type Metrics struct {
	Characters        int     `json:"characters"`
	Words             int     `json:"words"`
	Sentences         int     `json:"sentences"`
	Nouns             int     `json:"nouns"`
	Verbs             int     `json:"verbs"`
	Adjectives        int     `json:"adjectives"`
	AvgWordLength     float64 `json:"avg_word_length"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
	LexicalDensity    float64 `json:"lexical_density"`
	GunningFog        float64 `json:"gunning_fog"`
}

// Compute aggregates tokens and sentences of raw. Punctuation and space
// tokens are not words. Sentence length counts every token. GunningFog is
// left at zero; see Engine.
func Compute(tokens []nlp.Token, sentences []nlp.Sentence, raw string) Metrics {
	m := Metrics{
		Characters: utf8.RuneCountInString(raw),
		Sentences:  len(sentences),
	}

	lemmas := make(map[string]struct{})
	letters := 0
	for _, tok := range tokens {
		if !tok.IsWord() {
			continue
		}
		m.Words++
		letters += utf8.RuneCountInString(tok.Text)
		lemma := tok.Lemma
		if lemma == "" {
			lemma = tok.Text
		}
		lemmas[lemma] = struct{}{}

		switch tok.POS {
		case nlp.POSNoun:
			m.Nouns++
		case nlp.POSVerb:
			m.Verbs++
		case nlp.POSAdj:
			m.Adjectives++
		}
	}

	sentenceTokens := 0
	for _, s := range sentences {
		sentenceTokens += s.Len()
	}

	m.AvgWordLength = Round(ratio(letters, m.Words))
	m.AvgSentenceLength = Round(ratio(sentenceTokens, m.Sentences))
	m.LexicalDensity = Round(ratio(len(lemmas), m.Words))
	return m
}

// Scorer computes a readability index of text written in lang.
type Scorer interface {
	Score(text, lang string) (float64, error)
}

// Engine combines Compute with a readability Scorer.
type Engine struct {
	Scorer   Scorer
	Language string
}

// Compute is the package-level Compute plus GunningFog, which is only
// scored when the text has at least one word. A scorer error is returned
// with the counts intact and GunningFog left at 0.
func (e Engine) Compute(tokens []nlp.Token, sentences []nlp.Sentence, raw string) (Metrics, error) {
	m := Compute(tokens, sentences, raw)
	if m.Words == 0 || e.Scorer == nil {
		return m, nil
	}
	fog, err := e.Scorer.Score(raw, e.Language)
	if err != nil {
		return m, fmt.Errorf("readability: %w", err)
	}
	m.GunningFog = Round(fog)
	return m, nil
}

// Round rounds x to four decimal places.
func Round(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
