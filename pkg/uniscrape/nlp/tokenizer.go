package nlp

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenizer splits text into word and punctuation tokens, keeping byte
// offsets. Whitespace separates tokens and is not emitted.
type Tokenizer struct {
	// abbreviations whose trailing period does not end a sentence
	abbrevs map[string]struct{}
}

// NewTokenizer creates a tokenizer that treats the given words (without the
// period, any case) as abbreviations.
func NewTokenizer(abbrevs []string) *Tokenizer {
	set := make(map[string]struct{}, len(abbrevs))
	for _, a := range abbrevs {
		set[strings.ToLower(strings.TrimSuffix(a, "."))] = struct{}{}
	}
	return &Tokenizer{abbrevs: set}
}

// Tokenize returns the tokens of text in order. Lemma and POS are left
// empty; the tagger fills them in.
func (t *Tokenizer) Tokenize(text string) []Token {
	var tokens []Token
	start := -1

	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, Token{Text: text[start:end], Start: start, End: end})
			start = -1
		}
	}

	for i, r := range text {
		switch {
		case isWordRune(r):
			if start < 0 {
				start = i
			}
		case (r == '-' || r == '\'') && start >= 0 && nextIsWord(text, i+utf8.RuneLen(r)):
			// joiner inside a word: Bielsko-Biała, d'Arc
		case unicode.IsSpace(r):
			flush(i)
		default:
			flush(i)
			end := i + utf8.RuneLen(r)
			tokens = append(tokens, Token{Text: text[i:end], Start: i, End: end, Punct: true, POS: POSPunct})
		}
	}
	flush(len(text))

	return tokens
}

// Sentences groups tokens into sentences. A sentence ends after '.', '!' or
// '?' when the next word starts with an upper-case letter or a digit, unless
// the period closes a known abbreviation. A blank line always ends a
// sentence.
func (t *Tokenizer) Sentences(text string, tokens []Token) []Sentence {
	var sentences []Sentence
	start := 0
	for i := 0; i < len(tokens); i++ {
		end := false
		if i+1 < len(tokens) && strings.Contains(text[tokens[i].End:tokens[i+1].Start], "\n\n") {
			end = true
		}
		if isTerminal(tokens[i].Text) && i+1 < len(tokens) {
			next := tokens[i+1]
			if startsSentence(next.Text) && !(tokens[i].Text == "." && t.isAbbrevBefore(tokens, i)) {
				end = true
			}
		}
		if end {
			sentences = append(sentences, Sentence{Start: start, End: i + 1})
			start = i + 1
		}
	}
	if start < len(tokens) {
		sentences = append(sentences, Sentence{Start: start, End: len(tokens)})
	}
	return sentences
}

func (t *Tokenizer) isAbbrevBefore(tokens []Token, i int) bool {
	if i == 0 || tokens[i-1].Punct || tokens[i-1].End != tokens[i].Start {
		return false
	}
	_, ok := t.abbrevs[strings.ToLower(tokens[i-1].Text)]
	return ok
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

func nextIsWord(text string, pos int) bool {
	if pos >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return isWordRune(r)
}

func isTerminal(tok string) bool {
	return tok == "." || tok == "!" || tok == "?"
}

func startsSentence(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

// IsCapitalized reports whether s starts with an upper-case letter.
func IsCapitalized(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// isNumeric returns true if the token contains only digits.
func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
