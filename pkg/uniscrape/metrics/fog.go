package metrics

import (
	"strings"
	"unicode"
)

// FogScorer computes the Gunning fog index:
//
//	0.4 * (words/sentences + 100 * complex/words)
//
// where complex words have three or more syllables. Syllables are vowel
// groups; Polish "i" before another vowel only softens the consonant and
// does not start a syllable.
type FogScorer struct{}

// Score implements Scorer. Text without words scores 0.
func (FogScorer) Score(text, lang string) (float64, error) {
	words := 0
	complexWords := 0
	sentences := 0
	inSentence := false

	for _, field := range strings.Fields(text) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word != "" {
			words++
			inSentence = true
			if syllables(strings.ToLower(word), lang) >= 3 {
				complexWords++
			}
		}
		if inSentence && endsSentence(field) {
			sentences++
			inSentence = false
		}
	}
	if inSentence {
		sentences++
	}
	if words == 0 {
		return 0, nil
	}
	return 0.4 * (float64(words)/float64(sentences) + 100*float64(complexWords)/float64(words)), nil
}

// endsSentence reports whether field ends with '.', '!' or '?', ignoring
// closing quotes and brackets.
func endsSentence(field string) bool {
	field = strings.TrimRight(field, `"')]`)
	return strings.HasSuffix(field, ".") || strings.HasSuffix(field, "!") || strings.HasSuffix(field, "?")
}

func vowels(lang string) string {
	if lang == "pl" {
		return "aąeęioóuy"
	}
	return "aeiouy"
}

func syllables(word, lang string) int {
	set := vowels(lang)
	runes := []rune(word)
	count := 0
	prevVowel := false
	for i, r := range runes {
		isVowel := strings.ContainsRune(set, r)
		if lang == "pl" && r == 'i' && i+1 < len(runes) && strings.ContainsRune(set, runes[i+1]) {
			// "nie", "cia", "sio": the i is not a syllable of its own
			isVowel = false
		}
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	return count
}
