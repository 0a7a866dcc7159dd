package nlp

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon maps inflected forms to lemmas and closed-class words to their
// part of speech. Open-class words the lexicon does not know are tagged by
// suffix.
//
// Expected YAML format:
//
//	lemmas:
//	  - lemma: być
//	    pos: VERB
//	    forms: [jest, są, był, była]
//	closed:
//	  ADP: [w, we, z, na, do]
//	  CCONJ: [i, oraz, lub]
//	abbreviations: [im, ul, nr, prof, dr]
type Lexicon struct {
	lemmas  map[string]string // form → lemma
	pos     map[string]string // form or lemma → POS
	abbrevs []string
}

type lexiconFile struct {
	Lemmas []struct {
		Lemma string   `yaml:"lemma"`
		POS   string   `yaml:"pos"`
		Forms []string `yaml:"forms"`
	} `yaml:"lemmas"`
	Closed        map[string][]string `yaml:"closed"`
	Abbreviations []string            `yaml:"abbreviations"`
}

// NewLexicon creates an empty lexicon.
func NewLexicon() *Lexicon {
	return &Lexicon{
		lemmas: make(map[string]string),
		pos:    make(map[string]string),
	}
}

// LoadLexicon reads a lexicon from a YAML file.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLexicon(data)
}

// ParseLexicon parses lexicon YAML.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}

	lex := NewLexicon()
	for _, e := range f.Lemmas {
		lex.AddLemma(e.Lemma, e.POS, e.Forms)
	}
	for pos, words := range f.Closed {
		for _, w := range words {
			lex.pos[strings.ToLower(w)] = strings.ToUpper(pos)
		}
	}
	lex.abbrevs = append(lex.abbrevs, f.Abbreviations...)
	return lex, nil
}

// AddLemma registers a lemma, its part of speech (may be empty) and its
// inflected forms.
func (l *Lexicon) AddLemma(lemma, pos string, forms []string) {
	lemma = strings.ToLower(lemma)
	pos = strings.ToUpper(pos)
	l.lemmas[lemma] = lemma
	for _, f := range forms {
		l.lemmas[strings.ToLower(f)] = lemma
	}
	if pos != "" {
		l.pos[lemma] = pos
		for _, f := range forms {
			l.pos[strings.ToLower(f)] = pos
		}
	}
}

// Abbreviations returns the words whose trailing period does not end a
// sentence.
func (l *Lexicon) Abbreviations() []string {
	return l.abbrevs
}

// Lemma returns the lemma of a word, or its lower-cased form when unknown.
func (l *Lexicon) Lemma(word string) string {
	lower := strings.ToLower(word)
	if lemma, ok := l.lemmas[lower]; ok {
		return lemma
	}
	return lower
}

// POS returns the part of speech of a word. sentenceStart tells whether the
// word opens a sentence; capitalized words elsewhere are proper nouns.
func (l *Lexicon) POS(word string, sentenceStart bool) string {
	lower := strings.ToLower(word)
	if pos, ok := l.pos[lower]; ok {
		return pos
	}
	if isNumeric(word) {
		return POSNum
	}
	if IsCapitalized(word) && !sentenceStart {
		return POSPropn
	}
	return guessPOS(lower)
}

var (
	verbSuffixes = []string{
		"ować", "ywać", "iwać", "ać", "eć", "ić", "yć", "uć", "ąć",
		"uje", "ują", "ujemy", "ujecie", "ujesz",
		"ają", "ejemy", "eją", "amy", "acie", "imy", "icie",
		"ał", "ała", "ało", "ali", "ały",
		"ił", "iła", "iło", "ili", "iły",
		"ył", "yła", "yło", "yli", "yły",
		"asza", "aszą",
	}
	adjSuffixes = []string{
		"owy", "owa", "owe", "owego", "owej", "owym", "owych", "owemu",
		"ski", "ska", "skie", "skiego", "skiej", "skim", "skich",
		"cki", "cka", "ckie", "ckiego", "ckiej", "ckim", "ckich",
		"ny", "nego", "nej", "nym", "nych", "nemu",
		"ący", "ąca", "ące", "ącego", "ącej", "ących",
		"alny", "alna", "alne", "iczny", "iczna", "iczne",
	}
)

func guessPOS(lower string) string {
	if len([]rune(lower)) <= 2 {
		return POSOther
	}
	for _, s := range verbSuffixes {
		if strings.HasSuffix(lower, s) {
			return POSVerb
		}
	}
	for _, s := range adjSuffixes {
		if strings.HasSuffix(lower, s) {
			return POSAdj
		}
	}
	return POSNoun
}
