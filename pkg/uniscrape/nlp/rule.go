package nlp

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/gazetteer.yaml
var defaultGazetteer []byte

//go:embed defaults/lexicon.yaml
var defaultLexicon []byte

// RuleConfig holds the resources of a RuleTagger.
type RuleConfig struct {
	Gazetteer *Gazetteer
	Lexicon   *Lexicon
	// OrgKeywords are lower-case prefixes of words that open an
	// organization name ("uniwersytet", "szkoł").
	OrgKeywords []string
}

type gazetteerFile struct {
	Places      []GazetteerEntry `yaml:"places"`
	OrgKeywords []string         `yaml:"org_keywords"`
}

// ParseRuleConfig builds a RuleConfig from gazetteer and lexicon YAML.
func ParseRuleConfig(gazetteerData, lexiconData []byte) (RuleConfig, error) {
	var gf gazetteerFile
	if err := yaml.Unmarshal(gazetteerData, &gf); err != nil {
		return RuleConfig{}, fmt.Errorf("parse gazetteer: %w", err)
	}
	lex, err := ParseLexicon(lexiconData)
	if err != nil {
		return RuleConfig{}, err
	}
	keywords := make([]string, 0, len(gf.OrgKeywords))
	for _, k := range gf.OrgKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	return RuleConfig{
		Gazetteer:   NewGazetteer(gf.Places),
		Lexicon:     lex,
		OrgKeywords: keywords,
	}, nil
}

// LoadRuleConfig reads gazetteer and lexicon files. An empty path selects
// the built-in resource.
func LoadRuleConfig(gazetteerPath, lexiconPath string) (RuleConfig, error) {
	gazData, lexData := defaultGazetteer, defaultLexicon
	if gazetteerPath != "" {
		data, err := os.ReadFile(gazetteerPath)
		if err != nil {
			return RuleConfig{}, fmt.Errorf("read gazetteer: %w", err)
		}
		gazData = data
	}
	if lexiconPath != "" {
		data, err := os.ReadFile(lexiconPath)
		if err != nil {
			return RuleConfig{}, fmt.Errorf("read lexicon: %w", err)
		}
		lexData = data
	}
	return ParseRuleConfig(gazData, lexData)
}

// RuleTagger is a deterministic, dependency-free Tagger for Polish text.
// PLACE entities come from the gazetteer; ORG entities are spans that open
// with an organization keyword and run over capitalized words, a few
// connectors ("im.", "nr 5") and an optional trailing "w <PLACE>".
type RuleTagger struct {
	tok         *Tokenizer
	gaz         *Gazetteer
	lex         *Lexicon
	orgKeywords []string
}

// NewRuleTagger creates a tagger. Nil resources are replaced by empty ones.
func NewRuleTagger(cfg RuleConfig) *RuleTagger {
	gaz := cfg.Gazetteer
	if gaz == nil {
		gaz = NewGazetteer(nil)
	}
	lex := cfg.Lexicon
	if lex == nil {
		lex = NewLexicon()
	}
	return &RuleTagger{
		tok:         NewTokenizer(lex.Abbreviations()),
		gaz:         gaz,
		lex:         lex,
		orgKeywords: cfg.OrgKeywords,
	}
}

// DefaultRuleTagger creates a tagger from the built-in resources.
func DefaultRuleTagger() (*RuleTagger, error) {
	cfg, err := ParseRuleConfig(defaultGazetteer, defaultLexicon)
	if err != nil {
		return nil, err
	}
	return NewRuleTagger(cfg), nil
}

// Tag implements Tagger.
func (r *RuleTagger) Tag(ctx context.Context, text string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}

	tokens := r.tok.Tokenize(text)
	sentences := r.tok.Sentences(text, tokens)
	for _, s := range sentences {
		first := true
		for i := s.Start; i < s.End; i++ {
			tok := &tokens[i]
			if tok.Punct {
				tok.Lemma = tok.Text
				continue
			}
			tok.Lemma = r.lex.Lemma(tok.Text)
			tok.POS = r.lex.POS(tok.Text, first)
			first = false
		}
	}

	places := r.gaz.Match(text, tokens)
	entities := append(places, r.orgs(text, tokens, places)...)
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Start < entities[j].Start
	})

	return Analysis{Tokens: tokens, Sentences: sentences, Entities: entities}, nil
}

// connectors that may sit inside an organization name
var orgConnectors = map[string]bool{
	"im": true, "imienia": true, "nr": true, "i": true, "ds": true,
}

func (r *RuleTagger) orgs(text string, tokens []Token, places []Entity) []Entity {
	placeAt := make(map[int]Entity, len(places))
	for _, p := range places {
		placeAt[p.Start] = p
	}

	var out []Entity
	i := 0
	for i < len(tokens) {
		var body int
		switch {
		case r.isOrgKeyword(tokens[i]):
			body = i + 1
		case isRoman(tokens[i].Text) && i+1 < len(tokens) && r.isOrgKeyword(tokens[i+1]):
			body = i + 2
		default:
			i++
			continue
		}

		end := r.extendOrg(text, tokens, body, placeAt)
		if end-i < 2 {
			i++
			continue
		}
		start, stop := tokens[i].Start, tokens[end-1].End
		out = append(out, Entity{Label: LabelOrg, Text: text[start:stop], Start: start, End: stop})
		i = end
	}
	return out
}

// extendOrg returns the exclusive token index where the organization span
// that continues at token j ends.
func (r *RuleTagger) extendOrg(text string, tokens []Token, j int, placeAt map[int]Entity) int {
	last := j
	for j < len(tokens) {
		tok, prev := tokens[j], tokens[j-1]
		if strings.Contains(text[prev.End:tok.Start], "\n") {
			break
		}
		lower := strings.ToLower(tok.Text)
		prevLower := strings.ToLower(prev.Text)
		switch {
		case tok.IsWord() && (lower == "w" || lower == "we"):
			if j+1 < len(tokens) {
				if p, ok := placeAt[tokens[j+1].Start]; ok {
					k := j + 1
					for k+1 < len(tokens) && tokens[k+1].End <= p.End {
						k++
					}
					return k + 1
				}
			}
			return last
		case tok.IsWord() && IsCapitalized(tok.Text):
			j++
			last = j
		case tok.IsWord() && isNumeric(tok.Text) && prevLower == "nr":
			j++
			last = j
		case tok.IsWord() && orgConnectors[lower]:
			j++
		case tok.Text == "." && (prevLower == "im" || prevLower == "nr"):
			j++
		default:
			return last
		}
	}
	return last
}

func (r *RuleTagger) isOrgKeyword(tok Token) bool {
	if !tok.IsWord() || !IsCapitalized(tok.Text) {
		return false
	}
	lower := strings.ToLower(tok.Text)
	for _, k := range r.orgKeywords {
		if strings.HasPrefix(lower, k) {
			return true
		}
	}
	return false
}

func isRoman(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("IVXLC", r) {
			return false
		}
	}
	return true
}
