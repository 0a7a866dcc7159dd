package classify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/uniscrape/pkg/uniscrape/internalerr"
)

// Rule assigns Label to every provenance URL that contains one of Keywords.
type Rule struct {
	Label    Label    `yaml:"type"`
	Keywords []string `yaml:"keywords"`
}

// Rules is an ordered keyword table. The first rule with a matching keyword
// wins.
type Rules []Rule

// DefaultRules returns the built-in Polish URL vocabulary.
func DefaultRules() Rules {
	return Rules{
		{Label: Instruction, Keywords: []string{"instrukcja", "instrukcje", "poradnik", "przewodnik", "faq", "pomoc"}},
		{Label: Article, Keywords: []string{"aktualnosci", "aktualności", "artykul", "artykuł", "news", "wydarzenia", "blog", "komunikat"}},
		{Label: Statute, Keywords: []string{"regulamin", "statut", "zarzadzenie", "zarządzenie", "uchwala", "uchwała", "ustawa", "rozporzadzenie"}},
		{Label: Forms, Keywords: []string{"formularz", "wniosek", "druk", "zalacznik", "załącznik", "deklaracja", "podanie"}},
	}
}

// LoadRules reads an ordered rule list from a YAML file:
//
//	- type: Statute
//	  keywords: [regulamin, statut]
//	- type: Forms
//	  keywords: [formularz]
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Validate checks that every rule names a known label.
func (rs Rules) Validate() error {
	for i, r := range rs {
		if !r.Label.Valid() {
			return fmt.Errorf("rule %d: %q: %w", i, r.Label, internalerr.ErrInvalidLabel)
		}
	}
	return nil
}

// Match returns the label of the first rule with a keyword contained in
// url. Matching is case-insensitive.
func (rs Rules) Match(url string) (Label, bool) {
	lower := strings.ToLower(url)
	for _, r := range rs {
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(lower, kw) {
				return r.Label, true
			}
		}
	}
	return "", false
}
