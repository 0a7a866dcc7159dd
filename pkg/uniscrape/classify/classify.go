// Package classify assigns one of four document types to a document.
//
// The provenance URL is matched against an ordered keyword table first. When
// no keyword fires the title and body go to a model, whose answer must be
// one of the four labels exactly.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognicore/uniscrape/pkg/uniscrape/internalerr"
)

// Label is a document type.
type Label string

const (
	Instruction Label = "Instruction"
	Article     Label = "Article"
	Statute     Label = "Statute"
	Forms       Label = "Forms"
)

// Labels lists every valid label.
var Labels = []Label{Instruction, Article, Statute, Forms}

// Valid reports whether l is one of Labels.
func (l Label) Valid() bool {
	for _, v := range Labels {
		if l == v {
			return true
		}
	}
	return false
}

// ParseLabel converts a model answer to a Label. Only exact label names are
// accepted.
func ParseLabel(s string) (Label, error) {
	l := Label(s)
	if !l.Valid() {
		return "", fmt.Errorf("%q: %w", s, internalerr.ErrInvalidLabel)
	}
	return l, nil
}

// Source tells how a Result was decided.
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceModel     Source = "model"
	SourceDefault   Source = "default"
)

// Result is a classification decision.
type Result struct {
	Label  Label
	Source Source
}

// Model classifies a document from its title and body. The answer is
// validated by the Classifier.
type Model interface {
	Classify(ctx context.Context, title, body string) (string, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, title, body string) (string, error)

// Classify implements Model.
func (f ModelFunc) Classify(ctx context.Context, title, body string) (string, error) {
	return f(ctx, title, body)
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithFallback sets the label used when no rule fires and no model is
// configured.
func WithFallback(l Label) Option {
	return func(c *Classifier) { c.fallback = l }
}

// WithMaxBody caps the number of body characters sent to the model.
func WithMaxBody(n int) Option {
	return func(c *Classifier) { c.maxBody = n }
}

// Classifier runs the keyword rules, then the model.
type Classifier struct {
	rules    Rules
	model    Model
	fallback Label
	maxBody  int
}

// New creates a classifier. model may be nil.
func New(rules Rules, model Model, opts ...Option) *Classifier {
	c := &Classifier{rules: rules, model: model, maxBody: 4000}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify decides the type of the document at url.
func (c *Classifier) Classify(ctx context.Context, url, title, body string) (Result, error) {
	if label, ok := c.rules.Match(url); ok {
		return Result{Label: label, Source: SourceHeuristic}, nil
	}

	if c.model == nil {
		if c.fallback.Valid() {
			return Result{Label: c.fallback, Source: SourceDefault}, nil
		}
		return Result{}, fmt.Errorf("classify %s: %w", url, internalerr.ErrNoClassifier)
	}

	answer, err := c.model.Classify(ctx, title, truncate(body, c.maxBody))
	if err != nil {
		return Result{}, fmt.Errorf("classify %s: %w", url, err)
	}
	label, err := ParseLabel(strings.TrimSpace(answer))
	if err != nil {
		return Result{}, fmt.Errorf("classify %s: model answered %w", url, err)
	}
	return Result{Label: label, Source: SourceModel}, nil
}

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
