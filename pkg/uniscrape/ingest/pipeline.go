package ingest

import (
	"context"
	"fmt"

	"github.com/cognicore/uniscrape/pkg/uniscrape/classify"
	"github.com/cognicore/uniscrape/pkg/uniscrape/institution"
	"github.com/cognicore/uniscrape/pkg/uniscrape/metrics"
	"github.com/cognicore/uniscrape/pkg/uniscrape/nlp"
	"github.com/cognicore/uniscrape/pkg/uniscrape/normalize"
)

// Classifier decides the document type.
type Classifier interface {
	Classify(ctx context.Context, url, title, body string) (classify.Result, error)
}

// Pipeline runs the analysis stages over normalized text:
// tagging → {institution, metrics} and classification.
type Pipeline struct {
	tagger     nlp.Tagger
	classifier Classifier
	engine     metrics.Engine
}

// NewPipeline creates an enrichment pipeline with the given components.
func NewPipeline(tagger nlp.Tagger, classifier Classifier, engine metrics.Engine) *Pipeline {
	return &Pipeline{
		tagger:     tagger,
		classifier: classifier,
		engine:     engine,
	}
}

// Enrichment is the metadata derived from one document.
type Enrichment struct {
	Title             string
	Institution       string // empty when none was found
	InstitutionSource institution.Source
	Class             classify.Result
	// Metrics is nil when tagging failed. A scoring failure leaves
	// GunningFog at 0.
	Metrics *metrics.Metrics

	// ClassErr is the classifier failure. It is the only error that keeps
	// the document from being published.
	ClassErr error
	// Errs are degradations of single fields.
	Errs []error
}

// Enrich tags text once and runs the extractor, the metrics engine and the
// classifier. A failure in one stage does not stop the others.
func (p *Pipeline) Enrich(ctx context.Context, item Item, text normalize.Text) Enrichment {
	e := Enrichment{Title: item.DisplayTitle()}

	analysis, err := p.tagger.Tag(ctx, text.Body)
	if err != nil {
		e.Errs = append(e.Errs, fmt.Errorf("tag: %w", err))
	} else {
		if c, ok := institution.Extract(text.Body, analysis.Entities); ok {
			e.Institution = c.Name
			e.InstitutionSource = c.Source
		}
		m, err := p.engine.Compute(analysis.Tokens, analysis.Sentences, text.Body)
		if err != nil {
			e.Errs = append(e.Errs, fmt.Errorf("metrics: %w", err))
		}
		e.Metrics = &m
	}

	e.Class, e.ClassErr = p.classifier.Classify(ctx, item.Provenance, e.Title, text.Body)
	return e
}
