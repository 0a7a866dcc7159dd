package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cognicore/uniscrape/internal/fetch"
	"github.com/cognicore/uniscrape/internal/llm"
	"github.com/cognicore/uniscrape/pkg/uniscrape/classify"
	"github.com/cognicore/uniscrape/pkg/uniscrape/ingest"
	"github.com/cognicore/uniscrape/pkg/uniscrape/metrics"
	"github.com/cognicore/uniscrape/pkg/uniscrape/nlp"
	"github.com/cognicore/uniscrape/pkg/uniscrape/store"
	"github.com/cognicore/uniscrape/pkg/uniscrape/store/jsonl"
	"github.com/cognicore/uniscrape/pkg/uniscrape/store/sqlite"
)

// Loader builds the collaborators described by a Config.
type Loader struct {
	Config Config
	Logger *slog.Logger
	// HTTPClient is used for the LLM and remote tagger; nil selects clients
	// with the configured timeouts.
	HTTPClient *http.Client
}

// Components holds the collaborators of a run.
type Components struct {
	Tagger     nlp.Tagger
	Classifier *classify.Classifier
	Engine     metrics.Engine
	Pipeline   *ingest.Pipeline
	Fetcher    *fetch.Fetcher
	// LLM is nil when no model is configured.
	LLM *llm.Client
}

// Load builds the components.
func (l *Loader) Load() (*Components, error) {
	cfg := l.Config
	comp := &Components{}

	tagger, err := l.tagger()
	if err != nil {
		return nil, fmt.Errorf("load tagger: %w", err)
	}
	comp.Tagger = tagger

	if cfg.LLM.Enabled() {
		comp.LLM = &llm.Client{
			BaseURL:    cfg.LLM.BaseURL,
			APIKey:     cfg.APIKey(),
			Model:      cfg.LLM.Model,
			HTTPClient: l.httpClient(cfg.LLM.Timeout),
		}
	}

	rules, err := l.rules()
	if err != nil {
		return nil, fmt.Errorf("load classifier rules: %w", err)
	}
	var opts []classify.Option
	if cfg.Classifier.Fallback != "" {
		opts = append(opts, classify.WithFallback(cfg.Classifier.Fallback))
	}
	if cfg.Classifier.MaxBody > 0 {
		opts = append(opts, classify.WithMaxBody(cfg.Classifier.MaxBody))
	}
	if comp.LLM != nil {
		comp.Classifier = classify.New(rules, comp.LLM, opts...)
	} else {
		comp.Classifier = classify.New(rules, nil, opts...)
	}

	comp.Engine = metrics.Engine{Scorer: metrics.FogScorer{}, Language: cfg.Language}
	comp.Pipeline = ingest.NewPipeline(comp.Tagger, comp.Classifier, comp.Engine)

	fetchOpts := []fetch.Option{
		fetch.WithTLSVerify(cfg.VerifyTLS),
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithRetries(cfg.MaxRetries),
		fetch.WithBackoff(cfg.RetryBackoff),
	}
	if cfg.UserAgent != "" {
		fetchOpts = append(fetchOpts, fetch.WithUserAgent(cfg.UserAgent))
	}
	if l.Logger != nil {
		fetchOpts = append(fetchOpts, fetch.WithLogger(l.Logger))
	}
	comp.Fetcher = fetch.New(fetchOpts...)

	return comp, nil
}

func (l *Loader) tagger() (nlp.Tagger, error) {
	cfg := l.Config.Tagger
	if cfg.Endpoint != "" {
		return nlp.NewClient(nlp.ClientConfig{
			Endpoint:   cfg.Endpoint,
			Language:   l.Config.Language,
			HTTPClient: l.httpClient(cfg.Timeout),
		})
	}
	rc, err := nlp.LoadRuleConfig(cfg.Gazetteer, cfg.Lexicon)
	if err != nil {
		return nil, err
	}
	return nlp.NewRuleTagger(rc), nil
}

func (l *Loader) rules() (classify.Rules, error) {
	cfg := l.Config.Classifier
	switch {
	case len(cfg.Rules) > 0:
		return cfg.Rules, nil
	case cfg.RulesFile != "":
		return classify.LoadRules(cfg.RulesFile)
	default:
		return classify.DefaultRules(), nil
	}
}

func (l *Loader) httpClient(timeout time.Duration) *http.Client {
	if l.HTTPClient != nil {
		return l.HTTPClient
	}
	return &http.Client{Timeout: timeout}
}

// OpenStore opens the configured record stores: sqlite when enabled, a JSON
// lines file when output.jsonl is set. With neither, records are printed to
// stdout as JSON lines.
func (l *Loader) OpenStore(ctx context.Context, stdout io.Writer) (store.Store, error) {
	var stores []store.Store
	closeAll := func() {
		for _, s := range stores {
			s.Close()
		}
	}

	if l.Config.Database.Enabled {
		db, err := sqlite.Open(ctx, l.Config.Database.Path)
		if err != nil {
			return nil, err
		}
		stores = append(stores, db)
	}
	if path := l.Config.Output.JSONL; path != "" {
		w, err := jsonl.Create(path)
		if err != nil {
			closeAll()
			return nil, err
		}
		stores = append(stores, w)
	}

	switch len(stores) {
	case 0:
		return jsonl.New(stdout), nil
	case 1:
		return stores[0], nil
	default:
		return store.Multi(stores...), nil
	}
}
