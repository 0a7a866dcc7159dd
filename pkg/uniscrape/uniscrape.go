// Package uniscrape turns fetched institutional documents into deduplicated
// records: normalized text, title, owning institution, document type and
// readability metrics.
//
// A Scraper processes items strictly one at a time. Each item ends in one of
// four outcomes; Published and Rejected items are marked in the visited
// ledger, Failed items are not and are retried on the next run.
package uniscrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/cognicore/uniscrape/pkg/uniscrape/ingest"
	"github.com/cognicore/uniscrape/pkg/uniscrape/ledger"
	"github.com/cognicore/uniscrape/pkg/uniscrape/normalize"
	"github.com/cognicore/uniscrape/pkg/uniscrape/store"
)

// Fetcher supplies the raw text of the item at provenance.
type Fetcher interface {
	Fetch(ctx context.Context, provenance string) (ingest.Item, error)
}

// Ledger is the set of provenances that reached a terminal outcome.
type Ledger interface {
	Contains(provenance string) bool
	Mark(provenance string) error
}

// Enricher derives metadata from normalized text.
type Enricher interface {
	Enrich(ctx context.Context, item ingest.Item, text normalize.Text) ingest.Enrichment
}

// Cleaner rewrites a chunk of PDF-derived text as Markdown.
type Cleaner interface {
	CleanToMarkdown(ctx context.Context, chunk string) (string, error)
}

// Outcome is the terminal state of an item.
type Outcome int

const (
	Skipped Outcome = iota
	Published
	Rejected
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Published:
		return "published"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result reports what happened to one item.
type Result struct {
	Provenance string
	Outcome    Outcome
	// Record and ID are set for Published items.
	Record *store.Record
	ID     string
	// Err is the cause of a Failed outcome.
	Err error
	// LedgerErr is set when the terminal outcome could not be recorded.
	LedgerErr error
}

// Summary counts the outcomes of a run.
type Summary struct {
	Published    int
	Rejected     int
	Failed       int
	Skipped      int
	LedgerErrors int
}

// Total returns the number of items seen.
func (s Summary) Total() int {
	return s.Published + s.Rejected + s.Failed + s.Skipped
}

func (s *Summary) add(r Result) {
	switch r.Outcome {
	case Published:
		s.Published++
	case Rejected:
		s.Rejected++
	case Failed:
		s.Failed++
	case Skipped:
		s.Skipped++
	}
	if r.LedgerErr != nil {
		s.LedgerErrors++
	}
}

// Options configures a Scraper. Store and Pipeline are required.
type Options struct {
	Store    store.Store
	Pipeline Enricher
	// Ledger defaults to an in-memory ledger.
	Ledger Ledger
	// Cleaner, when set, rewrites PDF-derived text before normalization.
	Cleaner   Cleaner
	ChunkSize int

	// Logger is the machine-readable tool log, Console the operator log.
	Logger  *slog.Logger
	Console *slog.Logger

	// MinTextLength is the number of characters a body must exceed to be
	// published.
	MinTextLength int
	Language      string
	// Pace is the pause after each fetched item.
	Pace time.Duration
	Now  func() time.Time
}

// Scraper runs the per-item pipeline.
type Scraper struct {
	store     store.Store
	pipeline  Enricher
	ledger    Ledger
	cleaner   Cleaner
	chunkSize int
	logger    *slog.Logger
	console   *slog.Logger
	minLen    int
	language  string
	pace      time.Duration
	now       func() time.Time
}

// New creates a Scraper with the given dependencies.
func New(opts Options) *Scraper {
	s := &Scraper{
		store:     opts.Store,
		pipeline:  opts.Pipeline,
		ledger:    opts.Ledger,
		cleaner:   opts.Cleaner,
		chunkSize: opts.ChunkSize,
		logger:    opts.Logger,
		console:   opts.Console,
		minLen:    opts.MinTextLength,
		language:  opts.Language,
		pace:      opts.Pace,
		now:       opts.Now,
	}
	if s.ledger == nil {
		s.ledger = ledger.NewMemory()
	}
	if s.chunkSize <= 0 {
		s.chunkSize = 4000
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.console == nil {
		s.console = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.language == "" {
		s.language = "pl"
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Close closes the store.
func (s *Scraper) Close() error {
	return s.store.Close()
}

// Run fetches and processes every provenance in order. Provenances already
// in the ledger are skipped without fetching. Item failures are counted,
// never returned; Run only returns early when ctx is done.
func (s *Scraper) Run(ctx context.Context, provenances []string, f Fetcher) (Summary, error) {
	var sum Summary
	for i, p := range provenances {
		if err := ctx.Err(); err != nil {
			s.logSummary(sum)
			return sum, err
		}

		if s.ledger.Contains(p) {
			res := Result{Provenance: p, Outcome: Skipped}
			s.report(res)
			sum.add(res)
			continue
		}

		var res Result
		item, err := s.fetch(ctx, f, p)
		if err != nil {
			res = Result{Provenance: p, Outcome: Failed, Err: fmt.Errorf("fetch: %w", err)}
			s.report(res)
		} else {
			res = s.Process(ctx, item)
		}
		sum.add(res)

		if i < len(provenances)-1 {
			if err := sleep(ctx, s.pace); err != nil {
				s.logSummary(sum)
				return sum, err
			}
		}
	}
	s.logSummary(sum)
	return sum, nil
}

func (s *Scraper) fetch(ctx context.Context, f Fetcher, provenance string) (item ingest.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	item, err = f.Fetch(ctx, provenance)
	if err != nil {
		return ingest.Item{}, err
	}
	if item.Provenance == "" {
		item.Provenance = provenance
	}
	return item, nil
}

// Process runs one fetched item through normalization, enrichment and
// publication, then records the outcome in the ledger.
func (s *Scraper) Process(ctx context.Context, item ingest.Item) (res Result) {
	res.Provenance = item.Provenance
	defer func() {
		if r := recover(); r != nil {
			res = Result{Provenance: item.Provenance, Outcome: Failed, Err: fmt.Errorf("panic: %v", r)}
		}
		s.report(res)
	}()

	if err := item.Validate(); err != nil {
		res.Outcome, res.Err = Failed, err
		return res
	}
	if s.ledger.Contains(item.Provenance) {
		res.Outcome = Skipped
		return res
	}

	res = s.process(ctx, item)
	if res.Outcome == Published || res.Outcome == Rejected {
		if err := s.ledger.Mark(item.Provenance); err != nil {
			res.LedgerErr = err
		}
	}
	return res
}

func (s *Scraper) process(ctx context.Context, item ingest.Item) Result {
	res := Result{Provenance: item.Provenance}
	log := s.logger.With("provenance", item.Provenance)

	raw := item.RawText
	if item.IsPDF && s.cleaner != nil {
		cleaned, err := s.cleanup(ctx, raw)
		if err != nil {
			log.Warn("markdown cleanup failed, keeping extracted text", "error", err)
		}
		raw = cleaned
	}

	text := normalize.Normalize(raw)
	if n := utf8.RuneCountInString(text.Body); n <= s.minLen {
		log.Info("text too short", "chars", n, "min", s.minLen)
		res.Outcome = Rejected
		return res
	}

	enr := s.pipeline.Enrich(ctx, item, text)
	for _, err := range enr.Errs {
		log.Warn("enrichment degraded", "error", err)
	}
	if enr.Institution == "" {
		log.Debug("no institution found")
	}
	if enr.ClassErr != nil {
		res.Outcome, res.Err = Failed, fmt.Errorf("classify: %w", enr.ClassErr)
		return res
	}

	rec := store.Record{
		Metadata: store.Metadata{
			Title:       enr.Title,
			Date:        store.FormatDate(s.now()),
			Source:      item.Provenance,
			Institution: enr.Institution,
			Language:    s.language,
			Type:        string(enr.Class.Label),
			Metrics:     enr.Metrics,
		},
		Content: text.Body,
	}
	id, err := s.store.Append(ctx, rec)
	var mirr *store.MirrorError
	switch {
	case errors.As(err, &mirr):
		log.Warn("mirror store failed", "error", err)
	case err != nil:
		res.Outcome, res.Err = Failed, fmt.Errorf("persist: %w", err)
		return res
	}

	log.Debug("published", "id", id, "type", rec.Metadata.Type, "class_source", enr.Class.Source,
		"institution", enr.Institution, "institution_source", enr.InstitutionSource)
	res.Outcome, res.Record, res.ID = Published, &rec, id
	return res
}

// report writes the tool log entry for failures and one console line per
// outcome.
func (s *Scraper) report(res Result) {
	if res.Err != nil {
		s.logger.Error("item failed", "provenance", res.Provenance, "error", res.Err)
	}
	if res.LedgerErr != nil {
		s.logger.Error("ledger write failed", "provenance", res.Provenance, "outcome", res.Outcome.String(), "error", res.LedgerErr)
	}

	switch res.Outcome {
	case Published:
		s.console.Info("published", "source", res.Provenance, "type", res.Record.Metadata.Type,
			"institution", res.Record.Metadata.Institution)
	case Failed:
		s.console.Info("failed", "source", res.Provenance, "error", res.Err)
	default:
		s.console.Info(res.Outcome.String(), "source", res.Provenance)
	}
}

func (s *Scraper) logSummary(sum Summary) {
	s.console.Info("scraped documents", "published", sum.Published, "rejected", sum.Rejected,
		"failed", sum.Failed, "skipped", sum.Skipped)
	s.logger.Info("run finished", "published", sum.Published, "rejected", sum.Rejected,
		"failed", sum.Failed, "skipped", sum.Skipped, "ledger_errors", sum.LedgerErrors)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
