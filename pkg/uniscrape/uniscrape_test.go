package uniscrape

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/uniscrape/pkg/uniscrape/classify"
	"github.com/cognicore/uniscrape/pkg/uniscrape/ingest"
	"github.com/cognicore/uniscrape/pkg/uniscrape/internalerr"
	"github.com/cognicore/uniscrape/pkg/uniscrape/ledger"
	"github.com/cognicore/uniscrape/pkg/uniscrape/metrics"
	"github.com/cognicore/uniscrape/pkg/uniscrape/nlp"
	"github.com/cognicore/uniscrape/pkg/uniscrape/normalize"
	"github.com/cognicore/uniscrape/pkg/uniscrape/store"
	"github.com/cognicore/uniscrape/pkg/uniscrape/store/memstore"
)

const announcement = "Uniwersytet Techniczny w Poznaniu ogłasza konkurs na stanowisko adiunkta w dziedzinie informatyki. " +
	"Zgłoszenia należy składać do końca miesiąca w sekretariacie."

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type mapFetcher struct {
	items map[string]ingest.Item
	errs  map[string]error
	calls int
}

func (f *mapFetcher) Fetch(ctx context.Context, provenance string) (ingest.Item, error) {
	f.calls++
	if err := f.errs[provenance]; err != nil {
		return ingest.Item{}, err
	}
	it, ok := f.items[provenance]
	if !ok {
		return ingest.Item{}, internalerr.ErrNotFound
	}
	return it, nil
}

func corpus(provenances ...string) *mapFetcher {
	f := &mapFetcher{items: map[string]ingest.Item{}, errs: map[string]error{}}
	for _, p := range provenances {
		f.items[p] = ingest.Item{Provenance: p, RawText: announcement}
	}
	return f
}

// failingStore rejects records from one source.
type failingStore struct {
	*memstore.Store
	failOn string
}

func (s failingStore) Append(ctx context.Context, r store.Record) (string, error) {
	if r.Metadata.Source == s.failOn {
		return "", internalerr.ErrStoreUnavailable
	}
	return s.Store.Append(ctx, r)
}

type brokenLedger struct{ *ledger.Memory }

func (brokenLedger) Mark(string) error { return errors.New("disk full") }

type panickyEnricher struct{}

func (panickyEnricher) Enrich(context.Context, ingest.Item, normalize.Text) ingest.Enrichment {
	panic("boom")
}

func newPipeline(t *testing.T, opts ...classify.Option) *ingest.Pipeline {
	t.Helper()
	tagger, err := nlp.DefaultRuleTagger()
	if err != nil {
		t.Fatal(err)
	}
	return ingest.NewPipeline(tagger, classify.New(classify.DefaultRules(), nil, opts...),
		metrics.Engine{Scorer: metrics.FogScorer{}, Language: "pl"})
}

func newScraper(t *testing.T, st store.Store, led Ledger) *Scraper {
	t.Helper()
	return New(Options{
		Store:         st,
		Ledger:        led,
		Pipeline:      newPipeline(t, classify.WithFallback(classify.Article)),
		Logger:        quiet,
		MinTextLength: 100,
		Now:           func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) },
	})
}

func TestRunIsIdempotent(t *testing.T) {
	st := memstore.New()
	led := ledger.NewMemory()
	s := newScraper(t, st, led)
	urls := []string{"https://put.poznan.pl/a", "https://put.poznan.pl/b", "https://put.poznan.pl/regulamin"}
	f := corpus(urls...)

	sum, err := s.Run(context.Background(), urls, f)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Published != 3 || sum.Total() != 3 {
		t.Fatalf("first run = %+v", sum)
	}

	sum, err = s.Run(context.Background(), urls, f)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Skipped != 3 || sum.Published != 0 {
		t.Errorf("second run = %+v", sum)
	}
	if f.calls != 3 {
		t.Errorf("fetch calls = %d, want 3", f.calls)
	}
	if got := len(st.Records()); got != 3 {
		t.Errorf("records = %d, want 3", got)
	}
}

func TestProcessPublishesRecord(t *testing.T) {
	st := memstore.New()
	s := newScraper(t, st, nil)

	res := s.Process(context.Background(), ingest.Item{
		Provenance: "https://put.poznan.pl/studia/regulamin-studiow.pdf",
		RawText:    "  " + announcement + "\n\n\n\nStrona 1 🙂",
		IsPDF:      true,
	})
	if res.Outcome != Published || res.Err != nil || res.ID == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	md := res.Record.Metadata
	if md.Title != "regulamin studiow" {
		t.Errorf("title = %q", md.Title)
	}
	if md.Institution != "Uniwersytet Techniczny w Poznaniu" {
		t.Errorf("institution = %q", md.Institution)
	}
	if md.Type != string(classify.Statute) || md.Language != "pl" || md.Date != "2024-03-01 09:30:00" {
		t.Errorf("unexpected metadata %+v", md)
	}
	if md.Metrics == nil || md.Metrics.Words == 0 || md.Metrics.Sentences != 3 {
		t.Errorf("metrics = %+v", md.Metrics)
	}
	if res.Record.Content != announcement+"\n\nStrona 1" {
		t.Errorf("content = %q", res.Record.Content)
	}
	if len(st.Records()) != 1 {
		t.Errorf("expected one stored record")
	}
}

func TestShortTextRejectedButMarked(t *testing.T) {
	st := memstore.New()
	led := ledger.NewMemory()
	s := newScraper(t, st, led)

	res := s.Process(context.Background(), ingest.Item{Provenance: "https://uni.pl/krotki", RawText: strings.Repeat("a", 30)})
	if res.Outcome != Rejected {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	if !led.Contains("https://uni.pl/krotki") {
		t.Error("rejected item should be marked visited")
	}
	if len(st.Records()) != 0 {
		t.Error("rejected item should not be stored")
	}
}

func TestLengthGateIsExclusive(t *testing.T) {
	s := newScraper(t, memstore.New(), nil)
	res := s.Process(context.Background(), ingest.Item{Provenance: "p1", RawText: strings.Repeat("ż", 100)})
	if res.Outcome != Rejected {
		t.Errorf("100 chars: outcome = %v, want rejected", res.Outcome)
	}
	res = s.Process(context.Background(), ingest.Item{Provenance: "p2", RawText: strings.Repeat("ż", 101)})
	if res.Outcome != Published {
		t.Errorf("101 chars: outcome = %v (%v), want published", res.Outcome, res.Err)
	}
}

func TestPersistenceFailureIsIsolated(t *testing.T) {
	st := failingStore{Store: memstore.New(), failOn: "https://uni.pl/2"}
	led := ledger.NewMemory()
	s := newScraper(t, st, led)
	urls := []string{"https://uni.pl/1", "https://uni.pl/2", "https://uni.pl/3"}

	sum, err := s.Run(context.Background(), urls, corpus(urls...))
	if err != nil {
		t.Fatalf("batch should complete: %v", err)
	}
	if sum.Published != 2 || sum.Failed != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if led.Contains("https://uni.pl/2") {
		t.Error("failed item must not be marked")
	}
	if !led.Contains("https://uni.pl/1") || !led.Contains("https://uni.pl/3") {
		t.Error("published items must be marked")
	}
	sources := st.Sources()
	if len(sources) != 2 || sources[0] != "https://uni.pl/1" || sources[1] != "https://uni.pl/3" {
		t.Errorf("stored sources = %v", sources)
	}
}

func TestMirrorFailureKeepsLedgerConsistent(t *testing.T) {
	primary := memstore.New()
	mirror := failingStore{Store: memstore.New(), failOn: "https://uni.pl/1"}
	led := ledger.NewMemory()
	s := newScraper(t, store.Multi(primary, mirror), led)
	urls := []string{"https://uni.pl/1"}

	for run := 1; run <= 2; run++ {
		if _, err := s.Run(context.Background(), urls, corpus(urls...)); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
	}
	if !led.Contains("https://uni.pl/1") {
		t.Error("item held by the primary store must be marked")
	}
	if n := len(primary.Records()); n != 1 {
		t.Errorf("primary records = %d, want 1", n)
	}
	if n := len(mirror.Records()); n != 0 {
		t.Errorf("mirror records = %d, want 0", n)
	}
}

func TestClassifierErrorFailsItem(t *testing.T) {
	led := ledger.NewMemory()
	s := New(Options{Store: memstore.New(), Ledger: led, Pipeline: newPipeline(t), Logger: quiet, MinTextLength: 100})

	res := s.Process(context.Background(), ingest.Item{Provenance: "https://uni.pl/strona", RawText: announcement})
	if res.Outcome != Failed || !errors.Is(res.Err, internalerr.ErrNoClassifier) {
		t.Fatalf("unexpected result %+v", res)
	}
	if led.Contains("https://uni.pl/strona") {
		t.Error("failed item must not be marked")
	}
}

func TestPanicBecomesFailure(t *testing.T) {
	led := ledger.NewMemory()
	s := New(Options{Store: memstore.New(), Ledger: led, Pipeline: panickyEnricher{}, Logger: quiet})
	urls := []string{"https://uni.pl/1", "https://uni.pl/2"}

	sum, err := s.Run(context.Background(), urls, corpus(urls...))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Failed != 2 || led.Len() != 0 {
		t.Errorf("summary = %+v, ledger = %d", sum, led.Len())
	}
}

func TestFetchFailureNotMarked(t *testing.T) {
	led := ledger.NewMemory()
	s := newScraper(t, memstore.New(), led)
	f := corpus("https://uni.pl/ok")
	f.errs["https://uni.pl/down"] = errors.New("connection refused")

	sum, err := s.Run(context.Background(), []string{"https://uni.pl/down", "https://uni.pl/ok"}, f)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Failed != 1 || sum.Published != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if led.Contains("https://uni.pl/down") {
		t.Error("unfetched item must not be marked")
	}
}

func TestLedgerErrorKeepsOutcome(t *testing.T) {
	s := newScraper(t, memstore.New(), brokenLedger{ledger.NewMemory()})
	urls := []string{"https://uni.pl/1"}

	sum, err := s.Run(context.Background(), urls, corpus(urls...))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Published != 1 || sum.LedgerErrors != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRunStopsWhenCancelledDuringPace(t *testing.T) {
	s := newScraper(t, memstore.New(), nil)
	s.pace = time.Hour
	urls := []string{"https://uni.pl/1", "https://uni.pl/2"}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	sum, err := s.Run(ctx, urls, corpus(urls...))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if sum.Published != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{Skipped: "skipped", Published: "published", Rejected: "rejected", Failed: "failed"} {
		if o.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(o), o.String(), want)
		}
	}
}
