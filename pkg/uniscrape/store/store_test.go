package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/uniscrape/pkg/uniscrape/metrics"
)

func TestRecordJSONShape(t *testing.T) {
	r := Record{
		Metadata: Metadata{
			Title:       "Regulamin",
			Date:        FormatDate(time.Date(2025, 3, 25, 21, 37, 35, 0, time.UTC)),
			Source:      "https://x.pl/regulamin",
			Institution: "Uniwersytet Techniczny w Poznaniu",
			Language:    "pl",
			Type:        "Statute",
			Metrics:     &metrics.Metrics{Words: 2},
		},
		Content: "Treść",
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)

	order := []string{`"metadata"`, `"title"`, `"date":"2025-03-25 21:37:35"`, `"source"`, `"institution"`, `"language"`, `"type"`, `"metrics"`, `"content"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(got, key)
		if idx < 0 {
			t.Fatalf("missing %s in %s", key, got)
		}
		if idx < last {
			t.Errorf("%s out of order in %s", key, got)
		}
		last = idx
	}
	if !strings.Contains(got, `"gunning_fog":0`) {
		t.Errorf("metrics not serialized: %s", got)
	}
}

func TestRecordNilMetrics(t *testing.T) {
	data, err := json.Marshal(Record{})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"metadata":{"title":"","date":"","source":"","institution":"","language":"","type":"","metrics":{}},"content":""}`
	if string(data) != want {
		t.Errorf("got  %s\nwant %s", data, want)
	}

	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Metadata.Metrics == nil || *back.Metadata.Metrics != (metrics.Metrics{}) {
		t.Errorf("Metrics after round trip = %+v", back.Metadata.Metrics)
	}
}

type fakeStore struct {
	id     string
	err    error
	n      int
	closed bool
}

func (f *fakeStore) Append(context.Context, Record) (string, error) {
	f.n++
	return f.id, f.err
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func TestMulti(t *testing.T) {
	a := &fakeStore{id: "a"}
	b := &fakeStore{id: "b", err: errors.New("disk full")}
	c := &fakeStore{id: "c"}
	s := Multi(a, b, c)

	id, err := s.Append(context.Background(), Record{})
	if id != "a" {
		t.Errorf("id = %q, want a", id)
	}
	var mirr *MirrorError
	if !errors.As(err, &mirr) || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("err = %v, want *MirrorError", err)
	}
	if a.n != 1 || b.n != 1 || c.n != 1 {
		t.Errorf("append counts = %d %d %d", a.n, b.n, c.n)
	}
	if err := s.Close(); err != nil || !a.closed || !c.closed {
		t.Errorf("Close: %v", err)
	}
}

func TestMultiPrimaryFailureStopsMirrors(t *testing.T) {
	a := &fakeStore{id: "a", err: errors.New("locked")}
	b := &fakeStore{id: "b"}
	s := Multi(a, b)

	id, err := s.Append(context.Background(), Record{})
	if id != "" || err == nil {
		t.Fatalf("Append = %q, %v; want error", id, err)
	}
	var mirr *MirrorError
	if errors.As(err, &mirr) {
		t.Errorf("primary failure reported as mirror error: %v", err)
	}
	if b.n != 0 {
		t.Errorf("mirror appended %d records after primary failure", b.n)
	}
}

func TestIDsMonotonic(t *testing.T) {
	g := NewIDs()
	now := time.Now()
	prev := ""
	for i := 0; i < 100; i++ {
		id := g.New(now)
		if len(id) != 26 {
			t.Fatalf("unexpected ULID %q", id)
		}
		if id <= prev {
			t.Fatalf("IDs not increasing: %q after %q", id, prev)
		}
		prev = id
	}
}
