package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cognicore/uniscrape/pkg/uniscrape/internalerr"
)

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	f := New(WithRetries(2), WithBackoff(time.Millisecond))
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if string(res.Body) != "<html><body>ok</body></html>" || res.IsPDF() {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestFetchGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(WithRetries(1), WithBackoff(time.Millisecond)).Fetch(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected StatusError 502, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestFetchNotFoundNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := New(WithRetries(3), WithBackoff(time.Millisecond)).Fetch(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("expected StatusError 404, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestFetchDecodesLegacyCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-2")
		// "Łódź" in ISO-8859-2
		w.Write([]byte("<p>\xa3\xf3d\xbc</p>"))
	}))
	defer srv.Close()

	res, err := New().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Body) != "<p>Łódź</p>" {
		t.Errorf("body = %q", res.Body)
	}
}

func TestFetchPDFUntouched(t *testing.T) {
	payload := []byte("%PDF-1.4\n\xa3\xf3")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(payload)
	}))
	defer srv.Close()

	res, err := New().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsPDF() || string(res.Body) != string(payload) {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestFetchTLSVerification(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secure"))
	}))
	defer srv.Close()

	if _, err := New(WithRetries(0)).Fetch(context.Background(), srv.URL); err != nil {
		t.Errorf("unverified fetch failed: %v", err)
	}
	if _, err := New(WithRetries(0), WithTLSVerify(true)).Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected certificate error with verification on")
	}
}

func TestFetchCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := New(WithRetries(5), WithBackoff(time.Hour)).Fetch(ctx, srv.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("backoff ignored cancellation")
	}
}

func TestFetchMalformedURLNotRetried(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := New(WithRetries(3), WithBackoff(time.Hour)).Fetch(ctx, "http://bad host/\x7f")
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}
