// Package fetch downloads documents over HTTP with bounded retries.
package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/cognicore/uniscrape/pkg/uniscrape/internalerr"
)

// maxBody caps a download at 50MB.
const maxBody = 50 << 20

// Result is a successful download.
type Result struct {
	URL         string
	StatusCode  int
	ContentType string
	// Body is UTF-8 for HTML and text responses, raw bytes otherwise.
	Body []byte
}

// IsPDF reports whether the response is a PDF document.
func (r *Result) IsPDF() bool {
	mt, _, _ := mime.ParseMediaType(r.ContentType)
	return mt == "application/pdf"
}

// StatusError is returned for non-2xx responses once retries are spent.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

// Fetcher performs GET requests.
type Fetcher struct {
	client  *http.Client
	ua      string
	retries int
	backoff time.Duration
	logger  *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets a custom HTTP client. It overrides WithTLSVerify and
// WithTimeout.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.ua = ua }
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(n int) Option {
	return func(f *Fetcher) { f.retries = n }
}

// WithBackoff sets the base delay between retries. The n-th retry waits
// backoff * 2^(n-1).
func WithBackoff(d time.Duration) Option {
	return func(f *Fetcher) { f.backoff = d }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithTLSVerify turns certificate verification on or off. Many institution
// sites serve broken chains, so it is off by default.
func WithTLSVerify(verify bool) Option {
	return func(f *Fetcher) {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: !verify}
		f.client = &http.Client{Timeout: f.client.Timeout, Transport: tr}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// New creates a Fetcher with sensible defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{Timeout: 10 * time.Second},
		ua:      "Mozilla/5.0 (compatible; uniscrape/1.0)",
		retries: 2,
		backoff: 3 * time.Second,
		logger:  slog.Default(),
	}
	WithTLSVerify(false)(f)
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch GETs url. Network errors, 429 and 5xx responses are retried; other
// non-2xx responses fail at once with a *StatusError. A url that cannot form
// a request fails at once with internalerr.ErrInvalidInput.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			delay := f.backoff << (attempt - 1)
			f.logger.Debug("fetch: retry", "url", url, "attempt", attempt, "delay", delay, "error", lastErr)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		res, err := f.get(ctx, url)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (f *Fetcher) get(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: new request: %w: %w", internalerr.ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pl,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", url, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	if isText(contentType) {
		body = toUTF8(body, contentType)
	}

	f.logger.Debug("fetch: fetched", "url", url, "status", resp.StatusCode, "size", len(body), "type", contentType)
	return &Result{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

func retryable(err error) bool {
	if errors.Is(err, internalerr.ErrInvalidInput) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return true
}

func isText(contentType string) bool {
	mt, _, _ := mime.ParseMediaType(contentType)
	return strings.HasPrefix(mt, "text/") || mt == "application/xhtml+xml"
}

// toUTF8 decodes legacy encodings (ISO-8859-2, windows-1250) using the
// Content-Type header and <meta charset>. Undecodable bodies are returned
// unchanged.
func toUTF8(body []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return out
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
