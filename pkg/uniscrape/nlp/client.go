package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
	"unicode/utf8"
)

// ClientConfig configures a remote tagging service.
type ClientConfig struct {
	// Endpoint receives POST {"text": ..., "language": ...}.
	Endpoint   string
	Language   string
	HTTPClient *http.Client
}

// Client is a Tagger backed by an HTTP tagging service (spaCy-style
// output). The service reports character offsets; Client converts them to
// byte offsets.
type Client struct {
	endpoint string
	language string
	http     *http.Client
}

// NewClient creates a remote tagger.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("nlp: endpoint required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{endpoint: cfg.Endpoint, language: cfg.Language, http: hc}, nil
}

type tagRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type tagResponse struct {
	Tokens []struct {
		Text    string `json:"text"`
		Lemma   string `json:"lemma"`
		POS     string `json:"pos"`
		Start   int    `json:"start"`
		End     int    `json:"end"`
		IsPunct bool   `json:"is_punct"`
		IsSpace bool   `json:"is_space"`
	} `json:"tokens"`
	Sentences []struct {
		Start int `json:"start"`
		End   int `json:"end"`
	} `json:"sentences"`
	Entities []struct {
		Label string `json:"label"`
		Text  string `json:"text"`
		Start int    `json:"start"`
		End   int    `json:"end"`
	} `json:"entities"`
}

// Tag implements Tagger.
func (c *Client) Tag(ctx context.Context, text string) (Analysis, error) {
	body, err := json.Marshal(tagRequest{Text: text, Language: c.language})
	if err != nil {
		return Analysis{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Analysis{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Analysis{}, fmt.Errorf("nlp: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Analysis{}, fmt.Errorf("nlp: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var payload tagResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Analysis{}, fmt.Errorf("nlp: decode response: %w", err)
	}
	return convert(text, payload)
}

func convert(text string, payload tagResponse) (Analysis, error) {
	offsets := byteOffsets(text)
	toByte := func(start, end int) (int, int, error) {
		if start < 0 || end < start || end >= len(offsets) {
			return 0, 0, fmt.Errorf("nlp: span [%d,%d) out of range", start, end)
		}
		return offsets[start], offsets[end], nil
	}

	var a Analysis
	for _, t := range payload.Tokens {
		start, end, err := toByte(t.Start, t.End)
		if err != nil {
			return Analysis{}, err
		}
		a.Tokens = append(a.Tokens, Token{
			Text:  text[start:end],
			Lemma: t.Lemma,
			POS:   t.POS,
			Start: start,
			End:   end,
			Punct: t.IsPunct,
			Space: t.IsSpace,
		})
	}
	for _, s := range payload.Sentences {
		if s.Start < 0 || s.End < s.Start || s.End > len(a.Tokens) {
			return Analysis{}, fmt.Errorf("nlp: sentence [%d,%d) out of range", s.Start, s.End)
		}
		a.Sentences = append(a.Sentences, Sentence{Start: s.Start, End: s.End})
	}
	for _, e := range payload.Entities {
		start, end, err := toByte(e.Start, e.End)
		if err != nil {
			return Analysis{}, err
		}
		a.Entities = append(a.Entities, Entity{
			Label: mapLabel(e.Label),
			Text:  text[start:end],
			Start: start,
			End:   end,
		})
	}
	sort.SliceStable(a.Entities, func(i, j int) bool {
		return a.Entities[i].Start < a.Entities[j].Start
	})
	return a, nil
}

// byteOffsets maps every character index of text, plus the end position,
// to its byte offset.
func byteOffsets(text string) []int {
	offsets := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}

// mapLabel folds the label sets of common Polish NER models into the
// pipeline's labels.
func mapLabel(label string) Label {
	switch label {
	case "placeName", "geogName", "GPE", "LOC", "PLACE":
		return LabelPlace
	case "orgName", "ORG":
		return LabelOrg
	default:
		return LabelOther
	}
}
