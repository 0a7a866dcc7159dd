package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/cognicore/uniscrape/pkg/uniscrape/internalerr"
)

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func testClient(rt roundTrip) *Client {
	return &Client{
		BaseURL:    "https://api.test/v1/chat/completions",
		Model:      "gpt-test",
		APIKey:     "secret",
		HTTPClient: &http.Client{Transport: rt},
	}
}

func TestClassifySchema(t *testing.T) {
	client := testClient(func(req *http.Request) *http.Response {
		if req.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		var body chatRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.ResponseFormat == nil || body.ResponseFormat.Type != "json_schema" {
			t.Fatalf("expected json_schema response format, got %+v", body.ResponseFormat)
		}
		props := body.ResponseFormat.JSONSchema.Schema["properties"].(map[string]any)
		enum := props["type"].(map[string]any)["enum"].([]any)
		if len(enum) != 4 {
			t.Errorf("enum = %v", enum)
		}
		if !strings.Contains(body.Messages[1].Content, "Title: Regulamin") {
			t.Errorf("user message = %q", body.Messages[1].Content)
		}
		return respond(200, `{"choices":[{"message":{"role":"assistant","content":"{\"type\":\"Statute\"}"}}]}`)
	})

	got, err := client.Classify(context.Background(), "Regulamin", "Treść")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != "Statute" {
		t.Errorf("got %q", got)
	}
}

func TestClassifyOutOfEnum(t *testing.T) {
	client := testClient(func(*http.Request) *http.Response {
		return respond(200, `{"choices":[{"message":{"content":"{\"type\":\"Memo\"}"}}]}`)
	})
	if _, err := client.Classify(context.Background(), "t", "b"); !errors.Is(err, internalerr.ErrInvalidLabel) {
		t.Fatalf("expected ErrInvalidLabel, got %v", err)
	}
}

func TestClassifyMalformed(t *testing.T) {
	client := testClient(func(*http.Request) *http.Response {
		return respond(200, `{"choices":[{"message":{"content":"Statute"}}]}`)
	})
	if _, err := client.Classify(context.Background(), "t", "b"); err == nil {
		t.Fatal("expected error for non-JSON answer")
	}
}

func TestCleanToMarkdown(t *testing.T) {
	client := testClient(func(req *http.Request) *http.Response {
		body, _ := io.ReadAll(req.Body)
		if strings.Contains(string(body), "response_format") {
			t.Errorf("cleanup should not request a schema")
		}
		return respond(200, `{"choices":[{"message":{"content":"# Regulamin\n\nTreść"}}]}`)
	})
	out, err := client.CleanToMarkdown(context.Background(), "REGULAMIN\nTreść")
	if err != nil {
		t.Fatal(err)
	}
	if out != "# Regulamin\n\nTreść" {
		t.Errorf("got %q", out)
	}
}

func TestCleanToMarkdownEmpty(t *testing.T) {
	client := testClient(func(*http.Request) *http.Response {
		return respond(200, `{"choices":[{"message":{"content":"  "}}]}`)
	})
	if _, err := client.CleanToMarkdown(context.Background(), "x"); !errors.Is(err, internalerr.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestChatErrors(t *testing.T) {
	tests := map[string]*http.Response{
		"api error":   respond(200, `{"error":{"message":"bad"}}`),
		"no choices":  respond(200, `{"choices":[]}`),
		"status":      respond(502, `<html>bad gateway</html>`),
		"status json": respond(429, `{"choices":[]}`),
	}
	for name, resp := range tests {
		t.Run(name, func(t *testing.T) {
			client := testClient(func(*http.Request) *http.Response { return resp })
			if _, err := client.Chat(context.Background(), "s", "u"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestChatRequiresConfig(t *testing.T) {
	client := &Client{}
	if _, err := client.Chat(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error")
	}
}
