package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cognicore/uniscrape/pkg/uniscrape/classify"
	"github.com/cognicore/uniscrape/pkg/uniscrape/internalerr"
)

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	HTTPClient *http.Client
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

const cleanupPrompt = "You clean text extracted from PDF documents of Polish institutions. " +
	"Rewrite the text as Markdown: restore headings, lists and paragraphs, join words broken across lines, " +
	"drop page numbers and repeated headers or footers. Do not translate, summarize or add anything. " +
	"Answer with the Markdown only."

// CleanToMarkdown turns one chunk of raw PDF text into Markdown.
func (c *Client) CleanToMarkdown(ctx context.Context, chunk string) (string, error) {
	out, err := c.Chat(ctx, cleanupPrompt, chunk)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("llm: cleanup: %w", internalerr.ErrEmptyResponse)
	}
	return out, nil
}

const classifyPrompt = "You classify documents published by Polish schools and universities. " +
	"Instruction: guides, manuals, FAQs and how-to pages. Article: news, announcements and event reports. " +
	"Statute: statutes, regulations, ordinances and resolutions. Forms: forms, applications and attachments to fill in. " +
	"Answer with the single best type."

// Classify asks the model for the document type. The answer is constrained
// by a JSON schema and checked against the label enum.
func (c *Client) Classify(ctx context.Context, title, body string) (string, error) {
	labels := make([]string, len(classify.Labels))
	for i, l := range classify.Labels {
		labels[i] = string(l)
	}
	format := &responseFormat{
		Type: "json_schema",
		JSONSchema: &jsonSchema{
			Name:   "document_type",
			Strict: true,
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type": map[string]any{"type": "string", "enum": labels},
				},
				"required":             []string{"type"},
				"additionalProperties": false,
			},
		},
	}

	user := fmt.Sprintf("Title: %s\n\n%s", title, body)
	messages := []chatMessage{{Role: "system", Content: classifyPrompt}, {Role: "user", Content: user}}
	content, err := c.complete(ctx, messages, format)
	if err != nil {
		return "", err
	}

	var answer struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(content), &answer); err != nil {
		return "", fmt.Errorf("llm: classify: decode %q: %w", content, err)
	}
	if _, err := classify.ParseLabel(answer.Type); err != nil {
		return "", fmt.Errorf("llm: classify: %w", err)
	}
	return answer.Type, nil
}

// Chat sends one system and one user message and returns the reply.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	messages := []chatMessage{{Role: "system", Content: system}, {Role: "user", Content: user}}
	return c.complete(ctx, messages, nil)
}

func (c *Client) complete(ctx context.Context, messages []chatMessage, format *responseFormat) (string, error) {
	if c.BaseURL == "" || c.Model == "" {
		return "", fmt.Errorf("llm: base URL and model required")
	}
	payload, err := c.send(ctx, chatRequest{Model: c.Model, Messages: messages, ResponseFormat: format})
	if err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("llm: %w", internalerr.ErrEmptyResponse)
	}
	return payload.Choices[0].Message.Content, nil
}

func (c *Client) send(ctx context.Context, body chatRequest) (*chatResponse, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var payload chatResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("llm: status %d: %s", resp.StatusCode, truncate(data, 200))
		}
		return nil, err
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("llm error: %s", payload.Error.Message)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("llm: status %d", resp.StatusCode)
	}
	return &payload, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n]
	}
	return s
}
