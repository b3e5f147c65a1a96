// Package anthropic implements the provider port against the Anthropic
// Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cloutagent/cloutagent/internal/port/provider"
	"github.com/cloutagent/cloutagent/internal/resilience"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.anthropic.com"

// apiVersion is the anthropic-version header sent with every request.
const apiVersion = "2023-06-01"

// Client talks to the Anthropic Messages API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a Messages API client. The per-request deadline comes
// from the caller's context, so the underlying http.Client sets no timeout
// of its own.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// messageRequest is the Messages API request body.
type messageRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messageResponse is the non-streaming Messages API response body.
type messageResponse struct {
	Content []contentBlock `json:"content"`
	Usage   usage          `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete performs a batch request and returns the full response.
func (c *Client) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	var result *provider.Response
	call := func() error {
		resp, err := c.doRequest(ctx, req, false)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		var mr messageResponse
		if err := json.Unmarshal(data, &mr); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}

		result = &provider.Response{
			Text: extractText(mr.Content),
			Usage: provider.Usage{
				InputTokens:  mr.Usage.InputTokens,
				OutputTokens: mr.Usage.OutputTokens,
			},
		}
		return nil
	}

	if err := c.execute(call); err != nil {
		return nil, err
	}
	return result, nil
}

// execute runs call through the breaker when one is attached.
func (c *Client) execute(call func() error) error {
	if c.breaker != nil {
		return c.breaker.Execute(call)
	}
	return call()
}

// doRequest issues the HTTP request and checks the status code. The caller
// owns the response body on success.
func (c *Client) doRequest(ctx context.Context, req provider.Request, stream bool) (*http.Response, error) {
	body, err := json.Marshal(messageRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages: []message{
			{Role: "user", Content: req.Input},
		},
		Temperature: req.Temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		var ae apiError
		if json.Unmarshal(data, &ae) == nil && ae.Error.Message != "" {
			return nil, fmt.Errorf("anthropic API error %d (%s): %s", resp.StatusCode, ae.Error.Type, ae.Error.Message)
		}
		return nil, fmt.Errorf("anthropic API error %d: %s", resp.StatusCode, string(data))
	}

	return resp, nil
}

// extractText joins the text blocks of a response, skipping other block kinds.
func extractText(blocks []contentBlock) string {
	var buf bytes.Buffer
	for _, b := range blocks {
		if b.Type == "text" {
			buf.WriteString(b.Text)
		}
	}
	return buf.String()
}
