package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloutagent/cloutagent/internal/port/provider"
)

// streamEvent is the envelope of one SSE data payload from the Messages API.
// Only the fields needed for text and usage extraction are decoded.
type streamEvent struct {
	Type    string `json:"type"`
	Message struct {
		Usage usage `json:"usage"`
	} `json:"message"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Usage usage `json:"usage"`
}

// Stream performs a streaming request, invoking cb for each text chunk and
// usage report in arrival order, then returns the final response.
func (c *Client) Stream(ctx context.Context, req provider.Request, cb provider.StreamCallbacks) (*provider.Response, error) {
	var result *provider.Response
	call := func() error {
		resp, err := c.doRequest(ctx, req, true)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		var (
			full         strings.Builder
			inputTokens  int
			outputTokens int
		)

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" {
				continue
			}

			var ev streamEvent
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				return fmt.Errorf("unmarshal stream event: %w", err)
			}

			switch ev.Type {
			case "message_start":
				inputTokens = ev.Message.Usage.InputTokens
				if ev.Message.Usage.OutputTokens > 0 {
					outputTokens = ev.Message.Usage.OutputTokens
				}
			case "content_block_delta":
				if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
					full.WriteString(ev.Delta.Text)
					if cb.OnText != nil {
						cb.OnText(ev.Delta.Text)
					}
				}
			case "message_delta":
				if ev.Usage.OutputTokens > 0 {
					outputTokens = ev.Usage.OutputTokens
				}
				if cb.OnUsage != nil {
					cb.OnUsage(provider.Usage{
						InputTokens:  inputTokens,
						OutputTokens: outputTokens,
					})
				}
			case "message_stop":
				// Terminal event; usage was reported by message_delta.
			case "error":
				return fmt.Errorf("anthropic stream error: %s", payload)
			}

			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read stream: %w", err)
		}

		result = &provider.Response{
			Text: full.String(),
			Usage: provider.Usage{
				InputTokens:  inputTokens,
				OutputTokens: outputTokens,
			},
		}
		return nil
	}

	if err := c.execute(call); err != nil {
		return nil, err
	}
	return result, nil
}
