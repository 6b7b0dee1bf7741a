// Package provider implements the OpenRouter chat-completions wire
// contract: a streaming call for the main token stream and a one-shot
// call for title generation.
package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrMissingAPIKey is detected before any stream is opened so it can
// surface as a structured configuration error, not a stream failure.
var ErrMissingAPIKey = errors.New("OPENROUTER_API_KEY is not configured")

// Message is one turn on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Delta is one streamed increment. Content and Reasoning are separate
// channels of the same completion; reasoning models emit both.
type Delta struct {
	Content   string
	Reasoning string
}

// Request describes a streaming completion call.
type Request struct {
	Model    string
	Messages []Message
	// ReasoningBudget > 0 enables the provider's extended thinking
	// with that many tokens.
	ReasoningBudget int
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		// Streaming responses are long-lived; the per-request context
		// carries the deadline instead of a client timeout.
		httpClient: &http.Client{},
	}
}

// Stream opens a streaming completion. Deltas arrive on the first
// channel, which is closed when the provider finishes normally; at most
// one error arrives on the second. Cancelling ctx tears the call down.
func (c *Client) Stream(ctx context.Context, req Request) (<-chan Delta, <-chan error, error) {
	if c.apiKey == "" {
		return nil, nil, ErrMissingAPIKey
	}

	payload := map[string]interface{}{
		"model":    req.Model,
		"messages": req.Messages,
		"stream":   true,
	}
	if req.ReasoningBudget > 0 {
		payload["reasoning"] = map[string]interface{}{
			"max_tokens": req.ReasoningBudget,
		}
	}

	resp, err := c.post(ctx, payload)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		resp.Body.Close()
		return nil, nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, string(body))
	}

	deltas := make(chan Delta)
	errc := make(chan error, 1)

	go func() {
		defer close(deltas)
		// Drain fully on the way out so the connection is released
		// even when the consumer stops early.
		defer func() {
			io.Copy(io.Discard, resp.Body) //nolint:errcheck
			resp.Body.Close()              //nolint:errcheck
		}()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024) // 64KB initial, 1MB max.

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if chunk.Error != nil {
				errc <- fmt.Errorf("provider stream error: %s", chunk.Error.Message)
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}

			delta := Delta{
				Content:   chunk.Choices[0].Delta.Content,
				Reasoning: chunk.Choices[0].Delta.Reasoning,
			}
			if delta.Content == "" && delta.Reasoning == "" {
				continue
			}

			select {
			case deltas <- delta:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errc <- fmt.Errorf("provider stream read: %w", err)
		}
	}()

	return deltas, errc, nil
}

// Complete makes a single non-streaming call and returns the text of
// the first choice. Used for title generation.
func (c *Client) Complete(ctx context.Context, model, system, user string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	payload := map[string]interface{}{
		"model": model,
		"messages": []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		"stream": false,
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider returned %d: %s (model: %s)", resp.StatusCode, string(body), model)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response (body: %s)", string(body))
	}

	return result.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, payload map[string]interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call provider: %w", err)
	}
	return resp, nil
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			Reasoning string `json:"reasoning"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
