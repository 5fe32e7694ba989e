package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Fragment is one streamed piece of generated text.
//
// A non-nil Err marks a mid-stream provider failure; it is always the last
// value on the channel. Fragments already delivered before the error stand.
type Fragment struct {
	Text string
	Err  error
}

// streamDelta represents one server-sent event payload on the stream.
type streamDelta struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Stream generates a streaming completion for the given messages.
//
// Fragments are delivered on the returned channel in the exact order the
// provider emits them, one per delta, with no buffering or reordering. The
// channel is closed when the provider signals completion or after a terminal
// error fragment. Cancelling ctx stops consumption and releases the
// underlying connection.
//
// Streaming requests are not retried: once a fragment has been handed to the
// caller it cannot be retracted, so a mid-stream failure is terminal.
func (c *Client) Stream(ctx context.Context, messages []Message, model string) (<-chan Fragment, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req := chatRequest{
		Model:       c.resolveModel(model),
		Messages:    messages,
		Temperature: 0.7,
		Stream:      true,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	// The client-level timeout would kill long generations mid-stream, so
	// streaming relies on ctx for cancellation instead.
	streamClient := &http.Client{Transport: c.httpClient.Transport}

	resp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: API request failed: %v", ErrGenerationFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		var errResp chatError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("%w: API error (%d): %s", ErrGenerationFailed, resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("%w: API error (%d): %s", ErrGenerationFailed, resp.StatusCode, string(body))
	}

	fragments := make(chan Fragment)
	go c.consumeStream(ctx, resp.Body, fragments)
	return fragments, nil
}

// consumeStream reads server-sent events from body and forwards content
// deltas to out until the stream ends, errors, or ctx is cancelled.
func (c *Client) consumeStream(ctx context.Context, body io.ReadCloser, out chan<- Fragment) {
	defer close(out)
	defer body.Close()

	// Closing the body on cancellation unblocks the scanner below.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			body.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return
		}

		var delta streamDelta
		if err := json.Unmarshal([]byte(payload), &delta); err != nil {
			c.emit(ctx, out, Fragment{Err: fmt.Errorf("%w: malformed stream event: %v", ErrGenerationFailed, err)})
			return
		}

		if len(delta.Choices) == 0 {
			continue
		}
		if content := delta.Choices[0].Delta.Content; content != "" {
			if !c.emit(ctx, out, Fragment{Text: content}) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		c.emit(ctx, out, Fragment{Err: fmt.Errorf("%w: reading stream: %v", ErrGenerationFailed, err)})
	}
}

// emit sends one fragment unless the context is cancelled. Returns false
// when the caller has gone away.
func (c *Client) emit(ctx context.Context, out chan<- Fragment, f Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
