// Package real implements the AIClient port against an OpenAI-compatible
// chat completions API (OpenRouter by default).
package real

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/observability"
	"github.com/fairyhunter13/cv-match-advisor/internal/config"
	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// Client calls a single configured chat model. The unit of retry is one
// chat call; the pipeline scheduler never re-runs a completed stage.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New constructs a real AI client with sensible timeouts.
func New(cfg config.Config) *Client {
	timeout := 60 * time.Second
	if cfg.IsDev() {
		timeout = 300 * time.Second
	}
	return &Client{cfg: cfg, hc: &http.Client{Timeout: timeout}}
}

// getBackoffConfig returns a configured ExponentialBackOff based on the current environment.
func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatJSON calls the chat completions endpoint and returns the message content.
// 429 and 5xx responses are retried with exponential backoff; other 4xx are permanent.
func (c *Client) ChatJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.cfg.OpenRouterAPIKey == "" {
		return "", fmt.Errorf("%w: OPENROUTER_API_KEY missing", domain.ErrInvalidArgument)
	}

	b, err := json.Marshal(chatRequest{
		Model: c.cfg.ChatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("op=ai.ChatJSON marshal: %w", err)
	}

	var out chatResponse
	rateLimited := false
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenRouterBaseURL+"/chat/completions", bytes.NewReader(b))
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenRouterAPIKey)
		r.Header.Set("Content-Type", "application/json")
		if c.cfg.OpenRouterReferer != "" {
			r.Header.Set("HTTP-Referer", c.cfg.OpenRouterReferer)
		}
		if c.cfg.OpenRouterTitle != "" {
			r.Header.Set("X-Title", c.cfg.OpenRouterTitle)
		}
		resp, err := c.hc.Do(r)
		if err != nil {
			observability.ObserveAICall("chat", "transport_error", time.Since(start))
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			observability.ObserveAICall("chat", "read_error", time.Since(start))
			return err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			observability.ObserveAICall("chat", "rate_limited", time.Since(start))
			rateLimited = true
			slog.Warn("ai provider rate limited",
				slog.String("model", c.cfg.ChatModel),
				slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return fmt.Errorf("rate limited: 429")
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			observability.ObserveAICall("chat", "client_error", time.Since(start))
			slog.Warn("ai provider 4xx",
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.cfg.ChatModel),
				slog.String("body", snippet(bodyBytes, 512)))
			return backoff.Permanent(fmt.Errorf("chat status %d", resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			observability.ObserveAICall("chat", "server_error", time.Since(start))
			slog.Error("ai provider non-2xx",
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.cfg.ChatModel),
				slog.String("body", snippet(bodyBytes, 512)))
			return fmt.Errorf("chat status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(bodyBytes, &out); err != nil {
			observability.ObserveAICall("chat", "decode_error", time.Since(start))
			return err
		}
		observability.ObserveAICall("chat", "ok", time.Since(start))
		return nil
	}

	bo := backoff.WithContext(c.getBackoffConfig(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if rateLimited {
			return "", fmt.Errorf("%w: %v", domain.ErrUpstreamRateLimit, err)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, ctx.Err()) {
			return "", fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("op=ai.ChatJSON: %w", err)
	}

	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", domain.ErrInternal)
	}
	if out.Model != "" && out.Model != c.cfg.ChatModel {
		slog.Warn("model substitution detected",
			slog.String("requested_model", c.cfg.ChatModel),
			slog.String("actual_model", out.Model))
	}
	return out.Choices[0].Message.Content, nil
}

func snippet(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
