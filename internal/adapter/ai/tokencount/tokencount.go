// Package tokencount provides token counting and budgeting for LLM calls.
//
// It uses tiktoken-go, a Go port of OpenAI's tiktoken library, so the
// evidence projected into each prompt can be bounded before the call.
package tokencount

import (
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting for LLM models.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

// DefaultCounter is a global token counter instance.
var DefaultCounter = NewCounter()

// getEncodingForModel returns a cached tiktoken encoding for a model.
func (c *Counter) getEncodingForModel(model string) (*tiktoken.Tiktoken, error) {
	normalized := normalizeModelName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[normalized]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[normalized]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(normalized)
	if err != nil {
		// cl100k_base covers GPT-4-class and most modern models
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodingCache[normalized] = enc
	return enc, nil
}

// normalizeModelName converts provider-prefixed model IDs to
// tiktoken-compatible names.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	model = strings.TrimSuffix(model, ":free")
	switch {
	case strings.Contains(model, "gpt-4"):
		return "gpt-4"
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		// GPT-4 encoding approximates most model families well enough
		// for budgeting purposes.
		return "gpt-4"
	}
}

// CountTokens counts the number of tokens in text for a given model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CountChatTokens counts tokens for a two-message chat completion request,
// including the per-message overhead of OpenAI-compatible APIs.
func (c *Counter) CountChatTokens(systemPrompt, userPrompt, model string) (int, error) {
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		return 0, err
	}
	const tokensPerMessage, tokensPerRole, replyPriming = 3, 1, 3
	n := 2*(tokensPerMessage+tokensPerRole) + replyPriming
	n += len(enc.Encode("system", nil, nil)) + len(enc.Encode(systemPrompt, nil, nil))
	n += len(enc.Encode("user", nil, nil)) + len(enc.Encode(userPrompt, nil, nil))
	return n, nil
}

// Truncate cuts text to at most budget tokens, on a token boundary.
// On encoding failure it falls back to a 4-chars-per-token estimate.
func (c *Counter) Truncate(text, model string, budget int) string {
	if budget <= 0 {
		return ""
	}
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		if len(text) > budget*4 {
			return text[:budget*4]
		}
		return text
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return enc.Decode(tokens[:budget])
}

// CountTokensDefault uses the default counter to count tokens.
func CountTokensDefault(text, model string) (int, error) {
	return DefaultCounter.CountTokens(text, model)
}

// TruncateDefault uses the default counter to truncate text.
func TruncateDefault(text, model string, budget int) string {
	return DefaultCounter.Truncate(text, model, budget)
}
