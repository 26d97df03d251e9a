package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// ScriptedClient implements domain.AIClient from canned responses for
// offline runs and tests. Responses are keyed by a marker substring
// looked up in the system prompt; calls are recorded in order.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []scripted
	calls     []string
}

type scripted struct {
	marker   string
	response string
	err      error
}

// NewScriptedClient constructs an empty scripted client.
func NewScriptedClient() *ScriptedClient { return &ScriptedClient{} }

// Respond registers a JSON response for prompts whose system prompt
// contains marker. The payload is marshalled once at registration.
func (c *ScriptedClient) Respond(marker string, payload any) *ScriptedClient {
	b, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("scripted client: marshal %q: %v", marker, err))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, scripted{marker: marker, response: string(b)})
	return c
}

// RespondRaw registers a raw string response for prompts containing marker.
func (c *ScriptedClient) RespondRaw(marker, response string) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, scripted{marker: marker, response: response})
	return c
}

// Fail registers an error for prompts containing marker.
func (c *ScriptedClient) Fail(marker string, err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, scripted{marker: marker, err: err})
	return c
}

// ChatJSON returns the first registered response whose marker appears in
// the system or user prompt.
func (c *ScriptedClient) ChatJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.responses {
		if strings.Contains(systemPrompt, s.marker) || strings.Contains(userPrompt, s.marker) {
			c.calls = append(c.calls, s.marker)
			if s.err != nil {
				return "", s.err
			}
			return s.response, nil
		}
	}
	return "", fmt.Errorf("%w: no scripted response for prompt", domain.ErrInternal)
}

// Calls returns the matched markers in call order.
func (c *ScriptedClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}
