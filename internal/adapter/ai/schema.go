package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ChatInto runs one chat call and decodes the response into T. The response
// is refusal-checked, cleaned, unmarshalled, and struct-validated; any
// failure maps to a sentinel so callers can classify without string matching.
func ChatInto[T any](ctx context.Context, client domain.AIClient, systemPrompt, userPrompt string, maxTokens int) (T, error) {
	var zero T
	raw, err := client.ChatJSON(ctx, systemPrompt, userPrompt, maxTokens)
	if err != nil {
		return zero, err
	}
	if IsRefusal(raw) {
		return zero, fmt.Errorf("%w: %s", domain.ErrRefusal, snippet(raw, 160))
	}
	cleaned := NewResponseCleaner().CleanJSONResponse(raw)
	var out T
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return zero, fmt.Errorf("%w: decode: %v", domain.ErrSchemaInvalid, err)
	}
	if err := validate.Struct(&out); err != nil {
		return zero, fmt.Errorf("%w: validate: %v", domain.ErrSchemaInvalid, err)
	}
	return out, nil
}

func snippet(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
