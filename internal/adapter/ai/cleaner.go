// Package ai provides shared helpers around the AIClient port: response
// cleaning, refusal detection, and schema-checked JSON decoding.
package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ResponseCleaner normalizes malformed LLM output into parseable JSON.
type ResponseCleaner struct{}

// NewResponseCleaner creates a new response cleaner.
func NewResponseCleaner() *ResponseCleaner {
	return &ResponseCleaner{}
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// CleanJSONResponse strips markdown fences and surrounding prose, then
// repairs trailing commas. It never invents structure; output that still
// fails to parse is returned for the caller to reject.
func (rc *ResponseCleaner) CleanJSONResponse(response string) string {
	response = rc.removeMarkdownBlocks(response)
	response = rc.extractJSON(response)
	if json.Valid([]byte(response)) {
		return response
	}
	return trailingCommaRe.ReplaceAllString(response, "$1")
}

// removeMarkdownBlocks removes ``` fences from the response.
func (rc *ResponseCleaner) removeMarkdownBlocks(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// extractJSON extracts the first balanced JSON object from mixed content.
func (rc *ResponseCleaner) extractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return response
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		ch := response[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return response
}
