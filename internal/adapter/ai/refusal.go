package ai

import "strings"

// refusalMarkers are phrases that indicate the model declined to produce
// the requested structured output instead of answering.
var refusalMarkers = []string{
	"i cannot",
	"i can't",
	"i'm unable",
	"i am unable",
	"i'm sorry, but",
	"i am sorry, but",
	"i refuse",
	"i won't",
	"i will not",
	"as an ai",
	"i don't have access",
	"i do not have access",
	"against my guidelines",
	"cannot assist with",
	"cannot help with",
	"unable to process this request",
}

// IsRefusal reports whether the response is a refusal rather than a JSON
// payload. A response that opens with a JSON object is never a refusal;
// markers are only checked near the start of prose output.
func IsRefusal(response string) bool {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return true
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "```") {
		return false
	}
	head := strings.ToLower(trimmed)
	if len(head) > 300 {
		head = head[:300]
	}
	for _, m := range refusalMarkers {
		if strings.Contains(head, m) {
			return true
		}
	}
	return false
}
