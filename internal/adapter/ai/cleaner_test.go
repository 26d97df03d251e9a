package ai_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/ai"
)

func TestCleanJSONResponse(t *testing.T) {
	rc := ai.NewResponseCleaner()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain object untouched", `{"score": 80}`, `{"score": 80}`},
		{"markdown fence stripped", "```json\n{\"score\": 80}\n```", `{"score": 80}`},
		{"bare fence stripped", "```\n{\"score\": 80}\n```", `{"score": 80}`},
		{"surrounding prose removed", `Here is the result: {"score": 80} hope that helps`, `{"score": 80}`},
		{"trailing comma repaired", `{"items": ["a", "b",], "score": 80,}`, `{"items": ["a", "b"], "score": 80}`},
		{"nested braces balanced", `{"outer": {"inner": {"deep": 1}}}`, `{"outer": {"inner": {"deep": 1}}}`},
		{"braces inside strings ignored", `{"text": "a { b } c"}`, `{"text": "a { b } c"}`},
		{"escaped quotes inside strings", `{"text": "say \"hi\" {now}"}`, `{"text": "say \"hi\" {now}"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := rc.CleanJSONResponse(tc.in)
			require.Equal(t, tc.want, got)
			require.True(t, json.Valid([]byte(got)))
		})
	}
}

func TestCleanJSONResponseNeverInventsStructure(t *testing.T) {
	rc := ai.NewResponseCleaner()
	got := rc.CleanJSONResponse("no json here at all")
	require.False(t, json.Valid([]byte(got)))
}

func TestIsRefusal(t *testing.T) {
	require.True(t, ai.IsRefusal(""))
	require.True(t, ai.IsRefusal("   "))
	require.True(t, ai.IsRefusal("I cannot assist with that request."))
	require.True(t, ai.IsRefusal("I'm sorry, but I am unable to help."))
	require.True(t, ai.IsRefusal("As an AI language model, I must decline."))

	require.False(t, ai.IsRefusal(`{"score": 80}`))
	require.False(t, ai.IsRefusal("```json\n{\"score\": 80}\n```"))
	// Marker text deep inside a long answer is not a refusal.
	long := "This candidate has broad experience. " +
		"Their work spans many systems and several domains over a long career with plenty of detail " +
		"covering infrastructure, data pipelines, frontend work, and team leadership across companies. " +
		"Even more narrative padding to push any marker well past the inspected prefix of the response. " +
		"They said once: i cannot overstate their Go skills."
	require.False(t, ai.IsRefusal(long))
}
