package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
	"github.com/fairyhunter13/cv-match-advisor/pkg/textx"
)

// keywordEquivalents maps commonly abbreviated terms onto the same keyword.
// Matching stays literal otherwise: "React" does not match "ReactJS".
var keywordEquivalents = map[string][]string{
	"machine learning":        {"ml"},
	"ml":                      {"machine learning"},
	"artificial intelligence": {"ai"},
	"ai":                      {"artificial intelligence"},
	"javascript":              {"js"},
	"js":                      {"javascript"},
	"typescript":              {"ts"},
	"ts":                      {"typescript"},
}

// runKeyword is the one dimension stage with no LLM call. ATS keyword
// filtering is mechanical token matching, so it is computed: literal,
// case-insensitive, whole-token, score = matched/total * 100.
func (r *Runner) runKeyword(_ context.Context, st *domain.EvalState) error {
	keywords := st.JobProfile.CriticalKeywords
	res := domain.KeywordResult{
		MatchedKeywords:  []string{},
		MissingKeywords:  []string{},
		KeywordFrequency: map[string]int{},
	}
	if len(keywords) == 0 {
		res.Score = 100
		res.Reasoning = "No critical keywords listed for this role; automated filters have nothing to screen on."
		res.RedFlags = []string{}
		st.Keyword = &res
		return nil
	}

	tokens := textx.Tokenize(st.CVText)
	for _, kw := range keywords {
		freq := countKeyword(tokens, kw)
		res.KeywordFrequency[kw] = freq
		if freq > 0 {
			res.MatchedKeywords = append(res.MatchedKeywords, kw)
		} else {
			res.MissingKeywords = append(res.MissingKeywords, kw)
			res.RedFlags = append(res.RedFlags, fmt.Sprintf("missing critical keyword %q", kw))
		}
	}
	if res.RedFlags == nil {
		res.RedFlags = []string{}
	}
	res.Score = float64(len(res.MatchedKeywords)) / float64(len(keywords)) * 100
	res.Reasoning = fmt.Sprintf("Matched %d of %d critical keywords by literal, case-insensitive comparison.",
		len(res.MatchedKeywords), len(keywords))
	st.Keyword = &res
	return nil
}

// countKeyword counts occurrences of kw in the token stream, including its
// equivalence-group aliases.
func countKeyword(tokens []string, kw string) int {
	lower := strings.ToLower(kw)
	total := textx.CountPhrase(tokens, textx.Tokenize(lower))
	for _, alias := range keywordEquivalents[lower] {
		total += textx.CountPhrase(tokens, textx.Tokenize(alias))
	}
	return total
}
