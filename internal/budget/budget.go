// Package budget estimates token usage so prompts stay inside a model's
// context window. The estimate is the usual four-characters-per-token
// heuristic; it overshoots on code and undershoots on CJK text, which is
// acceptable for trimming decisions.
package budget

import (
	"github.com/cloudwego/eino/schema"

	"github.com/docsmith-ai/docsmith/internal/rag"
)

const charsPerToken = 4

// perMessageOverhead covers role markers and separators the chat format
// adds around each message.
const perMessageOverhead = 4

// Estimate approximates the token count of a text.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// EstimateMessages approximates the token count of a chat exchange.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		total += Estimate(msg.Content) + perMessageOverhead
	}
	return total
}

// Trim drops retrieved hits from the end of the ranking until the combined
// estimate fits maxTokens. Hits must be ordered best first. A maxTokens of
// zero or less disables trimming. At least one hit is always kept so the
// model sees some context, even when that hit alone exceeds the budget.
func Trim(hits []rag.Hit, maxTokens int) []rag.Hit {
	if maxTokens <= 0 || len(hits) == 0 {
		return hits
	}
	total := 0
	for i, hit := range hits {
		total += Estimate(hit.Text)
		if total > maxTokens && i > 0 {
			return hits[:i]
		}
	}
	return hits
}
