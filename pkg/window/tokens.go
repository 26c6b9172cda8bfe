package window

import (
	"math"
	"unicode/utf8"
)

// Tokenizer converts text to a token count. Implementations must be
// deterministic for identical input; the engine consumes one by injection
// and never implements tokenization itself beyond the fallback heuristic.
type Tokenizer func(text string) int

// EstimateTokens is the fallback Tokenizer used when the caller injects
// none. The heuristic is intentionally simple (roughly four characters per
// token) which keeps the estimator fast while still providing a useful
// budgeting signal.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	runes := utf8.RuneCountInString(text)
	tokens := int(math.Ceil(float64(runes) / 4))
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// MessageTokens computes the token cost of a message with the supplied
// tokenizer. A small base overhead keeps very short messages from counting
// as free. The precomputed Tokens field, when set, wins.
func MessageTokens(m *Message, count Tokenizer) int {
	if m.Tokens > 0 {
		return m.Tokens
	}
	if count == nil {
		count = EstimateTokens
	}

	const baseOverhead = 4
	total := baseOverhead
	total += count(string(m.Role))
	total += count(m.Text)
	total += count(m.ReasoningContent)

	for _, part := range m.Parts {
		switch p := part.(type) {
		case *TextPart:
			total += count(p.Text)
		case *ToolUsePart:
			total += baseOverhead
			total += count(p.CallID)
			total += count(p.Name)
			total += count(p.Arguments)
		case *ToolResultPart:
			total += baseOverhead
			total += count(p.CallID)
			total += count(p.Content)
		}
	}
	return total
}

// HistoryTokens walks the history and returns the total cost together with
// the per-message contribution.
func HistoryTokens(messages []Message, count Tokenizer) (int, []int) {
	per := make([]int, len(messages))
	var sum int
	for i := range messages {
		tokens := MessageTokens(&messages[i], count)
		per[i] = tokens
		sum += tokens
	}
	return sum, per
}
