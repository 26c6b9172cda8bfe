package window

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	summaryPrefix      = "[summary]"
	summarySnippetSize = 160
)

// Condense folds messages[start:end] into a single summary message. The
// folded messages are marked with the summary's condense group so the
// effective-history filter hides them, and the summary is inserted where the
// run began. The original slice is not modified; the condensed history is
// returned. Callers that summarize with an LLM pass the model's text as
// summaryText; when it is empty a synthetic recap is built from the folded
// messages themselves.
func Condense(messages []Message, start, end int, summaryText string) []Message {
	if start < 0 || end > len(messages) || start >= end {
		return CloneMessages(messages)
	}

	condenseID := uuid.NewString()
	if summaryText == "" {
		summaryText = synthesizeRecap(messages[start:end])
	}

	summary := Message{
		ID:         uuid.NewString(),
		Role:       RoleAssistant,
		Text:       summaryText,
		IsSummary:  true,
		CondenseID: condenseID,
		Priority:   PriorityAnchor,
	}

	condensed := make([]Message, 0, len(messages)+1)
	condensed = append(condensed, messages[:start]...)
	condensed = append(condensed, summary)
	for i := start; i < end; i++ {
		folded := messages[i]
		folded.CondenseParent = condenseID
		condensed = append(condensed, folded)
	}
	condensed = append(condensed, messages[end:]...)
	return condensed
}

// synthesizeRecap builds a compact role-labelled recap from a run of
// messages when no model-written summary is available.
func synthesizeRecap(run []Message) string {
	var lines []string
	for i := range run {
		snippet := compactSnippet(messageText(&run[i]))
		if snippet == "" {
			continue
		}
		label := "message"
		switch run[i].Role {
		case RoleUser:
			label = "user"
		case RoleAssistant:
			label = "assistant"
		}
		lines = append(lines, fmt.Sprintf("%s recap: %s", label, snippet))
		if len(lines) >= 8 {
			break
		}
	}
	if len(lines) == 0 {
		return fmt.Sprintf("%s Conversation context compressed.", summaryPrefix)
	}
	return fmt.Sprintf("%s %s", summaryPrefix, strings.Join(lines, " | "))
}

// messageText flattens a message's content for snippet purposes. Tool parts
// contribute their names and payloads so tool-heavy runs still summarize.
func messageText(m *Message) string {
	if len(m.Parts) == 0 {
		return m.Text
	}
	var parts []string
	for _, part := range m.Parts {
		switch p := part.(type) {
		case *TextPart:
			parts = append(parts, p.Text)
		case *ToolUsePart:
			parts = append(parts, fmt.Sprintf("tool %s(%s)", p.Name, p.Arguments))
		case *ToolResultPart:
			parts = append(parts, p.Content)
		}
	}
	return strings.Join(parts, " ")
}

// compactSnippet collapses whitespace and bounds the snippet so summaries
// stay short and legible.
func compactSnippet(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	trimmed = strings.Join(strings.Fields(trimmed), " ")
	runes := []rune(trimmed)
	if len(runes) <= summarySnippetSize {
		return trimmed
	}
	return string(runes[:summarySnippetSize]) + "…"
}
