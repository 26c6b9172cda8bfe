package window

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ScrubToolOutputs trims bulky tool result payloads in place once the
// history grows past the anchored tail. Results belonging to protected
// tools, and results inside the trailing keepRecent messages, are left
// untouched. maxChars <= 0 disables the pass. Returns the number of
// payloads trimmed.
func ScrubToolOutputs(messages []Message, maxChars, keepRecent int, protectedTools []string) int {
	if maxChars <= 0 {
		return 0
	}
	protected := make(map[string]bool, len(protectedTools))
	for _, name := range protectedTools {
		protected[strings.ToLower(name)] = true
	}

	// Map call IDs to tool names so results can honor protection; results
	// carry only the call ID.
	toolNames := make(map[string]string)
	for i := range messages {
		for _, part := range messages[i].Parts {
			if use, ok := part.(*ToolUsePart); ok {
				toolNames[use.CallID] = strings.ToLower(use.Name)
			}
		}
	}

	cutoff := len(messages) - keepRecent
	trimmed := 0
	for i := 0; i < cutoff; i++ {
		replaced := false
		for j, part := range messages[i].Parts {
			res, ok := part.(*ToolResultPart)
			if !ok || protected[toolNames[res.CallID]] {
				continue
			}
			// Measure in runes, the unit truncateForPrompt trims in.
			total := utf8.RuneCountInString(res.Content)
			if total <= maxChars {
				continue
			}
			if !replaced {
				// Snapshots share part slices; copy before editing.
				messages[i].Parts = append([]Part(nil), messages[i].Parts...)
				replaced = true
			}
			scrubbed := *res
			scrubbed.Content = truncateForPrompt(res.Content, maxChars) +
				fmt.Sprintf("\n[tool output elided: %d of %d chars retained]", maxChars, total)
			messages[i].Parts[j] = &scrubbed
			trimmed++
		}
		// Recompute cached cost on the next accounting pass.
		if replaced {
			messages[i].Tokens = 0
		}
	}
	return trimmed
}

// truncateForPrompt bounds a string at limit runes with an ellipsis.
func truncateForPrompt(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "…"
}
