package window

import (
	"regexp"
	"strings"
)

// Reasoning-model detection. Family patterns are ordered; the first match
// names the family reported to callers.
var reasoningFamilies = []struct {
	family  string
	pattern *regexp.Regexp
}{
	{"deepseek-r1", regexp.MustCompile(`(?i)deepseek[-_]?r1`)},
	{"deepseek-reasoner", regexp.MustCompile(`(?i)deepseek[-_]?reasoner`)},
	{"o1", regexp.MustCompile(`(?i)^o1([-_.]|$)`)},
	{"o3", regexp.MustCompile(`(?i)^o3([-_.]|$)`)},
	{"qwq", regexp.MustCompile(`(?i)qwq`)},
	{"thinking", regexp.MustCompile(`(?i)thinking`)},
}

// RequiresReasoningBlock reports whether the model expects an explicit
// chain-of-thought block in assistant turns. Empty input is never a match.
func RequiresReasoningBlock(modelName string) bool {
	return DetectModelFamily(modelName) != ""
}

// DetectModelFamily returns the reasoning family a model belongs to, or the
// empty string for conventional models.
func DetectModelFamily(modelName string) string {
	name := strings.TrimSpace(modelName)
	if name == "" {
		return ""
	}
	for _, f := range reasoningFamilies {
		if f.pattern.MatchString(name) {
			return f.family
		}
	}
	return ""
}

const syntheticReasoningBlock = "Reviewing the conversation so far to decide the next step."

// AddReasoningResult reports the outcome of a reasoning-block injection.
type AddReasoningResult struct {
	Message          Message
	WasAdded         bool
	ReasoningContent string
}

// AddReasoningBlock prepends a synthetic chain-of-thought block to an
// assistant message. Existing reasoning content is preserved after the
// synthetic block, never overwritten. Non-assistant messages pass through
// untouched.
func AddReasoningBlock(message Message) AddReasoningResult {
	if message.Role != RoleAssistant {
		return AddReasoningResult{Message: message}
	}

	reasoning := syntheticReasoningBlock
	if existing := strings.TrimSpace(message.ReasoningContent); existing != "" {
		reasoning = reasoning + "\n\n" + existing
	}
	message.ReasoningContent = reasoning
	return AddReasoningResult{
		Message:          message,
		WasAdded:         true,
		ReasoningContent: reasoning,
	}
}

// Conclusion extraction. Explicit markers are checked before weaker intent
// phrases; keyword-weighted sentences are the fallback. Anything outside the
// noise bounds is dropped.
var (
	thinkingBlockPattern = regexp.MustCompile(`(?s)<thinking>(.*?)</thinking>`)

	sentenceEndPattern = regexp.MustCompile(`[.!?\n]+`)

	conclusionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^\s*(?:conclusion|decision|result)\s*:\s*(.+)$`),
		regexp.MustCompile(`(?im)\btherefore[,:]?\s+(.+)$`),
		regexp.MustCompile(`(?im)\bI\s+(?:will|should|must|need to)\s+(.+)$`),
	}

	conclusionKeywords = []string{"fix", "error", "because", "root cause", "next", "plan", "instead"}
)

const (
	conclusionMinLen = 10
	conclusionMaxLen = 200
)

// ReasoningExtract is the result of scanning a history for chain-of-thought
// conclusions.
type ReasoningExtract struct {
	Conclusions           []string
	MessagesWithReasoning int
	SummaryText           string
}

// ExtractReasoningContent scans both the ReasoningContent field and inline
// <thinking> blocks in text content, collects deduplicated conclusions, and
// formats them as a markdown bullet list under a fixed heading.
func ExtractReasoningContent(messages []Message) ReasoningExtract {
	var extract ReasoningExtract
	seen := make(map[string]bool)

	add := func(candidate string) {
		candidate = strings.TrimSpace(strings.TrimRight(candidate, "."))
		if len(candidate) < conclusionMinLen || len(candidate) > conclusionMaxLen {
			return
		}
		key := strings.ToLower(candidate)
		if seen[key] {
			return
		}
		seen[key] = true
		extract.Conclusions = append(extract.Conclusions, candidate)
	}

	for i := range messages {
		var sources []string
		if rc := strings.TrimSpace(messages[i].ReasoningContent); rc != "" {
			sources = append(sources, rc)
		}
		for _, match := range thinkingBlockPattern.FindAllStringSubmatch(messageText(&messages[i]), -1) {
			if inner := strings.TrimSpace(match[1]); inner != "" {
				sources = append(sources, inner)
			}
		}
		if len(sources) == 0 {
			continue
		}
		extract.MessagesWithReasoning++

		for _, source := range sources {
			// Patterns are ordered; the first one that fires claims the
			// source so weaker phrasings never duplicate a conclusion.
			matched := false
			for _, pattern := range conclusionPatterns {
				hits := pattern.FindAllStringSubmatch(source, -1)
				if len(hits) == 0 {
					continue
				}
				for _, match := range hits {
					add(match[1])
				}
				matched = true
				break
			}
			if matched {
				continue
			}
			// Fallback: keep sentences that carry enough import keywords.
			for _, sentence := range splitSentences(source) {
				if keywordWeight(sentence) >= 2 {
					add(sentence)
				}
			}
		}
	}

	if len(extract.Conclusions) > 0 {
		var b strings.Builder
		b.WriteString("## Key reasoning conclusions\n")
		for _, conclusion := range extract.Conclusions {
			b.WriteString("- ")
			b.WriteString(conclusion)
			b.WriteString("\n")
		}
		extract.SummaryText = b.String()
	}
	return extract
}

func splitSentences(text string) []string {
	var sentences []string
	for _, raw := range sentenceEndPattern.Split(text, -1) {
		if s := strings.TrimSpace(raw); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func keywordWeight(sentence string) int {
	lower := strings.ToLower(sentence)
	weight := 0
	for _, keyword := range conclusionKeywords {
		if strings.Contains(lower, keyword) {
			weight++
		}
	}
	return weight
}
