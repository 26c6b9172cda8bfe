package guard

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/contextfold/contextfold/pkg/window"
)

// Inheritance carries distilled context from a finished session into the
// next one: the latest summary, extracted reasoning decisions, and any
// open questions flagged in the history.
type Inheritance struct {
	Summary       string    `json:"summary,omitempty" cbor:"1,keyasint,omitempty"`
	Decisions     []string  `json:"decisions,omitempty" cbor:"2,keyasint,omitempty"`
	OpenQuestions []string  `json:"open_questions,omitempty" cbor:"3,keyasint,omitempty"`
	Origin        string    `json:"origin,omitempty" cbor:"4,keyasint,omitempty"`
	CreatedAt     time.Time `json:"created_at" cbor:"5,keyasint"`
}

// Empty reports whether the inheritance carries nothing worth applying.
func (i Inheritance) Empty() bool {
	return i.Summary == "" && len(i.Decisions) == 0 && len(i.OpenQuestions) == 0
}

// Expired reports whether the inheritance is older than the allowed age.
func (i Inheritance) Expired(maxAge time.Duration, now time.Time) bool {
	if i.CreatedAt.IsZero() {
		return true
	}
	return now.Sub(i.CreatedAt) > maxAge
}

var openQuestionMarkers = []string{"open question:", "unresolved:", "todo:"}

// indexFold finds the first case-insensitive occurrence of an ASCII marker,
// scanning the original text so the returned offset slices it correctly
// even when lowercasing would change a rune's byte length.
func indexFold(text, marker string) int {
	for i := 0; i+len(marker) <= len(text); i++ {
		if strings.EqualFold(text[i:i+len(marker)], marker) {
			return i
		}
	}
	return -1
}

// Inheritor extracts and applies cross-session context.
type Inheritor struct {
	cfg InheritanceConfig
	now func() time.Time
}

// NewInheritor builds an Inheritor over merged config.
func NewInheritor(cfg InheritanceConfig) *Inheritor {
	return &Inheritor{cfg: cfg, now: time.Now}
}

// Extract distills a session's history into an Inheritance. Decisions come
// from reasoning conclusions, bounded by MaxDecisions with the most recent
// kept. The summary is the latest condensation summary, if any.
func (n *Inheritor) Extract(messages []window.Message, origin string) Inheritance {
	inheritance := Inheritance{
		Origin:    origin,
		CreatedAt: n.now(),
	}

	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].IsSummary {
			inheritance.Summary = strings.TrimSpace(messages[i].Text)
			break
		}
	}

	extract := window.ExtractReasoningContent(messages)
	decisions := extract.Conclusions
	if len(decisions) > n.cfg.MaxDecisions {
		decisions = decisions[len(decisions)-n.cfg.MaxDecisions:]
	}
	inheritance.Decisions = decisions

	for i := range messages {
		for _, marker := range openQuestionMarkers {
			idx := indexFold(messages[i].Text, marker)
			if idx < 0 {
				continue
			}
			question := messages[i].Text[idx+len(marker):]
			if end := strings.IndexByte(question, '\n'); end >= 0 {
				question = question[:end]
			}
			if question = strings.TrimSpace(question); question != "" {
				inheritance.OpenQuestions = append(inheritance.OpenQuestions, question)
			}
		}
	}
	return inheritance
}

// Apply prepends an inherited-context summary message to a fresh history.
// Expired or empty inheritances are dropped and the history returned as is.
func (n *Inheritor) Apply(inheritance Inheritance, messages []window.Message) []window.Message {
	if inheritance.Empty() || inheritance.Expired(n.cfg.MaxAge, n.now()) {
		return messages
	}

	var b strings.Builder
	b.WriteString("Context inherited from a previous session")
	if inheritance.Origin != "" {
		b.WriteString(" (")
		b.WriteString(inheritance.Origin)
		b.WriteString(")")
	}
	b.WriteString(".\n")
	if inheritance.Summary != "" {
		b.WriteString("\n")
		b.WriteString(inheritance.Summary)
		b.WriteString("\n")
	}
	if len(inheritance.Decisions) > 0 {
		b.WriteString("\nDecisions carried forward:\n")
		for _, decision := range inheritance.Decisions {
			b.WriteString("- ")
			b.WriteString(decision)
			b.WriteString("\n")
		}
	}
	if len(inheritance.OpenQuestions) > 0 {
		b.WriteString("\nOpen questions:\n")
		for _, question := range inheritance.OpenQuestions {
			b.WriteString("- ")
			b.WriteString(question)
			b.WriteString("\n")
		}
	}

	inherited := window.Message{
		ID:        uuid.NewString(),
		Role:      window.RoleUser,
		Text:      b.String(),
		Priority:  window.PriorityAnchor,
		IsSummary: true,
	}
	out := make([]window.Message, 0, len(messages)+1)
	out = append(out, inherited)
	out = append(out, messages...)
	return out
}
