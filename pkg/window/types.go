package window

// Role enumerates the conversation roles tracked by the window.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Priority labels a message with its eviction tier. Higher values are
// reclaimed first when the window runs over budget.
type Priority int

const (
	// PriorityAnchor marks messages that are never evicted: positional
	// anchors at the edges of the conversation and compaction summaries.
	PriorityAnchor Priority = iota
	// PriorityToolPair marks both halves of a tool invocation/result pair.
	PriorityToolPair
	// PriorityNormal is the default tier for ordinary conversation turns.
	PriorityNormal
	// PriorityDisposable marks content the caller has already flagged as
	// safe to drop, e.g. superseded progress notes.
	PriorityDisposable
)

func (p Priority) String() string {
	switch p {
	case PriorityAnchor:
		return "anchor"
	case PriorityToolPair:
		return "tool_pair"
	case PriorityNormal:
		return "normal"
	case PriorityDisposable:
		return "disposable"
	default:
		return "unknown"
	}
}

// Part is one element of a message's typed content sequence. Exactly three
// shapes exist; content inspection switches over them exhaustively instead of
// probing fields.
type Part interface {
	isPart()
}

// TextPart carries plain displayed text.
type TextPart struct {
	Text string
}

// ToolUsePart records an assistant tool invocation.
type ToolUsePart struct {
	CallID    string
	Name      string
	Arguments string
}

// ToolResultPart answers a prior invocation identified by CallID.
type ToolResultPart struct {
	CallID  string
	Content string
	IsError bool
}

func (TextPart) isPart()       {}
func (ToolUsePart) isPart()    {}
func (ToolResultPart) isPart() {}

// Message is one turn of conversation state. Content is either Text or a
// typed Parts sequence; both set at once is a caller bug and Parts wins.
type Message struct {
	ID       string
	Role     Role
	Text     string
	Parts    []Part
	Tokens   int
	Priority Priority

	// ReasoningContent holds chain-of-thought text kept separate from the
	// displayed content.
	ReasoningContent string

	// IsSummary marks a compaction artifact. CondenseID identifies the
	// compaction group the summary represents; CondenseParent is set on
	// messages folded into a later summary and names that summary's group.
	IsSummary      bool
	CondenseID     string
	CondenseParent string
}

// ToolCallIDs returns the invocation identifiers this message issues.
func (m *Message) ToolCallIDs() []string {
	var ids []string
	for _, part := range m.Parts {
		if use, ok := part.(*ToolUsePart); ok && use.CallID != "" {
			ids = append(ids, use.CallID)
		}
	}
	return ids
}

// ToolResultIDs returns the invocation identifiers this message answers.
func (m *Message) ToolResultIDs() []string {
	var ids []string
	for _, part := range m.Parts {
		if res, ok := part.(*ToolResultPart); ok && res.CallID != "" {
			ids = append(ids, res.CallID)
		}
	}
	return ids
}

// CloneMessages copies a message slice so concurrent pipeline calls never
// alias the same backing array. Parts are shared; they are immutable by
// convention once appended.
func CloneMessages(messages []Message) []Message {
	return append([]Message(nil), messages...)
}
