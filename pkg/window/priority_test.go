package window

import (
	"reflect"
	"testing"
)

func TestAssignPriorities(t *testing.T) {
	messages := []Message{
		text("m0", RoleUser, "first"),
		text("m1", RoleAssistant, "second"),
		toolUse("m2", "call-1", "shell"),
		text("m3", RoleUser, "chatter"),
		toolResult("m4", "call-1", "output"),
		{ID: "m5", Role: RoleAssistant, Text: "recap", IsSummary: true, CondenseID: "g1"},
		text("m6", RoleUser, "newest question"),
		text("m7", RoleAssistant, "newest answer"),
	}

	AssignPriorities(messages, 1, nil)

	want := []Priority{
		PriorityAnchor, // first anchor
		PriorityNormal,
		PriorityToolPair,
		PriorityNormal,
		PriorityToolPair,
		PriorityAnchor, // summary
		PriorityNormal,
		PriorityAnchor, // last anchor
	}
	for i := range messages {
		if messages[i].Priority != want[i] {
			t.Errorf("message %d priority = %s, want %s", i, messages[i].Priority, want[i])
		}
	}
}

func TestAssignPrioritiesKeepsDisposable(t *testing.T) {
	messages := []Message{
		text("m0", RoleUser, "anchor"),
		{ID: "m1", Role: RoleAssistant, Text: "droppable progress note", Priority: PriorityDisposable},
		text("m2", RoleUser, "anchor"),
	}
	AssignPriorities(messages, 1, nil)
	if messages[1].Priority != PriorityDisposable {
		t.Fatalf("caller-flagged disposable was reassigned to %s", messages[1].Priority)
	}
}

func TestAssignPrioritiesDeterministic(t *testing.T) {
	build := func() []Message {
		return []Message{
			text("m0", RoleUser, "a"),
			toolUse("m1", "c1", "shell"),
			toolResult("m2", "c1", "out"),
			text("m3", RoleAssistant, "b"),
			text("m4", RoleUser, "c"),
		}
	}

	first := build()
	second := build()
	AssignPriorities(first, 2, nil)
	AssignPriorities(second, 2, nil)

	for i := range first {
		if first[i].Priority != second[i].Priority {
			t.Fatalf("non-deterministic priority at %d", i)
		}
	}

	// Re-running on already-labelled input must not change anything.
	relabelled := CloneMessages(first)
	AssignPriorities(relabelled, 2, nil)
	if !reflect.DeepEqual(priorities(first), priorities(relabelled)) {
		t.Fatalf("second pass changed priorities: %v vs %v", priorities(first), priorities(relabelled))
	}
}

func priorities(messages []Message) []Priority {
	out := make([]Priority, len(messages))
	for i := range messages {
		out[i] = messages[i].Priority
	}
	return out
}
