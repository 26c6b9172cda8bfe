package window

import (
	"reflect"
	"testing"
)

func TestEffectiveHistoryHidesSupersededMessages(t *testing.T) {
	messages := []Message{
		text("m0", RoleUser, "old question"),
		{ID: "m1", Role: RoleAssistant, Text: "old answer", CondenseParent: "g1"},
		{ID: "m2", Role: RoleUser, Text: "old follow-up", CondenseParent: "g1"},
		{ID: "sum", Role: RoleAssistant, Text: "recap", IsSummary: true, CondenseID: "g1"},
		text("m3", RoleUser, "new question"),
	}

	effective := EffectiveHistory(messages)
	if got := ids(effective); !reflect.DeepEqual(got, []string{"m0", "sum", "m3"}) {
		t.Fatalf("effective = %v, want [m0 sum m3]", got)
	}
}

func TestEffectiveHistoryHidesSupersededSummary(t *testing.T) {
	// A second condensation folded the first summary into a newer one; only
	// the newest summary stays visible.
	messages := []Message{
		{ID: "m0", Role: RoleUser, Text: "folded turn", CondenseParent: "g1"},
		{ID: "old-sum", Role: RoleAssistant, Text: "first recap", IsSummary: true, CondenseID: "g1", CondenseParent: "g2"},
		{ID: "new-sum", Role: RoleAssistant, Text: "second recap", IsSummary: true, CondenseID: "g2"},
		text("m1", RoleUser, "live"),
	}

	effective := EffectiveHistory(messages)
	if got := ids(effective); !reflect.DeepEqual(got, []string{"new-sum", "m1"}) {
		t.Fatalf("effective = %v, want [new-sum m1]", got)
	}

	again := EffectiveHistory(effective)
	if !reflect.DeepEqual(ids(effective), ids(again)) {
		t.Fatalf("filter not idempotent over nested summaries: %v vs %v", ids(effective), ids(again))
	}
}

func TestEffectiveHistoryKeepsOrphanedChildren(t *testing.T) {
	// The parent summary is absent, so the folded messages stay visible.
	messages := []Message{
		{ID: "m0", Role: RoleUser, Text: "still visible", CondenseParent: "gone"},
		text("m1", RoleAssistant, "reply"),
	}

	effective := EffectiveHistory(messages)
	if len(effective) != 2 {
		t.Fatalf("effective = %v, want both messages", ids(effective))
	}
}

func TestEffectiveHistoryIdempotent(t *testing.T) {
	messages := []Message{
		text("m0", RoleUser, "q"),
		{ID: "m1", Role: RoleAssistant, Text: "folded", CondenseParent: "g1"},
		{ID: "sum", Role: RoleAssistant, Text: "recap", IsSummary: true, CondenseID: "g1"},
	}

	once := EffectiveHistory(messages)
	twice := EffectiveHistory(once)
	if !reflect.DeepEqual(ids(once), ids(twice)) {
		t.Fatalf("filter not idempotent: %v vs %v", ids(once), ids(twice))
	}
}

func TestEffectiveHistoryNoSummariesIsIdentity(t *testing.T) {
	messages := buildConversation(5, 10)
	effective := EffectiveHistory(messages)
	if !reflect.DeepEqual(ids(messages), ids(effective)) {
		t.Fatalf("identity filter changed the list: %v", ids(effective))
	}
}
