package evidence

import "testing"

func TestRankOrdersBySignalMatch(t *testing.T) {
	items := []Evidence{
		{Provider: ProviderSearch, Path: "docs/notes.md", Content: "unrelated", Tokens: 50, Score: 0.5},
		{Provider: ProviderSearch, Path: "pkg/window/truncate.go", Content: "func Truncate", Tokens: 50, Score: 0.5},
	}
	signals := Signals{
		Errors: []ErrorSignal{{Path: "pkg/window/truncate.go", Line: 42, Message: "boom"}},
	}

	ranked := NewReranker(Weights{}).Rank(items, signals)
	if ranked[0].Path != "pkg/window/truncate.go" {
		t.Fatalf("error-matched item should rank first, got %s", ranked[0].Path)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Fatalf("scores not descending: %v then %v", ranked[0].Score, ranked[1].Score)
	}
}

func TestRankProviderTrustBreaksTies(t *testing.T) {
	items := []Evidence{
		{Provider: ProviderSearch, Path: "a.go", Tokens: 10, Score: 0.5},
		{Provider: ProviderLSP, Path: "b.go", Tokens: 10, Score: 0.5},
		{Provider: ProviderDiff, Path: "c.go", Tokens: 10, Score: 0.5},
	}

	ranked := NewReranker(Weights{}).Rank(items, Signals{})
	if ranked[0].Provider != ProviderLSP || ranked[1].Provider != ProviderDiff || ranked[2].Provider != ProviderSearch {
		t.Fatalf("trust ordering wrong: %v %v %v", ranked[0].Provider, ranked[1].Provider, ranked[2].Provider)
	}
}

func TestRankRecencyDecay(t *testing.T) {
	items := []Evidence{
		{Provider: ProviderDiff, Path: "old.go", Tokens: 10, Score: 0.5,
			Metadata: map[string]string{"age_seconds": "86400"}},
		{Provider: ProviderDiff, Path: "new.go", Tokens: 10, Score: 0.5,
			Metadata: map[string]string{"age_seconds": "10"}},
	}

	ranked := NewReranker(Weights{}).Rank(items, Signals{})
	if ranked[0].Path != "new.go" {
		t.Fatalf("fresher item should rank first, got %s", ranked[0].Path)
	}
}

func TestRankDeterministicAndNonMutating(t *testing.T) {
	items := []Evidence{
		{Provider: ProviderDiff, Path: "a.go", Tokens: 10, Score: 0.3},
		{Provider: ProviderDiff, Path: "b.go", Tokens: 10, Score: 0.3},
	}
	reranker := NewReranker(Weights{})

	first := reranker.Rank(items, Signals{})
	second := reranker.Rank(items, Signals{})
	for i := range first {
		if first[i].Path != second[i].Path {
			t.Fatalf("ranking not deterministic at %d", i)
		}
	}
	// Equal scores keep input order.
	if first[0].Path != "a.go" {
		t.Fatalf("stable sort violated: %s first", first[0].Path)
	}
	if items[0].Score != 0.3 {
		t.Fatalf("input slice mutated: %v", items[0].Score)
	}
}
