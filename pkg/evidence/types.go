package evidence

import "time"

// Provider identifies the source of an evidence item.
type Provider string

const (
	ProviderDiff   Provider = "diff"
	ProviderLSP    Provider = "lsp"
	ProviderSearch Provider = "search"
)

// LineRange locates an evidence span inside its file.
type LineRange struct {
	Start int
	End   int
}

// Evidence is one ranked snippet of supporting material considered for
// inclusion in the pack.
type Evidence struct {
	Provider Provider
	Path     string
	Range    LineRange
	Content  string
	Tokens   int
	// Score is the caller-supplied base relevance in [0,1]; the reranker
	// replaces it with the weighted multi-feature score.
	Score    float64
	Metadata map[string]string
}

// WorkingSetEntry is an actively-edited file included in context
// independent of evidence ranking.
type WorkingSetEntry struct {
	Path         string
	Content      string
	Tokens       int
	LastModified time.Time
}

// ProjectSummary carries the rolling distilled state of the project.
type ProjectSummary struct {
	Goal        string
	Constraints []string
	Facts       []string
	Decisions   []string
	Questions   []string
	NextActions []string
	Tokens      int
}

// BudgetAllocation splits the total token budget across the pack's
// consumers. Computed fresh per build.
type BudgetAllocation struct {
	Total       int
	Summary     int
	WorkingSet  int
	Evidence    int
	PerProvider map[Provider]int
}

// Telemetry reports how a build spent its budget and time.
type Telemetry struct {
	AllocateTime time.Duration
	RankTime     time.Duration
	FitTime      time.Duration
	BuildTime    time.Duration

	CandidateCount int
	AcceptedCount  int
	// TokensSaved is the evidence budget left unspent (or reclaimed by
	// fallback references) versus the raw allocation.
	TokensSaved int
	Fallback    bool
}

// Pack is the assembled result returned to the caller. Build-once,
// immutable, per request.
type Pack struct {
	Summary     *ProjectSummary
	WorkingSet  []WorkingSetEntry
	Evidence    []Evidence
	TotalTokens int
	BudgetUsed  float64
	Telemetry   Telemetry
}
