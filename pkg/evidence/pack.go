package evidence

import (
	"fmt"
	"sort"
	"time"
)

const (
	// defaultMinEvidenceItems is the acceptance floor below which assembly
	// degrades to reference mode.
	defaultMinEvidenceItems = 3
	// fallbackReferenceLimit bounds how many top-ranked items survive as
	// references in fallback mode.
	fallbackReferenceLimit = 10
	// fallbackReferenceTokens is the fixed accounting cost of one
	// path:line reference.
	fallbackReferenceTokens = 10
)

// BuilderConfig configures pack assembly.
type BuilderConfig struct {
	// TotalBudget is the token allowance for the entire pack.
	TotalBudget int
	// MinEvidenceItems triggers fallback mode when fewer full items
	// survive budget fitting. Zero means the default of 3.
	MinEvidenceItems int
	// DisableFallback keeps full-content assembly even under scarcity.
	DisableFallback bool
	// Weights override the reranker defaults when non-zero.
	Weights Weights
}

// BuildInput carries everything one build consumes. Evidence and working
// set entries arrive with their token costs precomputed by the caller's
// tokenizer; the pack performs no counting of its own.
type BuildInput struct {
	Summary    *ProjectSummary
	WorkingSet []WorkingSetEntry
	Evidence   []Evidence
	ErrorText  string
	DiffText   string
	UserQuery  string
}

// Builder assembles evidence packs. Stateless; one Builder may serve any
// number of concurrent Build calls.
type Builder struct {
	cfg      BuilderConfig
	reranker *Reranker
}

// NewBuilder constructs a Builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.MinEvidenceItems <= 0 {
		cfg.MinEvidenceItems = defaultMinEvidenceItems
	}
	return &Builder{cfg: cfg, reranker: NewReranker(cfg.Weights)}
}

// Build runs allocate → extract → rank → fit and assembles the pack,
// degrading to reference mode under budget scarcity.
func (b *Builder) Build(input BuildInput) Pack {
	buildStart := time.Now()
	var pack Pack

	allocStart := time.Now()
	allocator := NewAllocator(b.cfg.TotalBudget)
	alloc := allocator.Allocate()
	pack.Telemetry.AllocateTime = time.Since(allocStart)

	signals := ExtractSignals(SignalInput{
		ErrorText: input.ErrorText,
		DiffText:  input.DiffText,
		UserQuery: input.UserQuery,
	})

	rankStart := time.Now()
	ranked := b.reranker.Rank(input.Evidence, signals)
	pack.Telemetry.RankTime = time.Since(rankStart)
	pack.Telemetry.CandidateCount = len(ranked)

	fitStart := time.Now()
	accepted := FitToBudget(ranked, alloc)
	pack.Telemetry.FitTime = time.Since(fitStart)

	if len(accepted) < b.cfg.MinEvidenceItems && !b.cfg.DisableFallback {
		b.assembleFallback(&pack, input, ranked)
	} else {
		b.assembleNormal(&pack, input, accepted, alloc)
	}

	pack.Telemetry.AcceptedCount = len(pack.Evidence)
	evidenceTokens := 0
	for i := range pack.Evidence {
		evidenceTokens += pack.Evidence[i].Tokens
	}
	pack.Telemetry.TokensSaved = alloc.Evidence - evidenceTokens
	pack.Telemetry.BuildTime = time.Since(buildStart)

	if alloc.Total > 0 {
		pack.BudgetUsed = float64(pack.TotalTokens) / float64(alloc.Total)
	}
	return pack
}

// assembleNormal builds the full pack: complete summary, working set fit
// most-recently-modified first, and the budgeted evidence.
func (b *Builder) assembleNormal(pack *Pack, input BuildInput, accepted []Evidence, alloc BudgetAllocation) {
	pack.Summary = copySummary(input.Summary)
	pack.Evidence = accepted

	entries := append([]WorkingSetEntry(nil), input.WorkingSet...)
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].LastModified.After(entries[b].LastModified)
	})
	spent := 0
	for _, entry := range entries {
		if entry.Tokens <= 0 {
			continue
		}
		if spent+entry.Tokens > alloc.WorkingSet {
			continue
		}
		pack.WorkingSet = append(pack.WorkingSet, entry)
		spent += entry.Tokens
	}

	pack.TotalTokens = summaryTokens(pack.Summary) + spent
	for i := range pack.Evidence {
		pack.TotalTokens += pack.Evidence[i].Tokens
	}
}

// assembleFallback discards full evidence content and emits fixed-cost
// path:line references for the top-ranked items. The summary survives
// intact; the working set is dropped entirely.
func (b *Builder) assembleFallback(pack *Pack, input BuildInput, ranked []Evidence) {
	pack.Telemetry.Fallback = true
	pack.Summary = copySummary(input.Summary)
	pack.WorkingSet = nil

	limit := fallbackReferenceLimit
	if len(ranked) < limit {
		limit = len(ranked)
	}
	for _, item := range ranked[:limit] {
		pack.Evidence = append(pack.Evidence, Evidence{
			Provider: item.Provider,
			Path:     item.Path,
			Range:    item.Range,
			Content:  fmt.Sprintf("// See %s:%d", item.Path, item.Range.Start),
			Tokens:   fallbackReferenceTokens,
			Score:    item.Score,
		})
	}

	pack.TotalTokens = summaryTokens(pack.Summary) + len(pack.Evidence)*fallbackReferenceTokens
}

func copySummary(summary *ProjectSummary) *ProjectSummary {
	if summary == nil {
		return nil
	}
	out := *summary
	out.Constraints = append([]string(nil), summary.Constraints...)
	out.Facts = append([]string(nil), summary.Facts...)
	out.Decisions = append([]string(nil), summary.Decisions...)
	out.Questions = append([]string(nil), summary.Questions...)
	out.NextActions = append([]string(nil), summary.NextActions...)
	return &out
}

func summaryTokens(summary *ProjectSummary) int {
	if summary == nil {
		return 0
	}
	return summary.Tokens
}
