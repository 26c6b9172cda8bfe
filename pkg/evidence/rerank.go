package evidence

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Weights configure the multi-feature reranking score. Each feature is
// normalized to [0,1] before weighting.
type Weights struct {
	Recency       float64
	Relevance     float64
	ProviderTrust float64
	SignalMatch   float64
}

// DefaultWeights are the fixed documented defaults: relevance dominates,
// explicit signal matches outrank recency, provider trust breaks ties.
func DefaultWeights() Weights {
	return Weights{
		Recency:       0.20,
		Relevance:     0.40,
		ProviderTrust: 0.15,
		SignalMatch:   0.25,
	}
}

// providerTrust ranks sources by how often their items survive review:
// code-navigation results are precise, diffs are near-precise, search hits
// are speculative.
var providerTrust = map[Provider]float64{
	ProviderLSP:    1.0,
	ProviderDiff:   0.9,
	ProviderSearch: 0.7,
}

// recencyHalfLife controls the decay of the recency feature for items
// carrying an age_seconds metadata entry.
const recencyHalfLife = 30 * time.Minute

// Reranker scores and orders evidence.
type Reranker struct {
	weights Weights
}

// NewReranker builds a reranker; zero weights fall back to the defaults.
func NewReranker(weights Weights) *Reranker {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Reranker{weights: weights}
}

// Rank returns a new slice sorted descending by the weighted multi-feature
// score. Input order breaks ties, keeping ranking deterministic; the input
// slice is never modified.
func (r *Reranker) Rank(items []Evidence, signals Signals) []Evidence {
	ranked := append([]Evidence(nil), items...)
	for i := range ranked {
		ranked[i].Score = r.score(&ranked[i], signals)
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})
	return ranked
}

func (r *Reranker) score(item *Evidence, signals Signals) float64 {
	w := r.weights
	return w.Relevance*clamp01(item.Score) +
		w.Recency*recencyFeature(item) +
		w.ProviderTrust*providerTrust[item.Provider] +
		w.SignalMatch*signalMatchFeature(item, signals)
}

// recencyFeature decays exponentially with the item's age; items without an
// age_seconds metadata entry sit at the midpoint.
func recencyFeature(item *Evidence) float64 {
	raw, ok := item.Metadata["age_seconds"]
	if !ok {
		return 0.5
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds < 0 {
		return 0.5
	}
	age := time.Duration(seconds) * time.Second
	return clamp01(1.0 / (1.0 + float64(age)/float64(recencyHalfLife)))
}

// signalMatchFeature rewards items the extracted signals point at: error
// locations and diff hunks match by path, query terms match by path or
// content.
func signalMatchFeature(item *Evidence, signals Signals) float64 {
	match := 0.0
	for _, e := range signals.Errors {
		if e.Path != "" && samePath(e.Path, item.Path) {
			match = maxFloat(match, 1.0)
			if item.Range.Start <= e.Line && e.Line <= item.Range.End {
				return 1.0
			}
		}
	}
	for _, hunk := range signals.DiffHunks {
		if samePath(hunk.Path, item.Path) {
			match = maxFloat(match, 0.8)
		}
	}
	lowerPath := strings.ToLower(item.Path)
	lowerContent := strings.ToLower(item.Content)
	for _, term := range signals.QueryTerms {
		if strings.Contains(lowerPath, term) {
			match = maxFloat(match, 0.6)
		} else if strings.Contains(lowerContent, term) {
			match = maxFloat(match, 0.4)
		}
	}
	return match
}

func samePath(a, b string) bool {
	return strings.EqualFold(strings.TrimPrefix(a, "./"), strings.TrimPrefix(b, "./"))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
