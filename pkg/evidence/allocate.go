package evidence

// Fixed proportional allocation rules. The summary is cheap and always
// worth its share; evidence takes the largest slice because it is the only
// consumer that degrades gracefully.
const (
	summaryShare    = 0.15
	workingSetShare = 0.25
	evidenceShare   = 0.60
)

// Per-provider shares of the evidence slice.
var providerShares = map[Provider]float64{
	ProviderDiff:   0.40,
	ProviderLSP:    0.35,
	ProviderSearch: 0.25,
}

// Allocator computes budget splits for pack assembly.
type Allocator struct {
	total int
}

// NewAllocator builds an allocator over the configured total token budget.
func NewAllocator(totalBudget int) *Allocator {
	if totalBudget < 0 {
		totalBudget = 0
	}
	return &Allocator{total: totalBudget}
}

// Allocate splits the total budget using the fixed proportional rules. The
// allocation is computed fresh on every call.
func (a *Allocator) Allocate() BudgetAllocation {
	alloc := BudgetAllocation{
		Total:       a.total,
		Summary:     int(float64(a.total) * summaryShare),
		WorkingSet:  int(float64(a.total) * workingSetShare),
		Evidence:    int(float64(a.total) * evidenceShare),
		PerProvider: make(map[Provider]int, len(providerShares)),
	}
	for provider, share := range providerShares {
		alloc.PerProvider[provider] = int(float64(alloc.Evidence) * share)
	}
	return alloc
}

// FitToBudget greedily accepts ranked evidence under the aggregate evidence
// cap and the per-provider caps. An item that would overflow its provider
// cap is skipped; the first item that would overflow the aggregate cap
// stops the fit entirely. Items are never split.
func FitToBudget(ranked []Evidence, alloc BudgetAllocation) []Evidence {
	var accepted []Evidence
	spent := 0
	perProvider := make(map[Provider]int, len(alloc.PerProvider))

	for _, item := range ranked {
		if item.Tokens <= 0 {
			continue
		}
		if spent+item.Tokens > alloc.Evidence {
			break
		}
		limit, capped := alloc.PerProvider[item.Provider]
		if capped && perProvider[item.Provider]+item.Tokens > limit {
			continue
		}
		accepted = append(accepted, item)
		spent += item.Tokens
		perProvider[item.Provider] += item.Tokens
	}
	return accepted
}
