package window

import (
	"time"

	"github.com/google/uuid"
)

// TruncateOptions selects the budget and tokenizer for one truncation pass.
type TruncateOptions struct {
	// TargetTokens is the budget the remaining history must fit.
	TargetTokens int
	// Tokenizer is used for messages without a precomputed cost. Nil falls
	// back to EstimateTokens; pass a TokenCache tokenizer to share counts
	// across passes.
	Tokenizer Tokenizer
	// PreserveToolPairs keeps invocation/result pairs atomic. When false,
	// pair partners are evicted independently.
	PreserveToolPairs bool
	// Analysis is reused when the caller already ran AnalyzeToolPairs on
	// this exact message slice. Nil recomputes.
	Analysis *PairAnalysis
}

// Snapshot captures the pre-truncation state so a pass can be rolled back.
// Snapshots hold ID-indexed copies, never back-pointers, and serialize
// trivially.
type Snapshot struct {
	ID        string
	CreatedAt time.Time
	Messages  []Message
}

// TruncateResult reports one truncation pass. OverBudget is a reported, not
// corrected, condition: when unevictable messages alone exceed the target,
// the result is returned over budget and the caller decides (warn, condense,
// or proceed).
type TruncateResult struct {
	Messages    []Message
	Evicted     []Message
	Snapshot    Snapshot
	TotalTokens int
	OverBudget  bool
}

// evictionTiers orders the tiers from most disposable to most protected;
// anchors are never evicted.
var evictionTiers = []Priority{PriorityDisposable, PriorityNormal, PriorityToolPair}

// Truncate produces a reduced message set honoring pair atomicity and
// priority ordering. Within a tier eviction is oldest-first; a paired
// message always takes its partner with it in the same pass, unless the
// partner is anchored, in which case the pair is locked and neither half is
// removed. The pass runs in O(n) over the history.
func Truncate(messages []Message, opts TruncateOptions) TruncateResult {
	count := opts.Tokenizer
	if count == nil {
		count = EstimateTokens
	}
	analysis := opts.Analysis
	if analysis == nil {
		analysis = AnalyzeToolPairs(messages)
	}

	total, per := HistoryTokens(messages, count)
	result := TruncateResult{
		Snapshot: Snapshot{
			ID:        uuid.NewString(),
			CreatedAt: time.Now(),
			Messages:  CloneMessages(messages),
		},
	}

	evicted := make([]bool, len(messages))
	locked := make([]bool, len(messages))

	evict := func(i int) {
		evicted[i] = true
		total -= per[i]
	}

	for _, tier := range evictionTiers {
		if total <= opts.TargetTokens {
			break
		}
		for i := range messages {
			if total <= opts.TargetTokens {
				break
			}
			if evicted[i] || locked[i] || messages[i].Priority != tier {
				continue
			}

			partner := -1
			if opts.PreserveToolPairs {
				partner = analysis.PartnerOf(i)
			}
			if partner >= 0 && !evicted[partner] {
				if messages[partner].Priority == PriorityAnchor {
					// Anchored partner locks the whole pair.
					locked[i] = true
					locked[partner] = true
					continue
				}
				evict(partner)
			}
			evict(i)
		}
	}

	for i := range messages {
		if evicted[i] {
			result.Evicted = append(result.Evicted, messages[i])
		} else {
			result.Messages = append(result.Messages, messages[i])
		}
	}
	result.TotalTokens = total
	result.OverBudget = total > opts.TargetTokens
	return result
}

// Restore returns the message set captured by a snapshot. The copy keeps the
// snapshot itself immutable so it can be restored more than once.
func (s *Snapshot) Restore() []Message {
	return CloneMessages(s.Messages)
}
