package window

// AssignPriorities labels every message in place with its eviction tier:
// the first and last anchorCount messages and every compaction summary are
// anchored, both halves of a complete tool pair share the pair tier, and
// everything else is normal. The pass is deterministic for identical input;
// recency ordering inside a tier is resolved by the truncation engine, which
// evicts oldest-first.
func AssignPriorities(messages []Message, anchorCount int, analysis *PairAnalysis) {
	if analysis == nil {
		analysis = AnalyzeToolPairs(messages)
	}

	for i := range messages {
		switch {
		case messages[i].IsSummary:
			messages[i].Priority = PriorityAnchor
		case i < anchorCount || i >= len(messages)-anchorCount:
			messages[i].Priority = PriorityAnchor
		case analysis.Paired(i):
			messages[i].Priority = PriorityToolPair
		case messages[i].Priority == PriorityDisposable:
			// Caller-flagged disposables keep their tier.
		default:
			messages[i].Priority = PriorityNormal
		}
	}
}
