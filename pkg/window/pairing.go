package window

// ToolPair records the message indices of one invocation/result association.
// ResultIndex is -1 while the result has not been located.
type ToolPair struct {
	CallID      string
	UseIndex    int
	ResultIndex int
}

// PairAnalysis is the output of a single pass over the history.
type PairAnalysis struct {
	// Pairs maps invocation identifier to its located pair.
	Pairs map[string]ToolPair
	// Unpaired lists invocation identifiers with no located result, in
	// order of appearance. These carry orphan risk: the provider will
	// reject a history that answers them later if the invocation is gone.
	Unpaired []string
	// byIndex maps a message index to the call IDs it participates in.
	byIndex map[int][]string
}

// AnalyzeToolPairs walks the messages once and associates every tool
// invocation with the message holding its result. Pairs are not assumed to
// be adjacent; a result may trail its invocation by several messages,
// interleaved with ordinary turns.
func AnalyzeToolPairs(messages []Message) *PairAnalysis {
	analysis := &PairAnalysis{
		Pairs:   make(map[string]ToolPair),
		byIndex: make(map[int][]string),
	}

	for i := range messages {
		for _, id := range messages[i].ToolCallIDs() {
			if _, seen := analysis.Pairs[id]; seen {
				// Duplicate invocation IDs are a caller bug; first wins.
				continue
			}
			analysis.Pairs[id] = ToolPair{CallID: id, UseIndex: i, ResultIndex: -1}
			analysis.byIndex[i] = append(analysis.byIndex[i], id)
		}
		for _, id := range messages[i].ToolResultIDs() {
			pair, seen := analysis.Pairs[id]
			if !seen || pair.ResultIndex >= 0 {
				// A result without a prior invocation (or a second
				// result for the same call) is ignored; the filter
				// stages treat the message as ordinary content.
				continue
			}
			pair.ResultIndex = i
			analysis.Pairs[id] = pair
			analysis.byIndex[i] = append(analysis.byIndex[i], id)
		}
	}

	for i := range messages {
		for _, id := range analysis.byIndex[i] {
			pair := analysis.Pairs[id]
			if pair.UseIndex == i && pair.ResultIndex < 0 {
				analysis.Unpaired = append(analysis.Unpaired, id)
			}
		}
	}
	return analysis
}

// PartnerOf returns the index of the other half of any complete pair the
// message at index participates in, or -1.
func (a *PairAnalysis) PartnerOf(index int) int {
	for _, id := range a.byIndex[index] {
		pair := a.Pairs[id]
		if pair.ResultIndex < 0 {
			continue
		}
		if pair.UseIndex == index {
			return pair.ResultIndex
		}
		if pair.ResultIndex == index {
			return pair.UseIndex
		}
	}
	return -1
}

// Paired reports whether the message at index belongs to a complete pair.
func (a *PairAnalysis) Paired(index int) bool {
	return a.PartnerOf(index) >= 0
}
