package window

// EffectiveHistory resolves which messages the model actually sees once
// compaction summaries are present: any message whose CondenseParent names a
// summary present in the list is superseded and excluded. That includes an
// older summary folded into a newer one. Messages whose parent summary is
// absent are kept. Presence is computed on the input list, which keeps the
// filter idempotent: filtering an already-filtered list is a no-op.
func EffectiveHistory(messages []Message) []Message {
	present := make(map[string]bool)
	for i := range messages {
		if messages[i].IsSummary && messages[i].CondenseID != "" {
			present[messages[i].CondenseID] = true
		}
	}
	if len(present) == 0 {
		return CloneMessages(messages)
	}

	effective := make([]Message, 0, len(messages))
	for i := range messages {
		if present[messages[i].CondenseParent] {
			continue
		}
		effective = append(effective, messages[i])
	}
	return effective
}
