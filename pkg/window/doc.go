// Package window manages the finite token budget of an LLM conversation.
//
// The package decides, on every turn, which prior conversation state can be
// kept inside a model's context window without breaking protocol invariants:
// tool invocations and their results are evicted atomically, anchored
// messages survive every pass, and compaction summaries supersede the
// messages they were folded from. The pipeline (threshold lookup, tool
// pairing, priority assignment, truncation, effective-history filtering) is
// pure and synchronous; the token cache is the only shared mutable state and
// is safe for concurrent use.
package window
