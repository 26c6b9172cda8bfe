// Package guard layers recoverability and quality controls over the window
// pipeline: compaction quality validation, recoverable truncation snapshots,
// cross-session inheritance, cascade protection, disk-backed checkpoint
// persistence, and compaction statistics. Each sub-component is
// independently usable; the Orchestrator composes them lazily from a merged
// configuration and degrades per component instead of failing whole.
package guard
