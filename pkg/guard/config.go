package guard

import "time"

// QualityConfig tunes compaction quality validation.
type QualityConfig struct {
	// MinTokenReduction is the fraction of tokens a compaction must
	// reclaim to count as worthwhile.
	MinTokenReduction float64
	// MaxSummaryShare bounds how much of the compacted history may be
	// summary text before the result is flagged as degenerate.
	MaxSummaryShare float64
}

// RecoveryConfig bounds the in-memory snapshot history.
type RecoveryConfig struct {
	MaxSnapshots int
}

// InheritanceConfig tunes cross-session carry-over.
type InheritanceConfig struct {
	// MaxDecisions bounds how many extracted conclusions are inherited.
	MaxDecisions int
	// MaxAge expires inheritance payloads; zero keeps them forever.
	MaxAge time.Duration
}

// CascadeConfig rate-limits repeated compactions of the same conversation.
type CascadeConfig struct {
	// MinInterval is the shortest allowed gap between two compactions.
	MinInterval time.Duration
	// MaxPerWindow bounds compactions inside RollingWindow.
	MaxPerWindow  int
	RollingWindow time.Duration
}

// CheckpointConfig controls the disk-backed checkpoint store.
type CheckpointConfig struct {
	// Dir is the checkpoint directory. Empty keeps checkpoints in memory.
	Dir string
	// MaxCheckpoints bounds the store; the least recently used checkpoint
	// is evicted on overflow.
	MaxCheckpoints int
}

// StatsConfig controls statistics persistence.
type StatsConfig struct {
	// Key is the persistence key the stats document is stored under.
	Key string
}

// Config aggregates the six sub-component configurations. User values are
// merged over the fixed defaults per sub-config, never globally: supplying
// only a CheckpointConfig leaves every other section at its defaults.
type Config struct {
	Quality     QualityConfig
	Recovery    RecoveryConfig
	Inheritance InheritanceConfig
	Cascade     CascadeConfig
	Checkpoint  CheckpointConfig
	Stats       StatsConfig
}

// DefaultConfig returns the fixed defaults.
func DefaultConfig() Config {
	return Config{
		Quality: QualityConfig{
			MinTokenReduction: 0.10,
			MaxSummaryShare:   0.50,
		},
		Recovery: RecoveryConfig{
			MaxSnapshots: 5,
		},
		Inheritance: InheritanceConfig{
			MaxDecisions: 10,
			MaxAge:       7 * 24 * time.Hour,
		},
		Cascade: CascadeConfig{
			MinInterval:   30 * time.Second,
			MaxPerWindow:  4,
			RollingWindow: 10 * time.Minute,
		},
		Checkpoint: CheckpointConfig{
			MaxCheckpoints: 5,
		},
		Stats: StatsConfig{
			Key: "compaction-stats",
		},
	}
}

// setDefaults merges the fixed defaults into zero-valued fields, one
// sub-config at a time.
func (c *Config) setDefaults() {
	defaults := DefaultConfig()
	if c.Quality.MinTokenReduction <= 0 {
		c.Quality.MinTokenReduction = defaults.Quality.MinTokenReduction
	}
	if c.Quality.MaxSummaryShare <= 0 {
		c.Quality.MaxSummaryShare = defaults.Quality.MaxSummaryShare
	}
	if c.Recovery.MaxSnapshots <= 0 {
		c.Recovery.MaxSnapshots = defaults.Recovery.MaxSnapshots
	}
	if c.Inheritance.MaxDecisions <= 0 {
		c.Inheritance.MaxDecisions = defaults.Inheritance.MaxDecisions
	}
	if c.Inheritance.MaxAge <= 0 {
		c.Inheritance.MaxAge = defaults.Inheritance.MaxAge
	}
	if c.Cascade.MinInterval <= 0 {
		c.Cascade.MinInterval = defaults.Cascade.MinInterval
	}
	if c.Cascade.MaxPerWindow <= 0 {
		c.Cascade.MaxPerWindow = defaults.Cascade.MaxPerWindow
	}
	if c.Cascade.RollingWindow <= 0 {
		c.Cascade.RollingWindow = defaults.Cascade.RollingWindow
	}
	if c.Checkpoint.MaxCheckpoints <= 0 {
		c.Checkpoint.MaxCheckpoints = defaults.Checkpoint.MaxCheckpoints
	}
	if c.Stats.Key == "" {
		c.Stats.Key = defaults.Stats.Key
	}
}
