package window

import (
	"fmt"
	"time"
)

// Config carries the knobs for a conversation-scoped Manager. Values are
// plain data merged over fixed defaults; nothing in this package reads the
// environment or parses flags.
type Config struct {
	// MaxContextWindow is the model's total context size in tokens.
	MaxContextWindow int
	// OutputReserve is withheld from the window for the model's reply.
	OutputReserve int
	// SystemReserve is withheld for the system prompt and tool schemas.
	SystemReserve int

	// Warning/Critical/Overflow override the registry-resolved thresholds
	// when non-zero.
	WarningThreshold  float64
	CriticalThreshold float64
	OverflowThreshold float64

	// UseAutoCondense lets the caller know the manager expects LLM-based
	// summarization when truncation alone cannot reach the target. The
	// manager never performs condensation itself.
	UseAutoCondense bool

	// PreserveToolPairs keeps invocation/result pairs atomic under
	// truncation. Disabling it is only safe for providers that tolerate
	// orphaned tool results.
	PreserveToolPairs bool

	// AnchorCount messages at each edge of the history are never evicted.
	AnchorCount int

	// MaxCheckpoints bounds the truncation snapshot store.
	MaxCheckpoints int

	// MaxToolOutputChars bounds aged tool result payloads before the
	// scrubbing pass elides them. Zero disables scrubbing.
	MaxToolOutputChars int
	// ProtectedTools are exempt from scrubbing, matched by tool name.
	ProtectedTools []string

	// TokenCacheSize and TokenCacheTTL bound the shared token cache.
	TokenCacheSize int
	TokenCacheTTL  time.Duration
}

// DefaultConfig returns the fixed defaults the engine ships with.
func DefaultConfig() Config {
	return Config{
		MaxContextWindow:   128000,
		OutputReserve:      8192,
		SystemReserve:      4096,
		UseAutoCondense:    true,
		PreserveToolPairs:  true,
		AnchorCount:        2,
		MaxCheckpoints:     5,
		MaxToolOutputChars: 4000,
		TokenCacheSize:     2048,
		TokenCacheTTL:      5 * time.Minute,
	}
}

// setDefaults fills zero fields from DefaultConfig, mirroring how partial
// caller overrides are merged onto the fixed defaults.
func (c *Config) setDefaults() {
	defaults := DefaultConfig()
	if c.MaxContextWindow <= 0 {
		c.MaxContextWindow = defaults.MaxContextWindow
	}
	if c.OutputReserve <= 0 {
		c.OutputReserve = defaults.OutputReserve
	}
	if c.SystemReserve <= 0 {
		c.SystemReserve = defaults.SystemReserve
	}
	if c.AnchorCount <= 0 {
		c.AnchorCount = defaults.AnchorCount
	}
	if c.MaxCheckpoints <= 0 {
		c.MaxCheckpoints = defaults.MaxCheckpoints
	}
	if c.TokenCacheSize <= 0 {
		c.TokenCacheSize = defaults.TokenCacheSize
	}
	if c.TokenCacheTTL <= 0 {
		c.TokenCacheTTL = defaults.TokenCacheTTL
	}
}

// validate performs lightweight validation of caller supplied values.
// Threshold overrides merge field-by-field over registry values at resolve
// time, so a partial override is legal: each set field is range-checked on
// its own, and ordering is checked only between fields the caller set.
// Registry-resolved values are validated at their source.
func (c *Config) validate() error {
	if c.OutputReserve+c.SystemReserve >= c.MaxContextWindow {
		return fmt.Errorf("window: reserves (%d+%d) consume the entire context window (%d)",
			c.OutputReserve, c.SystemReserve, c.MaxContextWindow)
	}

	var errs []string
	check := func(name string, value float64) {
		if value != 0 && (value <= 0 || value >= 1) {
			errs = append(errs, fmt.Sprintf("%s threshold %.3f outside (0,1)", name, value))
		}
	}
	check("warning", c.WarningThreshold)
	check("critical", c.CriticalThreshold)
	check("overflow", c.OverflowThreshold)

	order := func(lo string, loValue float64, hi string, hiValue float64) {
		if loValue > 0 && hiValue > 0 && loValue >= hiValue {
			errs = append(errs, fmt.Sprintf("%s %.3f must be below %s %.3f", lo, loValue, hi, hiValue))
		}
	}
	order("warning", c.WarningThreshold, "critical", c.CriticalThreshold)
	order("critical", c.CriticalThreshold, "overflow", c.OverflowThreshold)
	order("warning", c.WarningThreshold, "overflow", c.OverflowThreshold)

	if len(errs) > 0 {
		return fmt.Errorf("window: invalid threshold overrides: %v", errs)
	}
	return nil
}

// Budget derives the token allowance available for conversation state.
func (c *Config) Budget() int {
	return c.MaxContextWindow - c.OutputReserve - c.SystemReserve
}
