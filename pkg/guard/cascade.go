package guard

import (
	"sync"
	"time"
)

// CascadeProtector rate-limits compaction passes. Back-to-back truncations
// usually mean a runaway loop where each pass frees too little; the
// protector enforces a minimum spacing and a ceiling inside a rolling
// window.
type CascadeProtector struct {
	mu     sync.Mutex
	cfg    CascadeConfig
	passes []time.Time
	now    func() time.Time
}

// NewCascadeProtector builds a protector over merged config.
func NewCascadeProtector(cfg CascadeConfig) *CascadeProtector {
	return &CascadeProtector{cfg: cfg, now: time.Now}
}

// Allow reports whether another compaction pass may run now.
func (c *CascadeProtector) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.prune(now)

	if len(c.passes) > 0 {
		last := c.passes[len(c.passes)-1]
		if now.Sub(last) < c.cfg.MinInterval {
			return false
		}
	}
	return len(c.passes) < c.cfg.MaxPerWindow
}

// Record notes that a compaction pass ran.
func (c *CascadeProtector) Record() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.prune(now)
	c.passes = append(c.passes, now)
}

// Recent reports how many passes fall inside the rolling window.
func (c *CascadeProtector) Recent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune(c.now())
	return len(c.passes)
}

func (c *CascadeProtector) prune(now time.Time) {
	cutoff := now.Add(-c.cfg.RollingWindow)
	kept := c.passes[:0]
	for _, at := range c.passes {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	c.passes = kept
}
