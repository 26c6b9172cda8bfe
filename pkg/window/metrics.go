package window

import (
	"sync"
	"time"
)

// Metrics collects pipeline observability counters.
type Metrics interface {
	// RecordTruncation records one truncation pass.
	RecordTruncation(evicted int, tokensReclaimed int, duration time.Duration)
	// RecordCondensation records a compaction summary replacing a run.
	RecordCondensation(folded int)
	// RecordOverBudget records a pass left over budget by anchored content.
	RecordOverBudget(excessTokens int)
	// Snapshot returns the current counters.
	Snapshot() MetricsSnapshot
	// Reset clears all counters.
	Reset()
}

// MetricsSnapshot is a point-in-time view of pipeline metrics.
type MetricsSnapshot struct {
	Truncations      int64
	MessagesEvicted  int64
	TokensReclaimed  int64
	TruncationTime   time.Duration
	Condensations    int64
	MessagesFolded   int64
	OverBudgetPasses int64
	ExcessTokens     int64
}

// NoOpMetrics discards all measurements.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordTruncation(_, _ int, _ time.Duration) {}
func (NoOpMetrics) RecordCondensation(_ int)                   {}
func (NoOpMetrics) RecordOverBudget(_ int)                     {}
func (NoOpMetrics) Snapshot() MetricsSnapshot                  { return MetricsSnapshot{} }
func (NoOpMetrics) Reset()                                     {}

// InMemoryMetrics is a mutex-guarded in-process collector.
type InMemoryMetrics struct {
	mu       sync.Mutex
	snapshot MetricsSnapshot
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{}
}

func (m *InMemoryMetrics) RecordTruncation(evicted, tokensReclaimed int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.Truncations++
	m.snapshot.MessagesEvicted += int64(evicted)
	m.snapshot.TokensReclaimed += int64(tokensReclaimed)
	m.snapshot.TruncationTime += duration
}

func (m *InMemoryMetrics) RecordCondensation(folded int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.Condensations++
	m.snapshot.MessagesFolded += int64(folded)
}

func (m *InMemoryMetrics) RecordOverBudget(excessTokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.OverBudgetPasses++
	m.snapshot.ExcessTokens += int64(excessTokens)
}

func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func (m *InMemoryMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = MetricsSnapshot{}
}
