package window

import (
	"context"
	"time"
)

// Manager is the conversation-scoped owner of the budgeting pipeline. It
// holds the only long-lived state in this package (the token cache) plus the
// injected registry, logger, and metrics. One Manager serves one
// conversation; callers hand each EnsureBudget call its own message copy.
type Manager struct {
	cfg      Config
	registry *ThresholdRegistry
	cache    *TokenCache
	logger   Logger
	metrics  Metrics
}

// ManagerOptions configures a Manager. Zero-valued fields fall back to
// defaults: a fresh registry, the heuristic estimator, a no-op logger, and
// no-op metrics.
type ManagerOptions struct {
	Config    Config
	Registry  *ThresholdRegistry
	Tokenizer Tokenizer
	Logger    Logger
	Metrics   Metrics
}

// NewManager builds a Manager after merging and validating the config.
func NewManager(opts ManagerOptions) (*Manager, error) {
	cfg := opts.Config
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		registry = NewThresholdRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = &NoOpLogger{}
	}
	var metrics Metrics = opts.Metrics
	if metrics == nil {
		metrics = NoOpMetrics{}
	}

	return &Manager{
		cfg:      cfg,
		registry: registry,
		cache:    NewTokenCache(opts.Tokenizer, cfg.TokenCacheSize, cfg.TokenCacheTTL),
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Config returns the merged configuration the manager runs with.
func (m *Manager) Config() Config { return m.cfg }

// Cache exposes the shared token cache, e.g. for evidence-pack accounting.
func (m *Manager) Cache() *TokenCache { return m.cache }

// BudgetReport describes one EnsureBudget pass.
type BudgetReport struct {
	Messages    []Message
	Evicted     []Message
	Snapshot    *Snapshot
	TotalTokens int
	Budget      int
	Target      int
	Thresholds  ThresholdConfig
	// Truncated reports whether any eviction happened.
	Truncated bool
	// OverBudget reports that anchored content alone exceeds the target.
	// The history is returned as-is; condensation is the caller's call.
	OverBudget bool
	// CondenseAdvised is set when usage crossed the critical threshold and
	// UseAutoCondense is enabled.
	CondenseAdvised bool
}

// EnsureBudget runs the full pipeline for a model: threshold lookup, tool
// pairing, priority assignment, tool-output scrubbing, truncation when usage
// crosses the critical threshold, and effective-history filtering. The input
// slice is not modified.
func (m *Manager) EnsureBudget(ctx context.Context, messages []Message, model string) BudgetReport {
	thresholds := m.resolveThresholds(model)
	budget := m.cfg.Budget()

	report := BudgetReport{
		Budget:     budget,
		Thresholds: thresholds,
	}

	history := EffectiveHistory(messages)
	ScrubToolOutputs(history, m.cfg.MaxToolOutputChars, m.cfg.AnchorCount, m.cfg.ProtectedTools)

	total, _ := HistoryTokens(history, m.cache.Count)
	report.TotalTokens = total

	criticalTokens := int(thresholds.Critical * float64(budget))
	if total <= criticalTokens {
		report.Messages = history
		return report
	}

	// Reduce down to the warning mark so each pass buys real headroom
	// instead of truncating again on the next turn.
	target := int(thresholds.Warning * float64(budget))
	report.Target = target

	analysis := AnalyzeToolPairs(history)
	AssignPriorities(history, m.cfg.AnchorCount, analysis)

	start := time.Now()
	result := Truncate(history, TruncateOptions{
		TargetTokens:      target,
		Tokenizer:         m.cache.Count,
		PreserveToolPairs: m.cfg.PreserveToolPairs,
		Analysis:          analysis,
	})
	elapsed := time.Since(start)

	report.Messages = result.Messages
	report.Evicted = result.Evicted
	report.Snapshot = &result.Snapshot
	report.TotalTokens = result.TotalTokens
	report.Truncated = len(result.Evicted) > 0
	report.OverBudget = result.OverBudget
	report.CondenseAdvised = result.OverBudget && m.cfg.UseAutoCondense

	m.metrics.RecordTruncation(len(result.Evicted), total-result.TotalTokens, elapsed)
	if result.OverBudget {
		m.metrics.RecordOverBudget(result.TotalTokens - target)
		m.logger.Warn(ctx, "anchored content exceeds truncation target",
			Field("model", model),
			Field("tokens", result.TotalTokens),
			Field("target", target))
	} else {
		m.logger.Debug(ctx, "history truncated",
			Field("model", model),
			Field("evicted", len(result.Evicted)),
			Field("tokens", result.TotalTokens),
			Field("duration", elapsed))
	}
	return report
}

// resolveThresholds prefers explicit config overrides, then the registry.
func (m *Manager) resolveThresholds(model string) ThresholdConfig {
	cfg := m.registry.Config(model, ProfileBalanced)
	if m.cfg.WarningThreshold > 0 {
		cfg.Warning = m.cfg.WarningThreshold
	}
	if m.cfg.CriticalThreshold > 0 {
		cfg.Critical = m.cfg.CriticalThreshold
	}
	if m.cfg.OverflowThreshold > 0 {
		cfg.Overflow = m.cfg.OverflowThreshold
	}
	return cfg
}
