package guard

import (
	"context"
	"fmt"
	"sync"

	"github.com/contextfold/contextfold/pkg/window"
)

// Options configures an Orchestrator. Zero-value fields fall back to
// defaults; a nil Store selects an in-memory store unless Checkpoint.Dir
// names a directory.
type Options struct {
	Config Config
	Store  Store
	Logger window.Logger
}

// Orchestrator owns the hardening layer around the compaction pipeline:
// quality gating, snapshot recovery, cross-session inheritance, cascade
// protection, durable checkpoints, and persisted stats. Components
// initialize together; a component that fails to come up is recorded and
// the rest keep working.
type Orchestrator struct {
	mu     sync.Mutex
	cfg    Config
	store  Store
	logger window.Logger

	initialized bool
	closed      bool
	failed      map[string]error

	quality     *QualityValidator
	recovery    *RecoveryManager
	inheritor   *Inheritor
	cascade     *CascadeProtector
	checkpoints *CheckpointStore
	stats       *StatsTracker
}

// NewOrchestrator builds an orchestrator from options. Initialize must be
// called before the components are used.
func NewOrchestrator(opts Options) *Orchestrator {
	cfg := opts.Config
	cfg.setDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = &window.NoOpLogger{}
	}
	return &Orchestrator{
		cfg:    cfg,
		store:  opts.Store,
		logger: logger,
		failed: make(map[string]error),
	}
}

// Initialize brings up every component. It is idempotent; repeat calls are
// no-ops. Component failures are best effort: each is logged and recorded
// under FailedComponents, and initialization continues.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initialized {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if o.store == nil {
		if o.cfg.Checkpoint.Dir != "" {
			store, err := NewDirStore(o.cfg.Checkpoint.Dir)
			if err != nil {
				o.fail(ctx, "store", err)
				o.store = NewMemStore()
			} else {
				o.store = store
			}
		} else {
			o.store = NewMemStore()
		}
	}

	o.quality = NewQualityValidator(o.cfg.Quality)
	o.recovery = NewRecoveryManager(o.cfg.Recovery)
	o.inheritor = NewInheritor(o.cfg.Inheritance)
	o.cascade = NewCascadeProtector(o.cfg.Cascade)
	o.stats = NewStatsTracker(o.store, o.cfg.Stats)

	checkpoints, err := NewCheckpointStore(o.store, o.cfg.Checkpoint)
	if err != nil {
		o.fail(ctx, "checkpoints", err)
	} else {
		o.checkpoints = checkpoints
	}

	o.initialized = true
	o.logger.Debug(ctx, "guard initialized",
		window.Field("failed_components", len(o.failed)))
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, component string, err error) {
	o.failed[component] = err
	o.logger.Error(ctx, "guard component failed to initialize", err,
		window.Field("component", component))
}

// FailedComponents reports components that did not come up, keyed by name.
func (o *Orchestrator) FailedComponents() map[string]error {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]error, len(o.failed))
	for name, err := range o.failed {
		out[name] = err
	}
	return out
}

// Quality returns the compaction quality gate.
func (o *Orchestrator) Quality() *QualityValidator { return o.quality }

// Recovery returns the in-memory snapshot manager.
func (o *Orchestrator) Recovery() *RecoveryManager { return o.recovery }

// Inheritor returns the cross-session context carrier.
func (o *Orchestrator) Inheritor() *Inheritor { return o.inheritor }

// Cascade returns the compaction rate limiter.
func (o *Orchestrator) Cascade() *CascadeProtector { return o.cascade }

// Checkpoints returns the durable checkpoint store. A store that failed to
// initialize is retried here, so a transient storage problem degrades the
// orchestrator instead of disabling checkpoints for its lifetime.
func (o *Orchestrator) Checkpoints() *CheckpointStore {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.checkpoints == nil && o.initialized && !o.closed {
		checkpoints, err := NewCheckpointStore(o.store, o.cfg.Checkpoint)
		if err != nil {
			o.failed["checkpoints"] = err
			return nil
		}
		delete(o.failed, "checkpoints")
		o.checkpoints = checkpoints
	}
	return o.checkpoints
}

// Stats returns the persisted counter tracker.
func (o *Orchestrator) Stats() *StatsTracker { return o.stats }

// AllowCompaction consults the cascade protector and counts refusals.
func (o *Orchestrator) AllowCompaction(ctx context.Context) bool {
	if o.cascade == nil {
		return true
	}
	if o.cascade.Allow() {
		return true
	}
	if o.stats != nil {
		o.stats.RecordCascadeBlock()
	}
	o.logger.Warn(ctx, "compaction refused by cascade protector",
		window.Field("recent_passes", o.cascade.Recent()))
	return false
}

// ReviewCompaction runs the quality gate over a finished truncation,
// updates stats, and keeps the snapshot recoverable when the pass failed.
// The report says whether the caller should commit the result or restore.
func (o *Orchestrator) ReviewCompaction(ctx context.Context, report window.BudgetReport, before []window.Message) QualityReport {
	if o.cascade != nil && report.Truncated {
		o.cascade.Record()
	}

	quality := o.quality.ValidateCompaction(before, report.Messages)
	if o.stats != nil {
		if report.Truncated {
			o.stats.RecordTruncation(len(report.Evicted), quality.TokensBefore-quality.TokensAfter)
		}
		if !quality.OK {
			o.stats.RecordQualityFailure()
		}
	}

	if report.Snapshot != nil && o.recovery != nil {
		o.recovery.Record(*report.Snapshot)
		if !quality.OK {
			o.logger.Warn(ctx, "compaction failed quality gate",
				window.Field("issues", quality.Issues),
				window.Field("snapshot_id", report.Snapshot.ID))
		}
	}
	return quality
}

// Checkpoint persists the current history when the checkpoint store is up.
func (o *Orchestrator) Checkpoint(ctx context.Context, label, model string, messages []window.Message, totalTokens int) (string, error) {
	checkpoints := o.Checkpoints()
	if checkpoints == nil {
		o.mu.Lock()
		err := o.failed["checkpoints"]
		o.mu.Unlock()
		return "", fmt.Errorf("checkpoint store unavailable: %w", err)
	}
	return checkpoints.Save(ctx, Checkpoint{
		Label:       label,
		Model:       model,
		TotalTokens: totalTokens,
		Messages:    window.CloneMessages(messages),
	})
}

// Shutdown flushes stats and releases resources. It is idempotent, and
// flush failures are logged rather than propagated so teardown never
// blocks the host.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || !o.initialized {
		o.closed = true
		return
	}
	o.closed = true

	if o.stats != nil {
		if err := o.stats.Flush(); err != nil {
			o.logger.Error(ctx, "stats flush failed on shutdown", err)
		}
	}
	if o.checkpoints != nil {
		o.checkpoints.Close()
	}
	o.logger.Debug(ctx, "guard shut down")
}
