package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/contextfold/contextfold/pkg/window"
)

func newOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	orchestrator := NewOrchestrator(opts)
	require.NoError(t, orchestrator.Initialize(context.Background()))
	t.Cleanup(func() { orchestrator.Shutdown(context.Background()) })
	return orchestrator
}

func TestOrchestratorInitializeIsIdempotent(t *testing.T) {
	orchestrator := newOrchestrator(t, Options{Store: NewMemStore()})
	require.NoError(t, orchestrator.Initialize(context.Background()))

	require.NotNil(t, orchestrator.Quality())
	require.NotNil(t, orchestrator.Recovery())
	require.NotNil(t, orchestrator.Inheritor())
	require.NotNil(t, orchestrator.Cascade())
	require.NotNil(t, orchestrator.Checkpoints())
	require.NotNil(t, orchestrator.Stats())
	require.Empty(t, orchestrator.FailedComponents())
}

func TestOrchestratorAllowCompactionBlocksAndCounts(t *testing.T) {
	orchestrator := newOrchestrator(t, Options{
		Store: NewMemStore(),
		Config: Config{
			Cascade: CascadeConfig{
				MinInterval:   time.Second,
				MaxPerWindow:  1,
				RollingWindow: time.Hour,
			},
		},
	})

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	orchestrator.Cascade().now = func() time.Time { return clock }

	ctx := context.Background()
	require.True(t, orchestrator.AllowCompaction(ctx))
	orchestrator.Cascade().Record()

	clock = base.Add(time.Minute)
	require.False(t, orchestrator.AllowCompaction(ctx))
	require.Equal(t, 1, orchestrator.Stats().Snapshot().CascadeBlocks)
}

func TestOrchestratorReviewCompaction(t *testing.T) {
	orchestrator := newOrchestrator(t, Options{Store: NewMemStore()})
	ctx := context.Background()

	before := []window.Message{
		textMsg("m1", 100), textMsg("m2", 100), textMsg("m3", 100), textMsg("m4", 100),
	}
	after := []window.Message{textMsg("m3", 100), textMsg("m4", 100)}
	snapshot := snapshotWith("snap-1", before...)

	quality := orchestrator.ReviewCompaction(ctx, window.BudgetReport{
		Messages:  after,
		Evicted:   before[:2],
		Snapshot:  &snapshot,
		Truncated: true,
	}, before)

	require.True(t, quality.OK)

	stats := orchestrator.Stats().Snapshot()
	require.Equal(t, 1, stats.Truncations)
	require.Equal(t, 2, stats.MessagesEvicted)
	require.Equal(t, 200, stats.TokensReclaimed)
	require.Equal(t, 0, stats.QualityFailures)

	restored, ok := orchestrator.Recovery().Restore("snap-1")
	require.True(t, ok)
	require.Len(t, restored, 4)
}

func TestOrchestratorReviewCompactionFlagsBadPass(t *testing.T) {
	orchestrator := newOrchestrator(t, Options{Store: NewMemStore()})

	before := []window.Message{textMsg("m1", 100), textMsg("m2", 100)}
	// Nothing reclaimed; the quality gate should reject the pass.
	after := []window.Message{textMsg("m1", 100), textMsg("m2", 100)}
	snapshot := snapshotWith("snap-1", before...)

	quality := orchestrator.ReviewCompaction(context.Background(), window.BudgetReport{
		Messages:  after,
		Snapshot:  &snapshot,
		Truncated: true,
	}, before)

	require.False(t, quality.OK)
	require.Equal(t, 1, orchestrator.Stats().Snapshot().QualityFailures)

	_, ok := orchestrator.Recovery().Restore("snap-1")
	require.True(t, ok)
}

func TestOrchestratorCheckpointRoundTrip(t *testing.T) {
	orchestrator := newOrchestrator(t, Options{Store: NewMemStore()})
	ctx := context.Background()

	messages := []window.Message{textMsg("m1", 10), textMsg("m2", 10)}
	id, err := orchestrator.Checkpoint(ctx, "milestone", "gpt-4o", messages, 20)
	require.NoError(t, err)

	loaded, err := orchestrator.Checkpoints().Load(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "milestone", loaded.Label)
	require.Equal(t, 20, loaded.TotalTokens)
	require.Len(t, loaded.Messages, 2)
}

func TestOrchestratorShutdownFlushesStats(t *testing.T) {
	store := NewMemStore()
	orchestrator := NewOrchestrator(Options{Store: store})
	require.NoError(t, orchestrator.Initialize(context.Background()))

	orchestrator.Stats().RecordTruncation(2, 500)
	orchestrator.Shutdown(context.Background())

	raw, err := store.Read(DefaultConfig().Stats.Key)
	require.NoError(t, err)
	require.NoError(t, validateStats(raw))

	// Repeat shutdowns are no-ops.
	orchestrator.Shutdown(context.Background())
}

func TestOrchestratorDirStoreFromConfig(t *testing.T) {
	dir := t.TempDir()
	orchestrator := newOrchestrator(t, Options{
		Config: Config{Checkpoint: CheckpointConfig{Dir: dir}},
	})

	ctx := context.Background()
	id, err := orchestrator.Checkpoint(ctx, "on disk", "", []window.Message{textMsg("m1", 10)}, 10)
	require.NoError(t, err)

	loaded, err := orchestrator.Checkpoints().Load(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "on disk", loaded.Label)
}
