package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/contextfold/contextfold/pkg/window"
)

func newCheckpointStore(t *testing.T, store Store, cfg CheckpointConfig) *CheckpointStore {
	t.Helper()
	checkpoints, err := NewCheckpointStore(store, cfg)
	require.NoError(t, err)
	t.Cleanup(checkpoints.Close)
	return checkpoints
}

func TestCheckpointRoundTrip(t *testing.T) {
	checkpoints := newCheckpointStore(t, NewMemStore(), DefaultConfig().Checkpoint)
	ctx := context.Background()

	original := Checkpoint{
		Model:       "gpt-4o",
		Label:       "before refactor",
		TotalTokens: 420,
		Messages: []window.Message{
			{
				ID:               "m1",
				Role:             window.RoleAssistant,
				ReasoningContent: "Decision: checkpoint before the risky edit",
				Parts: []window.Part{
					&window.TextPart{Text: "running the edit now"},
					&window.ToolUsePart{CallID: "call-1", Name: "apply_patch", Arguments: `{"file":"main.go"}`},
				},
			},
			{
				ID:    "m2",
				Role:  window.RoleUser,
				Parts: []window.Part{&window.ToolResultPart{CallID: "call-1", Content: "patched", IsError: false}},
			},
			summaryMsg("s1", "session summary", 30),
		},
		Inheritance: &Inheritance{Summary: "carried context", CreatedAt: time.Now()},
	}

	id, err := checkpoints.Save(ctx, original)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	loaded, err := checkpoints.Load(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, loaded.ID)
	require.Equal(t, "gpt-4o", loaded.Model)
	require.Equal(t, "before refactor", loaded.Label)
	require.Equal(t, 420, loaded.TotalTokens)
	require.Len(t, loaded.Messages, 3)

	first := loaded.Messages[0]
	require.Equal(t, window.RoleAssistant, first.Role)
	require.Equal(t, "Decision: checkpoint before the risky edit", first.ReasoningContent)
	require.Len(t, first.Parts, 2)
	use, ok := first.Parts[1].(*window.ToolUsePart)
	require.True(t, ok)
	require.Equal(t, "call-1", use.CallID)
	require.Equal(t, "apply_patch", use.Name)

	result, ok := loaded.Messages[1].Parts[0].(*window.ToolResultPart)
	require.True(t, ok)
	require.Equal(t, "patched", result.Content)

	require.True(t, loaded.Messages[2].IsSummary)
	require.NotNil(t, loaded.Inheritance)
	require.Equal(t, "carried context", loaded.Inheritance.Summary)
}

func TestCheckpointLoadMissing(t *testing.T) {
	checkpoints := newCheckpointStore(t, NewMemStore(), DefaultConfig().Checkpoint)

	_, err := checkpoints.Load(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCheckpointLoadCorrupt(t *testing.T) {
	store := NewMemStore()
	checkpoints := newCheckpointStore(t, store, DefaultConfig().Checkpoint)

	require.NoError(t, store.Write(checkpointKey("bad"), []byte("not zstd at all")))

	_, err := checkpoints.Load(context.Background(), "bad")
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestCheckpointEvictsLeastRecentlyUsed(t *testing.T) {
	checkpoints := newCheckpointStore(t, NewMemStore(), CheckpointConfig{MaxCheckpoints: 2})
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	checkpoints.now = func() time.Time { return clock }

	for i, id := range []string{"c1", "c2", "c3"} {
		clock = base.Add(time.Duration(i) * time.Minute)
		_, err := checkpoints.Save(ctx, Checkpoint{ID: id, Messages: []window.Message{textMsg("m", 10)}})
		require.NoError(t, err)
	}

	ids, err := checkpoints.List(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"c2", "c3"}, ids)

	_, err = checkpoints.Load(ctx, "c1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCheckpointDirStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewDirStore(dir)
	require.NoError(t, err)
	checkpoints := newCheckpointStore(t, store, DefaultConfig().Checkpoint)

	id, err := checkpoints.Save(ctx, Checkpoint{
		Label:    "durable",
		Messages: []window.Message{textMsg("m1", 10)},
	})
	require.NoError(t, err)

	reopenedStore, err := NewDirStore(dir)
	require.NoError(t, err)
	reopened := newCheckpointStore(t, reopenedStore, DefaultConfig().Checkpoint)

	loaded, err := reopened.Load(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "durable", loaded.Label)
	require.Len(t, loaded.Messages, 1)
}

func TestCheckpointSaveHonorsCancellation(t *testing.T) {
	store := NewMemStore()
	checkpoints := newCheckpointStore(t, store, DefaultConfig().Checkpoint)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := checkpoints.Save(ctx, Checkpoint{Messages: []window.Message{textMsg("m1", 10)}})
	require.ErrorIs(t, err, context.Canceled)

	keys, err := store.List()
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestCheckpointRemoveMissingIsNoError(t *testing.T) {
	checkpoints := newCheckpointStore(t, NewMemStore(), DefaultConfig().Checkpoint)
	require.NoError(t, checkpoints.Remove(context.Background(), "never-saved"))
}
