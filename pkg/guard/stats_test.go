package guard

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatsFlushAndReload(t *testing.T) {
	store := NewMemStore()
	cfg := DefaultConfig().Stats

	tracker := NewStatsTracker(store, cfg)
	tracker.RecordTruncation(3, 1200)
	tracker.RecordTruncation(1, 300)
	tracker.RecordCondensation()
	tracker.RecordQualityFailure()
	tracker.RecordCascadeBlock()
	require.NoError(t, tracker.Flush())

	reloaded := NewStatsTracker(store, cfg).Snapshot()
	require.Equal(t, 2, reloaded.Truncations)
	require.Equal(t, 4, reloaded.MessagesEvicted)
	require.Equal(t, 1500, reloaded.TokensReclaimed)
	require.Equal(t, 1, reloaded.Condensations)
	require.Equal(t, 1, reloaded.QualityFailures)
	require.Equal(t, 1, reloaded.CascadeBlocks)
	require.False(t, reloaded.UpdatedAt.IsZero())
}

func TestStatsDiscardsUnparseablePayload(t *testing.T) {
	store := NewMemStore()
	cfg := DefaultConfig().Stats
	require.NoError(t, store.Write(cfg.Key, []byte("{truncations: lots")))

	stats := NewStatsTracker(store, cfg).Snapshot()
	require.Equal(t, Stats{}, stats)
}

func TestStatsDiscardsSchemaViolations(t *testing.T) {
	store := NewMemStore()
	cfg := DefaultConfig().Stats

	payload, err := json.Marshal(map[string]any{
		"truncations":      -3,
		"condensations":    0,
		"messages_evicted": 0,
		"tokens_reclaimed": 0,
		"quality_failures": 0,
		"cascade_blocks":   0,
		"updated_at":       time.Now().Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.NoError(t, store.Write(cfg.Key, payload))

	stats := NewStatsTracker(store, cfg).Snapshot()
	require.Equal(t, Stats{}, stats)
}

func TestStatsDiscardsUnknownFields(t *testing.T) {
	store := NewMemStore()
	cfg := DefaultConfig().Stats
	require.NoError(t, store.Write(cfg.Key, []byte(`{"truncations": 1, "bogus": true}`)))

	stats := NewStatsTracker(store, cfg).Snapshot()
	require.Equal(t, Stats{}, stats)
}

func TestStatsFlushWithoutStore(t *testing.T) {
	tracker := NewStatsTracker(nil, DefaultConfig().Stats)
	tracker.RecordCondensation()
	require.Error(t, tracker.Flush())
}
