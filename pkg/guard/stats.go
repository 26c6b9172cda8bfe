package guard

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Stats aggregates compaction outcomes across sessions.
type Stats struct {
	Truncations     int       `json:"truncations"`
	Condensations   int       `json:"condensations"`
	MessagesEvicted int       `json:"messages_evicted"`
	TokensReclaimed int       `json:"tokens_reclaimed"`
	QualityFailures int       `json:"quality_failures"`
	CascadeBlocks   int       `json:"cascade_blocks"`
	UpdatedAt       time.Time `json:"updated_at"`
}

var statsSchemaMap = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required": []any{
		"truncations", "condensations", "messages_evicted",
		"tokens_reclaimed", "quality_failures", "cascade_blocks", "updated_at",
	},
	"properties": map[string]any{
		"truncations":      map[string]any{"type": "integer", "minimum": 0},
		"condensations":    map[string]any{"type": "integer", "minimum": 0},
		"messages_evicted": map[string]any{"type": "integer", "minimum": 0},
		"tokens_reclaimed": map[string]any{"type": "integer", "minimum": 0},
		"quality_failures": map[string]any{"type": "integer", "minimum": 0},
		"cascade_blocks":   map[string]any{"type": "integer", "minimum": 0},
		"updated_at":       map[string]any{"type": "string"},
	},
}

var (
	statsSchemaLoader     gojsonschema.JSONLoader
	statsSchemaLoaderOnce sync.Once
)

func loadStatsSchema() gojsonschema.JSONLoader {
	statsSchemaLoaderOnce.Do(func() {
		statsSchemaLoader = gojsonschema.NewGoLoader(statsSchemaMap)
	})
	return statsSchemaLoader
}

// validateStats rejects persisted payloads that do not match the schema, so
// a corrupt or hand-edited stats file never poisons the counters.
func validateStats(raw []byte) error {
	result, err := gojsonschema.Validate(loadStatsSchema(), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("stats schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return fmt.Errorf("stats payload invalid: %v", issues)
}

// StatsTracker accumulates counters in memory and persists them through a
// Store as schema-validated JSON.
type StatsTracker struct {
	mu    sync.Mutex
	store Store
	key   string
	stats Stats
	now   func() time.Time
}

// NewStatsTracker builds a tracker. A previously persisted payload is loaded
// when present; a payload that fails validation is discarded and counting
// starts fresh.
func NewStatsTracker(store Store, cfg StatsConfig) *StatsTracker {
	tracker := &StatsTracker{store: store, key: cfg.Key, now: time.Now}
	if store == nil {
		return tracker
	}
	raw, err := store.Read(cfg.Key)
	if err != nil {
		return tracker
	}
	if err := validateStats(raw); err != nil {
		return tracker
	}
	var loaded Stats
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return tracker
	}
	tracker.stats = loaded
	return tracker
}

// RecordTruncation notes one completed truncation pass.
func (s *StatsTracker) RecordTruncation(evicted, tokensReclaimed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Truncations++
	s.stats.MessagesEvicted += evicted
	s.stats.TokensReclaimed += tokensReclaimed
	s.stats.UpdatedAt = s.now()
}

// RecordCondensation notes one condensation.
func (s *StatsTracker) RecordCondensation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Condensations++
	s.stats.UpdatedAt = s.now()
}

// RecordQualityFailure notes a compaction rejected by the quality gate.
func (s *StatsTracker) RecordQualityFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.QualityFailures++
	s.stats.UpdatedAt = s.now()
}

// RecordCascadeBlock notes a pass refused by the cascade protector.
func (s *StatsTracker) RecordCascadeBlock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.CascadeBlocks++
	s.stats.UpdatedAt = s.now()
}

// Snapshot returns the current counters.
func (s *StatsTracker) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Flush persists the counters through the backing store.
func (s *StatsTracker) Flush() error {
	if s.store == nil {
		return errors.New("stats tracker has no backing store")
	}
	s.mu.Lock()
	raw, err := json.MarshalIndent(s.stats, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if err := s.store.Write(s.key, raw); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}
