package guard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/contextfold/contextfold/pkg/window"
)

// Sentinel errors for checkpoint lookups. Callers distinguish a checkpoint
// that never existed from one whose bytes no longer decode.
var (
	ErrNotFound = errors.New("checkpoint not found")
	ErrCorrupt  = errors.New("checkpoint corrupt")
)

// Store is the persistence boundary for checkpoints and stats. Keys are
// opaque names; values are already-encoded payloads.
type Store interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	List() ([]string, error)
	Remove(key string) error
}

// DirStore keeps each key as a file inside a directory.
type DirStore struct {
	dir string
}

// NewDirStore creates the directory if needed and returns a store over it.
func NewDirStore(dir string) (*DirStore, error) {
	if dir == "" {
		return nil, errors.New("store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

func (d *DirStore) path(key string) string {
	return filepath.Join(d.dir, filepath.Base(key))
}

func (d *DirStore) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(d.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (d *DirStore) Write(key string, data []byte) error {
	tmp := d.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, d.path(key))
}

func (d *DirStore) List() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		keys = append(keys, entry.Name())
	}
	sort.Strings(keys)
	return keys, nil
}

func (d *DirStore) Remove(key string) error {
	err := os.Remove(d.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemStore is an in-memory Store for tests and ephemeral sessions.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Read(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemStore) Write(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.data[key] = stored
	return nil
}

func (m *MemStore) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Checkpoint is a durable snapshot of a conversation at a known-good point.
type Checkpoint struct {
	ID          string
	CreatedAt   time.Time
	Model       string
	Label       string
	TotalTokens int
	Messages    []window.Message
	Inheritance *Inheritance
}

// Wire records. Message parts are an interface type, so the encoded form
// carries a kind discriminator and concrete fields.
type partRecord struct {
	Kind      string `cbor:"1,keyasint"`
	Text      string `cbor:"2,keyasint,omitempty"`
	CallID    string `cbor:"3,keyasint,omitempty"`
	Name      string `cbor:"4,keyasint,omitempty"`
	Arguments string `cbor:"5,keyasint,omitempty"`
	Content   string `cbor:"6,keyasint,omitempty"`
	IsError   bool   `cbor:"7,keyasint,omitempty"`
}

const (
	partKindText       = "text"
	partKindToolUse    = "tool_use"
	partKindToolResult = "tool_result"
)

type messageRecord struct {
	ID               string       `cbor:"1,keyasint,omitempty"`
	Role             string       `cbor:"2,keyasint"`
	Text             string       `cbor:"3,keyasint,omitempty"`
	Parts            []partRecord `cbor:"4,keyasint,omitempty"`
	Tokens           int          `cbor:"5,keyasint,omitempty"`
	Priority         int          `cbor:"6,keyasint,omitempty"`
	ReasoningContent string       `cbor:"7,keyasint,omitempty"`
	IsSummary        bool         `cbor:"8,keyasint,omitempty"`
	CondenseID       string       `cbor:"9,keyasint,omitempty"`
	CondenseParent   string       `cbor:"10,keyasint,omitempty"`
}

type checkpointRecord struct {
	ID          string          `cbor:"1,keyasint"`
	CreatedAt   time.Time       `cbor:"2,keyasint"`
	Model       string          `cbor:"3,keyasint,omitempty"`
	Label       string          `cbor:"4,keyasint,omitempty"`
	TotalTokens int             `cbor:"5,keyasint"`
	Messages    []messageRecord `cbor:"6,keyasint"`
	Inheritance *Inheritance    `cbor:"7,keyasint,omitempty"`
}

func toRecord(checkpoint Checkpoint) (checkpointRecord, error) {
	record := checkpointRecord{
		ID:          checkpoint.ID,
		CreatedAt:   checkpoint.CreatedAt,
		Model:       checkpoint.Model,
		Label:       checkpoint.Label,
		TotalTokens: checkpoint.TotalTokens,
		Inheritance: checkpoint.Inheritance,
	}
	for i := range checkpoint.Messages {
		m := &checkpoint.Messages[i]
		mr := messageRecord{
			ID:               m.ID,
			Role:             string(m.Role),
			Text:             m.Text,
			Tokens:           m.Tokens,
			Priority:         int(m.Priority),
			ReasoningContent: m.ReasoningContent,
			IsSummary:        m.IsSummary,
			CondenseID:       m.CondenseID,
			CondenseParent:   m.CondenseParent,
		}
		for _, part := range m.Parts {
			switch p := part.(type) {
			case *window.TextPart:
				mr.Parts = append(mr.Parts, partRecord{Kind: partKindText, Text: p.Text})
			case *window.ToolUsePart:
				mr.Parts = append(mr.Parts, partRecord{
					Kind: partKindToolUse, CallID: p.CallID, Name: p.Name, Arguments: p.Arguments,
				})
			case *window.ToolResultPart:
				mr.Parts = append(mr.Parts, partRecord{
					Kind: partKindToolResult, CallID: p.CallID, Content: p.Content, IsError: p.IsError,
				})
			default:
				return checkpointRecord{}, fmt.Errorf("message %s: unencodable part %T", m.ID, part)
			}
		}
		record.Messages = append(record.Messages, mr)
	}
	return record, nil
}

func fromRecord(record checkpointRecord) (Checkpoint, error) {
	checkpoint := Checkpoint{
		ID:          record.ID,
		CreatedAt:   record.CreatedAt,
		Model:       record.Model,
		Label:       record.Label,
		TotalTokens: record.TotalTokens,
		Inheritance: record.Inheritance,
	}
	for _, mr := range record.Messages {
		m := window.Message{
			ID:               mr.ID,
			Role:             window.Role(mr.Role),
			Text:             mr.Text,
			Tokens:           mr.Tokens,
			Priority:         window.Priority(mr.Priority),
			ReasoningContent: mr.ReasoningContent,
			IsSummary:        mr.IsSummary,
			CondenseID:       mr.CondenseID,
			CondenseParent:   mr.CondenseParent,
		}
		for _, pr := range mr.Parts {
			switch pr.Kind {
			case partKindText:
				m.Parts = append(m.Parts, &window.TextPart{Text: pr.Text})
			case partKindToolUse:
				m.Parts = append(m.Parts, &window.ToolUsePart{
					CallID: pr.CallID, Name: pr.Name, Arguments: pr.Arguments,
				})
			case partKindToolResult:
				m.Parts = append(m.Parts, &window.ToolResultPart{
					CallID: pr.CallID, Content: pr.Content, IsError: pr.IsError,
				})
			default:
				return Checkpoint{}, fmt.Errorf("message %s: unknown part kind %q", mr.ID, pr.Kind)
			}
		}
		checkpoint.Messages = append(checkpoint.Messages, m)
	}
	return checkpoint, nil
}

const checkpointSuffix = ".ckpt.zst"

// CheckpointStore persists checkpoints as zstd-compressed CBOR, bounded by
// a least-recently-used cap.
type CheckpointStore struct {
	mu      sync.Mutex
	store   Store
	max     int
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	access  map[string]time.Time
	now     func() time.Time
}

// NewCheckpointStore builds a checkpoint store over a backing Store.
func NewCheckpointStore(store Store, cfg CheckpointConfig) (*CheckpointStore, error) {
	if store == nil {
		return nil, errors.New("backing store is required")
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}
	return &CheckpointStore{
		store:   store,
		max:     cfg.MaxCheckpoints,
		encoder: encoder,
		decoder: decoder,
		access:  make(map[string]time.Time),
		now:     time.Now,
	}, nil
}

func checkpointKey(id string) string {
	return id + checkpointSuffix
}

// Save persists a checkpoint and evicts the least recently used entries
// over the cap. A missing ID is filled in.
func (c *CheckpointStore) Save(ctx context.Context, checkpoint Checkpoint) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if checkpoint.ID == "" {
		checkpoint.ID = uuid.NewString()
	}
	if checkpoint.CreatedAt.IsZero() {
		checkpoint.CreatedAt = c.now()
	}

	record, err := toRecord(checkpoint)
	if err != nil {
		return "", fmt.Errorf("encode checkpoint: %w", err)
	}
	raw, err := cbor.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encode checkpoint: %w", err)
	}
	compressed := c.encoder.EncodeAll(raw, nil)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := c.store.Write(checkpointKey(checkpoint.ID), compressed); err != nil {
		return "", fmt.Errorf("write checkpoint: %w", err)
	}

	c.mu.Lock()
	c.access[checkpoint.ID] = c.now()
	c.mu.Unlock()

	if err := c.evict(ctx); err != nil {
		return checkpoint.ID, err
	}
	return checkpoint.ID, nil
}

// Load reads a checkpoint back. Missing checkpoints return ErrNotFound;
// entries that fail to decompress or decode return ErrCorrupt.
func (c *CheckpointStore) Load(ctx context.Context, id string) (Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}
	compressed, err := c.store.Read(checkpointKey(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Checkpoint{}, fmt.Errorf("checkpoint %s: %w", id, ErrNotFound)
		}
		return Checkpoint{}, fmt.Errorf("read checkpoint %s: %w", id, err)
	}
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}

	raw, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint %s: %w: %v", id, ErrCorrupt, err)
	}
	var record checkpointRecord
	if err := cbor.Unmarshal(raw, &record); err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint %s: %w: %v", id, ErrCorrupt, err)
	}
	checkpoint, err := fromRecord(record)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint %s: %w: %v", id, ErrCorrupt, err)
	}

	c.mu.Lock()
	c.access[id] = c.now()
	c.mu.Unlock()
	return checkpoint, nil
}

// List returns checkpoint IDs present in the backing store.
func (c *CheckpointStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys, err := c.store.List()
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, key := range keys {
		if strings.HasSuffix(key, checkpointSuffix) {
			ids = append(ids, strings.TrimSuffix(key, checkpointSuffix))
		}
	}
	return ids, nil
}

// Remove deletes a checkpoint. Removing a missing checkpoint is not an
// error.
func (c *CheckpointStore) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.access, id)
	c.mu.Unlock()
	return c.store.Remove(checkpointKey(id))
}

// evict drops the least recently used checkpoints until the count fits the
// cap. Checkpoints never loaded this process fall back to their stored
// creation time.
func (c *CheckpointStore) evict(ctx context.Context) error {
	ids, err := c.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) <= c.max {
		return nil
	}

	type aged struct {
		id string
		at time.Time
	}
	entries := make([]aged, 0, len(ids))
	for _, id := range ids {
		c.mu.Lock()
		at, known := c.access[id]
		c.mu.Unlock()
		if !known {
			checkpoint, loadErr := c.Load(ctx, id)
			if loadErr != nil {
				// Unreadable entries are the first to go.
				at = time.Time{}
			} else {
				at = checkpoint.CreatedAt
			}
		}
		entries = append(entries, aged{id: id, at: at})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })

	for _, entry := range entries[:len(entries)-c.max] {
		if err := c.Remove(ctx, entry.id); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the compression codecs.
func (c *CheckpointStore) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
