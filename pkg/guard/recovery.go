package guard

import (
	"sync"

	"github.com/contextfold/contextfold/pkg/window"
)

// RecoveryManager keeps recent truncation snapshots in memory so a bad pass
// can be rolled back without touching disk. The store is bounded; the
// oldest snapshot falls off when a new one arrives over the limit.
type RecoveryManager struct {
	mu        sync.Mutex
	max       int
	order     []string
	snapshots map[string]window.Snapshot
}

// NewRecoveryManager builds a manager over merged config.
func NewRecoveryManager(cfg RecoveryConfig) *RecoveryManager {
	return &RecoveryManager{
		max:       cfg.MaxSnapshots,
		snapshots: make(map[string]window.Snapshot),
	}
}

// Record retains a snapshot, evicting the oldest when over the bound.
func (r *RecoveryManager) Record(snapshot window.Snapshot) {
	if snapshot.ID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.snapshots[snapshot.ID]; !exists {
		r.order = append(r.order, snapshot.ID)
	}
	r.snapshots[snapshot.ID] = snapshot
	for len(r.order) > r.max {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.snapshots, oldest)
	}
}

// Restore returns the pre-truncation messages for a snapshot ID.
func (r *RecoveryManager) Restore(id string) ([]window.Message, bool) {
	r.mu.Lock()
	snapshot, ok := r.snapshots[id]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	return snapshot.Restore(), true
}

// Latest returns the most recently recorded snapshot.
func (r *RecoveryManager) Latest() (window.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) == 0 {
		return window.Snapshot{}, false
	}
	return r.snapshots[r.order[len(r.order)-1]], true
}

// Drop discards a snapshot once the caller has committed its truncation.
func (r *RecoveryManager) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.snapshots[id]; !ok {
		return
	}
	delete(r.snapshots, id)
	for i, candidate := range r.order {
		if candidate == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Len reports the retained snapshot count.
func (r *RecoveryManager) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
