package swap

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ksred/coinkong/internal/types"
)

// Registry holds every swap created by this process, split into the swaps
// still being worked on and the ones that reached a terminal status.
type Registry struct {
	mu        sync.RWMutex
	active    map[string]*types.Swap
	completed map[string]*types.Swap
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		active:    make(map[string]*types.Swap),
		completed: make(map[string]*types.Swap),
	}
}

// Insert adds a new swap to the active partition
func (r *Registry) Insert(s types.Swap) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[s.ID]; ok {
		return fmt.Errorf("%w: %s", types.ErrDuplicateSwap, s.ID)
	}
	if _, ok := r.completed[s.ID]; ok {
		return fmt.Errorf("%w: %s", types.ErrDuplicateSwap, s.ID)
	}

	rec := s
	r.active[s.ID] = &rec
	return nil
}

// Complete moves a swap from active to completed. Moving a swap that is
// already completed is a no-op.
func (r *Registry) Complete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.active[id]
	if !ok {
		if _, done := r.completed[id]; done {
			return nil
		}
		return fmt.Errorf("%w: %s", types.ErrSwapNotFound, id)
	}

	delete(r.active, id)
	r.completed[id] = rec
	return nil
}

// Get returns a copy of the swap from either partition
func (r *Registry) Get(id string) (types.Swap, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rec, ok := r.lookup(id); ok {
		return *rec, nil
	}
	return types.Swap{}, fmt.Errorf("%w: %s", types.ErrSwapNotFound, id)
}

// Update applies fn to the stored swap under the write lock. A status change
// made by fn must be a legal forward transition or the update is discarded.
func (r *Registry) Update(id string, fn func(s *types.Swap) error) (types.Swap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.lookup(id)
	if !ok {
		return types.Swap{}, fmt.Errorf("%w: %s", types.ErrSwapNotFound, id)
	}

	draft := *rec
	if err := fn(&draft); err != nil {
		return *rec, err
	}
	if draft.Status != rec.Status && !rec.Status.CanTransitionTo(draft.Status) {
		return *rec, fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, rec.Status, draft.Status)
	}
	draft.ID = rec.ID

	*rec = draft
	return draft, nil
}

// All returns every swap ordered by creation time
func (r *Registry) All() []types.Swap {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Swap, 0, len(r.active)+len(r.completed))
	for _, rec := range r.active {
		out = append(out, *rec)
	}
	for _, rec := range r.completed {
		out = append(out, *rec)
	}
	sortByCreation(out)
	return out
}

// ByUser returns the swaps requested by userID, oldest first
func (r *Registry) ByUser(userID string) []types.Swap {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []types.Swap
	for _, part := range []map[string]*types.Swap{r.active, r.completed} {
		for _, rec := range part {
			if rec.UserID == userID {
				out = append(out, *rec)
			}
		}
	}
	sortByCreation(out)
	return out
}

// IsActive reports whether the swap is still in the active partition
func (r *Registry) IsActive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.active[id]
	return ok
}

// ActiveCount is the number of swaps still in progress
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// CompletedCount is the number of swaps that reached a terminal status
func (r *Registry) CompletedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.completed)
}

// caller holds the lock
func (r *Registry) lookup(id string) (*types.Swap, bool) {
	if rec, ok := r.active[id]; ok {
		return rec, true
	}
	rec, ok := r.completed[id]
	return rec, ok
}

func sortByCreation(swaps []types.Swap) {
	sort.SliceStable(swaps, func(i, j int) bool {
		if swaps[i].CreatedAt.Equal(swaps[j].CreatedAt) {
			return swaps[i].ID < swaps[j].ID
		}
		return swaps[i].CreatedAt.Before(swaps[j].CreatedAt)
	})
}

// IDGenerator hands out swap ids of the form KONG-<unix seconds>-<seq>.
// The sequence is process-wide so two swaps created in the same second
// still get distinct ids.
type IDGenerator struct {
	seq atomic.Uint64
}

// Next returns KONG-<unix seconds>-<sequence> for now
func (g *IDGenerator) Next(now time.Time) string {
	return fmt.Sprintf("KONG-%d-%d", now.Unix(), g.seq.Add(1))
}
