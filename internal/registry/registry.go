// Package registry owns the set of fulfiller endpoints that receive orders.
//
// The set is ordered by insertion, holds no duplicates, and is written
// through to storage on every change. Persistence is best-effort: a failed
// save is logged and the in-memory change stays.
package registry

import (
	"context"
	"errors"
	"sync"

	"ridebot/internal/eventbus"
	"ridebot/internal/storage"
	logx "ridebot/pkg/logx"
)

type AddResult int

const (
	Added AddResult = iota
	AlreadyExists
)

func (r AddResult) String() string {
	if r == Added {
		return "added"
	}
	return "already_exists"
}

type RemoveResult int

const (
	Removed RemoveResult = iota
	NotFound
)

func (r RemoveResult) String() string {
	if r == Removed {
		return "removed"
	}
	return "not_found"
}

// Registry is safe for concurrent use. Mutations and their saves run under
// one lock so two operators can never persist stale copies over each other.
type Registry struct {
	mu    sync.Mutex
	ids   []int64
	index map[int64]struct{}

	store storage.Store
	log   logx.Logger
	bus   eventbus.Bus
}

// New returns an empty registry. Call Load to pull the persisted set.
// store may be nil, in which case the registry is memory-only.
func New(store storage.Store, log logx.Logger, bus eventbus.Bus) *Registry {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Registry{index: map[int64]struct{}{}, store: store, log: log, bus: bus}
}

// Load replaces the in-memory set with the persisted one and returns a copy.
// A missing or unreadable store yields an empty set; errors are only logged.
func (r *Registry) Load(ctx context.Context) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ids = nil
	r.index = map[int64]struct{}{}
	if r.store == nil {
		return nil
	}

	stored, err := r.store.LoadFulfillers(ctx)
	if err != nil {
		lvl := r.log.Error
		if errors.Is(err, storage.ErrMalformed) {
			lvl = r.log.Warn
		}
		lvl("fulfiller store unreadable; starting with an empty registry", logx.Err(err))
		return nil
	}
	for _, id := range stored {
		if _, dup := r.index[id]; dup {
			continue
		}
		r.index[id] = struct{}{}
		r.ids = append(r.ids, id)
	}
	if len(stored) != len(r.ids) {
		r.log.Warn("duplicate fulfiller ids collapsed", logx.Int("stored", len(stored)), logx.Int("kept", len(r.ids)))
	}
	r.log.Info("fulfillers loaded", logx.Int("count", len(r.ids)))
	return append([]int64(nil), r.ids...)
}

func (r *Registry) Add(ctx context.Context, id int64) AddResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[id]; ok {
		return AlreadyExists
	}
	r.index[id] = struct{}{}
	r.ids = append(r.ids, id)
	r.persistLocked(ctx)

	eventbus.Publish(r.bus, eventbus.TypeRegistryAdded, eventbus.RegistryChange{ID: id, Total: len(r.ids)})
	r.log.Info("fulfiller added", logx.Int64("id", id), logx.Int("total", len(r.ids)))
	return Added
}

func (r *Registry) Remove(ctx context.Context, id int64) RemoveResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[id]; !ok {
		return NotFound
	}
	delete(r.index, id)
	for i, v := range r.ids {
		if v == id {
			r.ids = append(r.ids[:i:i], r.ids[i+1:]...)
			break
		}
	}
	r.persistLocked(ctx)

	eventbus.Publish(r.bus, eventbus.TypeRegistryRemoved, eventbus.RegistryChange{ID: id, Total: len(r.ids)})
	r.log.Info("fulfiller removed", logx.Int64("id", id), logx.Int("total", len(r.ids)))
	return Removed
}

// List returns an insertion-ordered snapshot.
func (r *Registry) List() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.ids...)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func (r *Registry) Contains(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.index[id]
	return ok
}

func (r *Registry) persistLocked(ctx context.Context) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveFulfillers(ctx, append([]int64(nil), r.ids...)); err != nil {
		r.log.Error("fulfiller store save failed; change kept in memory", logx.Err(err), logx.Int("count", len(r.ids)))
	}
}
