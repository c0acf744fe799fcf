package core

import (
	"sync"
	"weak"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Registry hands out identifiers for objects it does not own. Entries hold
// weak pointers, so registering an object never extends its lifetime; a
// lookup after the object was destroyed or collected reports
// ErrAlreadyDestroyed.
type Registry[T any] struct {
	mu     sync.RWMutex
	owners map[uuid.UUID]weak.Pointer[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		owners: make(map[uuid.UUID]weak.Pointer[T]),
	}
}

// Acquire registers owner and returns its new identifier.
func (r *Registry[T]) Acquire(owner *T) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	r.owners[id] = weak.Make(owner)
	r.mu.Unlock()
	return id
}

// Release forgets id. Releasing an unknown id is an error, nothing is done.
func (r *Registry[T]) Release(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[id]; !ok {
		return errors.Newf("identifier %s is not registered. Nothing was done", id)
	}
	delete(r.owners, id)
	return nil
}

// Resolve upgrades id to a strong pointer.
func (r *Registry[T]) Resolve(id uuid.UUID) (*T, error) {
	r.mu.RLock()
	wp, ok := r.owners[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrAlreadyDestroyed, "identifier %s", id)
	}
	v := wp.Value()
	if v == nil {
		r.mu.Lock()
		delete(r.owners, id)
		r.mu.Unlock()
		return nil, errors.Wrapf(ErrAlreadyDestroyed, "identifier %s", id)
	}
	return v, nil
}

// Live returns the identifiers whose objects are still reachable.
func (r *Registry[T]) Live() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(r.owners))
	for id, wp := range r.owners {
		if wp.Value() == nil {
			delete(r.owners, id)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
