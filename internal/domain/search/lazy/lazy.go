// Package lazy implements two-phase deferred loading: Request registers the
// keys to load and returns a handle, Resolve loads them once and caches the
// result under that handle.
package lazy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// ErrUnknownHandle is returned for handles the resolver never issued.
var ErrUnknownHandle = errors.New("unknown lazy handle")

// Handle identifies one deferred load.
type Handle string

// LoadFunc loads values for keys. Keys it cannot find are omitted.
type LoadFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Resolver issues handles and resolves each at most once. Concurrent
// Resolve calls for the same handle share one load; failed loads are not
// cached and may be retried.
type Resolver[K comparable, V any] struct {
	load LoadFunc[K, V]

	mu       sync.Mutex
	pending  map[Handle][]K
	resolved map[Handle]map[K]V
	group    singleflight.Group
}

// New creates a resolver around load.
func New[K comparable, V any](load LoadFunc[K, V]) *Resolver[K, V] {
	return &Resolver[K, V]{
		load:     load,
		pending:  make(map[Handle][]K),
		resolved: make(map[Handle]map[K]V),
	}
}

// Request registers keys for a later load and returns its handle.
func (r *Resolver[K, V]) Request(keys []K) Handle {
	h := Handle(uuid.Must(uuid.NewV7()).String())
	r.mu.Lock()
	r.pending[h] = append([]K(nil), keys...)
	r.mu.Unlock()
	return h
}

// Resolved reports whether h has already been loaded.
func (r *Resolver[K, V]) Resolved(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.resolved[h]
	return ok
}

// Resolve returns the values for h, loading them on first use.
func (r *Resolver[K, V]) Resolve(ctx context.Context, h Handle) (map[K]V, error) {
	r.mu.Lock()
	if out, ok := r.resolved[h]; ok {
		r.mu.Unlock()
		return out, nil
	}
	keys, ok := r.pending[h]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}

	v, err, _ := r.group.Do(string(h), func() (any, error) {
		r.mu.Lock()
		if out, done := r.resolved[h]; done {
			r.mu.Unlock()
			return out, nil
		}
		r.mu.Unlock()

		out, err := r.load(ctx, keys)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = make(map[K]V)
		}
		r.mu.Lock()
		r.resolved[h] = out
		delete(r.pending, h)
		r.mu.Unlock()
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[K]V), nil
}
