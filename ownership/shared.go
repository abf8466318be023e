package ownership

import (
	"sync"
	"sync/atomic"
)

type sharedCell[T any] struct {
	mu       sync.RWMutex
	value    T
	owners   atomic.Int64
	poisoned atomic.Bool
}

type sharedRef[T any] struct {
	cell     *sharedCell[T]
	released atomic.Bool
}

func newShared[T any](value T) *sharedRef[T] {
	cell := &sharedCell[T]{value: value}
	cell.owners.Store(1)
	return &sharedRef[T]{cell: cell}
}

func (r *sharedRef[T]) Mode() Mode { return Shared }

func (r *sharedRef[T]) Clone() Ref[T] {
	if r.released.Load() {
		clone := &sharedRef[T]{cell: r.cell}
		clone.released.Store(true)
		return clone
	}
	r.cell.owners.Add(1)
	return &sharedRef[T]{cell: r.cell}
}

func (r *sharedRef[T]) With(fn func(*T) error) error {
	return r.access(r.cell.mu.RLock, r.cell.mu.RUnlock, fn)
}

func (r *sharedRef[T]) WithMut(fn func(*T) error) error {
	return r.access(r.cell.mu.Lock, r.cell.mu.Unlock, fn)
}

func (r *sharedRef[T]) access(lock, unlock func(), fn func(*T) error) error {
	if r.released.Load() {
		return ErrReleased
	}
	c := r.cell

	lock()
	if c.poisoned.Load() {
		unlock()
		return ErrConcurrencyFailure
	}
	if c.owners.Load() == 0 {
		unlock()
		return ErrReleased
	}

	// a callback that does not return normally leaves the value in an
	// unknown state, the guard is poisoned before it is released.
	completed := false
	defer func() {
		if !completed {
			c.poisoned.Store(true)
		}
		unlock()
	}()

	err := fn(&c.value)
	completed = true
	return err
}

func (r *sharedRef[T]) Downgrade() Weak[T] {
	return sharedWeak[T]{cell: r.cell}
}

// Release never takes the cell's mutex: when the count reaches zero no other
// owner exists, and a Release issued from inside a callback must not deadlock.
func (r *sharedRef[T]) Release() {
	if !r.released.CompareAndSwap(false, true) {
		return
	}
	if r.cell.owners.Add(-1) > 0 {
		return
	}
	value := r.cell.value
	var zero T
	r.cell.value = zero
	drop(&value)
}

func (r *sharedRef[T]) Owners() int {
	return int(r.cell.owners.Load())
}

type sharedWeak[T any] struct {
	cell *sharedCell[T]
}

func (w sharedWeak[T]) Upgrade() (Ref[T], bool) {
	if w.cell == nil {
		return nil, false
	}
	for {
		n := w.cell.owners.Load()
		if n == 0 {
			return nil, false
		}
		if w.cell.owners.CompareAndSwap(n, n+1) {
			return &sharedRef[T]{cell: w.cell}, true
		}
	}
}
