package memory

import (
	"sync"
	"sync/atomic"
)

// Pool is a typed object pool. Its zero value is ready to use: when
// the underlying sync.Pool is empty Get allocates a fresh object.
type Pool[T any] struct {
	p      sync.Pool
	allocs atomic.Uint64
}

// Get returns a pooled object, or a new one.
func (p *Pool[T]) Get() *T {
	if v := p.p.Get(); v != nil {
		return v.(*T)
	}
	p.allocs.Add(1)
	return new(T)
}

// Put hands v back for reuse. The caller must not touch v afterwards.
func (p *Pool[T]) Put(v *T) {
	p.p.Put(v)
}

// Allocated reports how many objects Get had to allocate.
func (p *Pool[T]) Allocated() uint64 {
	return p.allocs.Load()
}
