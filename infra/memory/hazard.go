package memory

import (
	"runtime"
	"sync/atomic"
)

// HazardList holds nodes that were unlinked from a stack but may still
// be referenced by an accessor that entered before the unlink. Nodes
// stay here until a sweep for a later generation releases them.
//
// The zero value is an empty list.
type HazardList[T any] struct {
	head atomic.Pointer[Node[T]]

	// pending counts nodes retired since the last sweep released them.
	pending   atomic.Int64
	reclaimed atomic.Uint64
	sweeping  atomic.Bool
}

// Retire parks n on the list tagged with gen. Lock-free.
func (h *HazardList[T]) Retire(n *Node[T], gen uint32) {
	n.generation = gen
	for {
		old := h.head.Load()
		n.retired = old
		if h.head.CompareAndSwap(old, n) {
			break
		}
	}
	h.pending.Add(1)
}

// Sweep releases every node retired strictly before target and leaves
// the rest parked. Only one sweep runs at a time; a concurrent caller
// spins until the current sweep finishes. Returns the number of nodes
// handed to release.
func (h *HazardList[T]) Sweep(target uint32, release func(*Node[T])) int {
	for !h.sweeping.CompareAndSwap(false, true) {
		runtime.Gosched()
	}

	chain := h.head.Swap(nil)

	var keepHead, keepTail *Node[T]
	freed := 0
	for n := chain; n != nil; {
		next := n.retired
		if Before(n.generation, target) {
			n.reset()
			release(n)
			freed++
		} else {
			n.retired = nil
			if keepTail == nil {
				keepHead = n
			} else {
				keepTail.retired = n
			}
			keepTail = n
		}
		n = next
	}

	// Survivors go back underneath whatever was retired meanwhile.
	if keepHead != nil {
		for {
			old := h.head.Load()
			keepTail.retired = old
			if h.head.CompareAndSwap(old, keepHead) {
				break
			}
		}
	}

	h.sweeping.Store(false)

	if freed > 0 {
		h.pending.Add(-int64(freed))
		h.reclaimed.Add(uint64(freed))
	}
	return freed
}

// Pending returns the number of nodes retired and not yet released.
func (h *HazardList[T]) Pending() int64 {
	return h.pending.Load()
}

// Reclaimed returns the total number of nodes released by sweeps.
func (h *HazardList[T]) Reclaimed() uint64 {
	return h.reclaimed.Load()
}

// Len walks the list. Only meaningful while no sweep or retire runs;
// intended for tests and diagnostics.
func (h *HazardList[T]) Len() int {
	n := 0
	for c := h.head.Load(); c != nil; c = c.retired {
		n++
	}
	return n
}
