package lifo

import (
	"runtime"
	"sync/atomic"

	"atomiclifo/infra/memory"
)

// DefaultRetireThreshold is the number of retired-but-unreleased nodes
// above which Pop applies backpressure.
const DefaultRetireThreshold = 500_000

// Stack is a lock-free LIFO stack. The zero value is empty and ready to
// use. A Stack must not be copied after first use.
type Stack[T any] struct {
	head atomic.Pointer[memory.Node[T]]

	epoch  memory.Epoch
	hazard memory.HazardList[T]
	nodes  memory.Pool[memory.Node[T]]

	size      atomic.Int64
	throttled atomic.Uint64

	threshold int64
}

// Option configures a Stack built with New.
type Option func(*options)

type options struct {
	threshold int64
}

// WithRetireThreshold overrides DefaultRetireThreshold.
func WithRetireThreshold(n int) Option {
	return func(o *options) {
		o.threshold = int64(n)
	}
}

// New returns an empty stack.
func New[T any](opts ...Option) *Stack[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Stack[T]{threshold: o.threshold}
}

// Push puts v on top of the stack.
func (s *Stack[T]) Push(v T) {
	n := s.nodes.Get()
	n.Value = v
	for {
		old := s.head.Load()
		n.SetNext(old)
		if s.head.CompareAndSwap(old, n) {
			break
		}
	}
	s.size.Add(1)
}

// Pop removes and returns the top value. ok is false when the stack was
// empty.
func (s *Stack[T]) Pop() (v T, ok bool) {
	s.throttle()

	s.epoch.Enter()

	var top *memory.Node[T]
	for {
		top = s.head.Load()
		if top == nil {
			s.exit()
			return v, false
		}
		if s.head.CompareAndSwap(top, top.Next()) {
			break
		}
	}

	v = top.Value
	var zero T
	top.Value = zero
	s.size.Add(-1)

	// The generation cannot move while we are inside the section.
	s.hazard.Retire(top, s.epoch.Generation())

	s.exit()
	return v, true
}

func (s *Stack[T]) exit() {
	if gen, ok := s.epoch.Exit(); ok {
		s.hazard.Sweep(gen, s.release)
	}
}

func (s *Stack[T]) release(n *memory.Node[T]) {
	s.nodes.Put(n)
}

func (s *Stack[T]) retireThreshold() int64 {
	if s.threshold > 0 {
		return s.threshold
	}
	return DefaultRetireThreshold
}

// throttle holds a pop back while more retired nodes are waiting than
// the threshold allows. The count only drops once the generation has
// moved and a sweep ran; if no accessor is active the waiting pop
// advances and sweeps itself.
func (s *Stack[T]) throttle() {
	limit := s.retireThreshold()
	if s.hazard.Pending() <= limit {
		return
	}
	s.throttled.Add(1)

	for s.hazard.Pending() > limit {
		if gen, ok := s.epoch.TryAdvance(); ok {
			s.hazard.Sweep(gen, s.release)
			continue
		}
		runtime.Gosched()
	}
}

// Reclaim advances the generation and sweeps if no Pop is in flight.
// It returns the number of nodes released, and is never required for
// correctness: the last Pop out of a section already sweeps.
func (s *Stack[T]) Reclaim() int {
	gen, ok := s.epoch.TryAdvance()
	if !ok {
		return 0
	}
	return s.hazard.Sweep(gen, s.release)
}

// Drain pops values until the stack is empty or fn returns false, and
// returns the number of values handed to fn.
func (s *Stack[T]) Drain(fn func(T) bool) int {
	n := 0
	for {
		v, ok := s.Pop()
		if !ok {
			return n
		}
		n++
		if !fn(v) {
			return n
		}
	}
}

// Len returns the number of values on the stack. Under concurrent use
// it is a snapshot that may already be stale.
func (s *Stack[T]) Len() int64 {
	return max(s.size.Load(), 0)
}

// IsEmpty reports whether the stack currently has no values.
func (s *Stack[T]) IsEmpty() bool {
	return s.head.Load() == nil
}
