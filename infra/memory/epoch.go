package memory

import "sync/atomic"

const (
	activeMask    = uint64(1)<<32 - 1
	generationOne = uint64(1) << 32
)

// Epoch tracks how many accessors are inside a read section and the
// current reclamation generation.
//
// Both counters share one word: the high 32 bits are the generation,
// the low 32 bits the active count. The generation only moves with a
// CAS from (g, 0) to (g+1, 0), so observing zero accessors and
// advancing are a single step and no accessor can slip in between.
//
// The zero value is a valid tracker at generation 0.
type Epoch struct {
	state atomic.Uint64
}

func split(s uint64) (gen uint32, active uint32) {
	return uint32(s >> 32), uint32(s & activeMask)
}

// Enter registers an accessor and returns the generation it entered
// in. The generation cannot change until every accessor has exited.
func (e *Epoch) Enter() uint32 {
	s := e.state.Add(1)
	gen, active := split(s)
	if active == 0 {
		panic("memory.Epoch: too many concurrent accessors")
	}
	return gen
}

// Exit deregisters an accessor. When the accessor was the last one and
// it wins the advance, Exit returns the new generation and true; the
// caller then owns the sweep for everything retired before it.
func (e *Epoch) Exit() (uint32, bool) {
	s := e.state.Add(^uint64(0))
	if _, active := split(s); active == uint32(activeMask) {
		panic("memory.Epoch: exit without enter")
	} else if active != 0 {
		return 0, false
	}
	return e.advanceFrom(s)
}

// TryAdvance moves to the next generation if no accessor is active.
func (e *Epoch) TryAdvance() (uint32, bool) {
	s := e.state.Load()
	if s&activeMask != 0 {
		return 0, false
	}
	return e.advanceFrom(s)
}

func (e *Epoch) advanceFrom(s uint64) (uint32, bool) {
	next := s + generationOne
	if !e.state.CompareAndSwap(s, next) {
		// Someone entered (or advanced) first; the last one out will
		// take care of it.
		return 0, false
	}
	gen, _ := split(next)
	return gen, true
}

// Generation returns the current generation.
func (e *Epoch) Generation() uint32 {
	gen, _ := split(e.state.Load())
	return gen
}

// Active returns the number of accessors currently inside a section.
func (e *Epoch) Active() uint32 {
	_, active := split(e.state.Load())
	return active
}

// Before reports whether generation a precedes b, using serial-number
// arithmetic so the comparison survives the 32-bit wrap.
func Before(a, b uint32) bool {
	return int32(a-b) < 0
}
