package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing sequence IDs for pushed
// items. The zero value starts at 0 and issues 1 first.
type Sequencer struct {
	last atomic.Uint64
}

// New creates a sequencer whose next ID is start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

// Next returns the next sequence ID.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last issued ID.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}

// Observe makes sure future IDs are above v. Used after restoring a
// checkpoint, where IDs were issued by a previous process.
func (s *Sequencer) Observe(v uint64) {
	for {
		cur := s.last.Load()
		if cur >= v || s.last.CompareAndSwap(cur, v) {
			return
		}
	}
}
