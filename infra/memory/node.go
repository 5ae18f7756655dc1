package memory

import "sync/atomic"

// Node is the intrusive storage cell shared by the stack and the
// hazard list. While linked it belongs to the stack; once unlinked it
// belongs to the hazard list until a sweep releases it.
type Node[T any] struct {
	Value T

	next atomic.Pointer[Node[T]]

	// retired links the hazard chain. Written only before the node is
	// published on the chain, or by the sweeper that detached it.
	retired    *Node[T]
	generation uint32
}

// Next returns the node linked after n.
func (n *Node[T]) Next() *Node[T] {
	return n.next.Load()
}

// SetNext links m after n.
func (n *Node[T]) SetNext(m *Node[T]) {
	n.next.Store(m)
}

// Generation reports the generation n was retired in.
func (n *Node[T]) Generation() uint32 {
	return n.generation
}

// reset clears every field so the shell can be reused.
func (n *Node[T]) reset() {
	var zero T
	n.Value = zero
	n.next.Store(nil)
	n.retired = nil
	n.generation = 0
}
