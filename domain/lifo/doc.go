// Package lifo provides Stack, a lock-free last-in-first-out stack
// that is safe to share between any number of goroutines.
//
// Push links a node with a single CAS loop and never waits. Pop unlinks
// the head inside an epoch section: the unlinked shell is retired to a
// hazard list rather than reused at once, and only the accessor that
// leaves the last open section advances the generation and sweeps the
// shells retired before it back into the node pool. A shell therefore
// cannot be reused (and re-pushed) while another Pop may still hold it,
// which rules out ABA on the head pointer.
//
// Pop spins in two places only: waiting for a concurrent sweep to
// finish, and the backpressure case where pops keep overlapping so
// long that more than the retire threshold of shells are waiting to be
// released. In the latter case new pops hold off until a generation
// change lets a sweep bring the backlog under the threshold again.
//
// The zero value is an empty stack, so a package-level variable works
// without initialisation:
//
//	var jobs lifo.Stack[Job]
//
//	jobs.Push(j)
//	if j, ok := jobs.Pop(); ok {
//	    run(j)
//	}
package lifo
