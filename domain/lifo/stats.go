package lifo

// Stats is a point-in-time view of a stack's bookkeeping. Fields are
// read independently and are not mutually consistent under load.
type Stats struct {
	Len        int64
	Active     uint32
	Generation uint32
	// Retired is the number of unlinked nodes not yet released.
	Retired   int64
	Reclaimed uint64
	// Allocated counts nodes allocated because no released shell was
	// available for reuse.
	Allocated uint64
	Throttled uint64
}

// Stats returns the current counters.
func (s *Stack[T]) Stats() Stats {
	return Stats{
		Len:        s.Len(),
		Active:     s.epoch.Active(),
		Generation: s.epoch.Generation(),
		Retired:    s.hazard.Pending(),
		Reclaimed:  s.hazard.Reclaimed(),
		Allocated:  s.nodes.Allocated(),
		Throttled:  s.throttled.Load(),
	}
}
