package sequence

import (
	"sync"
	"testing"
)

func TestSequencer_NextIsMonotonic(t *testing.T) {
	s := New(10)
	if got := s.Next(); got != 11 {
		t.Fatalf("expected 11, got %d", got)
	}
	if got := s.Current(); got != 11 {
		t.Fatalf("expected current 11, got %d", got)
	}
}

func TestSequencer_Observe(t *testing.T) {
	var s Sequencer
	s.Observe(40)
	s.Observe(7)
	if got := s.Next(); got != 41 {
		t.Fatalf("expected 41 after observing 40, got %d", got)
	}
}

func TestSequencer_ConcurrentUnique(t *testing.T) {
	var s Sequencer
	const workers, per = 8, 1000

	ids := make(chan uint64, workers*per)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				ids <- s.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool, workers*per)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}
