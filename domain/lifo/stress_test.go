package lifo

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"atomiclifo/infra/memory"
)

func stressSize(t *testing.T, n int) int {
	if testing.Short() {
		return n / 10
	}
	return n
}

func TestStack_ConcurrentConservation(t *testing.T) {
	const pushers, poppers = 4, 4
	perPusher := stressSize(t, 20000)
	total := pushers * perPusher

	s := New[int]()
	seen := make([]atomic.Int32, total)
	var popped atomic.Int64

	var g errgroup.Group
	for p := 0; p < pushers; p++ {
		base := p * perPusher
		g.Go(func() error {
			for i := 0; i < perPusher; i++ {
				s.Push(base + i)
				if i%64 == 0 {
					runtime.Gosched()
				}
			}
			return nil
		})
	}
	for c := 0; c < poppers; c++ {
		g.Go(func() error {
			for popped.Load() < int64(total)/2 {
				if v, ok := s.Pop(); ok {
					seen[v].Add(1)
					popped.Add(1)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	s.Drain(func(v int) bool {
		seen[v].Add(1)
		return true
	})

	for v := range seen {
		if n := seen[v].Load(); n != 1 {
			t.Fatalf("value %d seen %d times", v, n)
		}
	}

	st := s.Stats()
	if st.Len != 0 || st.Active != 0 {
		t.Fatalf("expected drained idle stack, got %+v", st)
	}
	if st.Retired != 0 {
		t.Fatalf("expected all retired nodes released after drain, got %d", st.Retired)
	}
	if s.hazard.Len() != 0 {
		t.Fatalf("hazard chain still holds %d nodes", s.hazard.Len())
	}
}

func TestStack_MixedWorkersRandomised(t *testing.T) {
	const workers = 8
	ops := stressSize(t, 50000)

	s := New[uint64](WithRetireThreshold(256))
	var pushed, taken atomic.Uint64

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		seed := uint64(w)*0x9e3779b97f4a7c15 + 1
		g.Go(func() error {
			x := seed
			for i := 0; i < ops; i++ {
				x ^= x << 13
				x ^= x >> 7
				x ^= x << 17
				if x&1 == 0 {
					s.Push(x)
					pushed.Add(x)
				} else if v, ok := s.Pop(); ok {
					taken.Add(v)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	s.Drain(func(v uint64) bool {
		taken.Add(v)
		return true
	})
	if pushed.Load() != taken.Load() {
		t.Fatalf("checksum mismatch: pushed %d, popped %d", pushed.Load(), taken.Load())
	}
	if st := s.Stats(); st.Retired != 0 {
		t.Fatalf("expected no retired nodes left, got %d", st.Retired)
	}
}

func TestStack_GenerationMonotonic(t *testing.T) {
	s := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < 4; w++ {
		g.Go(func() error {
			for i := 0; ctx.Err() == nil; i++ {
				s.Push(i)
				s.Pop()
				s.Pop()
			}
			return nil
		})
	}

	var violations int
	last := s.Stats().Generation
	for ctx.Err() == nil {
		cur := s.Stats().Generation
		if memory.Before(cur, last) {
			violations++
		}
		last = cur
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if violations != 0 {
		t.Fatalf("generation went backwards %d times", violations)
	}
	if last == 0 {
		t.Fatal("expected the generation to advance")
	}
}

func TestStack_BackpressureBoundsRetiredNodes(t *testing.T) {
	const (
		threshold = 64
		poppers   = 6
		pushers   = 2
	)
	s := New[int](WithRetireThreshold(threshold))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var peak atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for p := 0; p < pushers; p++ {
		g.Go(func() error {
			for i := 0; ctx.Err() == nil; i++ {
				s.Push(i)
			}
			return nil
		})
	}
	for p := 0; p < poppers; p++ {
		g.Go(func() error {
			for ctx.Err() == nil {
				s.Pop()
			}
			return nil
		})
	}
	g.Go(func() error {
		for ctx.Err() == nil {
			if r := s.Stats().Retired; r > peak.Load() {
				peak.Store(r)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	// Each popper past the threshold check can add at most one more.
	if got := peak.Load(); got > threshold+poppers {
		t.Fatalf("retired nodes peaked at %d, bound is %d", got, threshold+poppers)
	}
}
