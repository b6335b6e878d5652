package batch

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
)

// Slots bounds how many analyses run at once, across a batch or across
// concurrent server requests, and records which algorithms hold a slot.
type Slots struct {
	free    chan struct{} // nil when unbounded
	waiting atomic.Int64

	mu      sync.Mutex
	running map[string]int
}

// NewSlots returns a pool of n analysis slots; n <= 0 means unbounded.
func NewSlots(n int) *Slots {
	s := &Slots{running: make(map[string]int)}
	if n > 0 {
		s.free = make(chan struct{}, n)
	}
	return s
}

// Acquire waits for a slot to run algorithm. The returned release frees
// it and is safe to call more than once. When ctx ends first the error
// wraps ErrCancelled.
func (s *Slots) Acquire(ctx context.Context, algorithm string) (release func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCancelled, algorithm, err)
	}
	if s.free != nil {
		s.waiting.Add(1)
		select {
		case s.free <- struct{}{}:
			s.waiting.Add(-1)
		case <-ctx.Done():
			s.waiting.Add(-1)
			return nil, fmt.Errorf("%w: %s: %w", ErrCancelled, algorithm, ctx.Err())
		}
	}
	s.mu.Lock()
	s.running[algorithm]++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.running[algorithm]--; s.running[algorithm] == 0 {
				delete(s.running, algorithm)
			}
			s.mu.Unlock()
			if s.free != nil {
				<-s.free
			}
		})
	}, nil
}

// Capacity returns the number of slots, or 0 when unbounded.
func (s *Slots) Capacity() int {
	return cap(s.free)
}

// InUse returns the number of held slots.
func (s *Slots) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.running {
		n += c
	}
	return n
}

// Waiting returns the number of callers blocked in Acquire.
func (s *Slots) Waiting() int {
	return int(s.waiting.Load())
}

// Running returns how many slots each algorithm holds.
func (s *Slots) Running() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.running)
}
