package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSlots_LimitsConcurrency(t *testing.T) {
	slots := NewSlots(3)

	var peak, current atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := slots.Acquire(context.Background(), "rta")
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer release()
			c := current.Add(1)
			for {
				old := peak.Load()
				if c <= old || peak.CompareAndSwap(old, c) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
		}()
	}
	wg.Wait()

	if peak.Load() > 3 {
		t.Errorf("%d analyses ran at once, limit 3", peak.Load())
	}
	if slots.InUse() != 0 || len(slots.Running()) != 0 {
		t.Errorf("InUse = %d, Running = %v after all releases", slots.InUse(), slots.Running())
	}
}

func TestSlots_TracksAlgorithms(t *testing.T) {
	slots := NewSlots(0)
	relA, _ := slots.Acquire(context.Background(), "baruah")
	relB, _ := slots.Acquire(context.Background(), "baruah")
	relC, _ := slots.Acquire(context.Background(), "prm-edf")

	if got := slots.Running(); got["baruah"] != 2 || got["prm-edf"] != 1 {
		t.Errorf("Running = %v, want baruah:2 prm-edf:1", got)
	}
	if slots.Capacity() != 0 {
		t.Errorf("Capacity = %d, want 0 when unbounded", slots.Capacity())
	}
	relA()
	relA()
	if got := slots.Running()["baruah"]; got != 1 {
		t.Errorf("baruah holds %d slots after a double release, want 1", got)
	}
	relB()
	relC()
	if slots.InUse() != 0 {
		t.Errorf("InUse = %d, want 0", slots.InUse())
	}
}

func TestSlots_ContextCancellation(t *testing.T) {
	slots := NewSlots(1)
	release, _ := slots.Acquire(context.Background(), "gfb")
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := slots.Acquire(ctx, "gfb"); !errors.Is(err, ErrCancelled) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire error = %v, want ErrCancelled wrapping the deadline", err)
	}
	if slots.Waiting() != 0 {
		t.Errorf("Waiting = %d after the timeout, want 0", slots.Waiting())
	}
}
