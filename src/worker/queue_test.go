package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueRunsInSubmissionOrder(t *testing.T) {
	q := NewQueue()
	var mu sync.Mutex
	var order []int
	for i := 0; i < 20; i++ {
		i := i
		q.Submit(func() {
			// early tasks are slower so any overlap would reorder them
			time.Sleep(time.Duration(20-i) * 100 * time.Microsecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	if err := q.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v", order)
		}
	}
}

func TestQueueNeverOverlaps(t *testing.T) {
	q := NewQueue()
	var running, maxRunning atomic.Int32
	for i := 0; i < 10; i++ {
		q.Submit(func() {
			n := running.Add(1)
			for {
				m := maxRunning.Load()
				if n <= m || maxRunning.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
		})
	}
	q.Close()
	if got := maxRunning.Load(); got != 1 {
		t.Errorf("max concurrent tasks = %d, want 1", got)
	}
}

func TestQueueSurvivesPanic(t *testing.T) {
	q := NewQueue()
	ran := false
	q.Submit(func() { panic("boom") })
	q.Submit(func() { ran = true })
	q.Close()
	if !ran {
		t.Error("task after panic did not run")
	}
}

func TestQueueRejectsAfterClose(t *testing.T) {
	q := NewQueue()
	q.Close()
	if q.Submit(func() {}) {
		t.Error("expected Submit to fail after Close")
	}
}

func TestQueueWaitHonorsContext(t *testing.T) {
	q := NewQueue()
	release := make(chan struct{})
	q.Submit(func() { <-release })
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Wait(ctx); err == nil {
		t.Error("expected Wait to time out")
	}
	close(release)
	q.Close()
}
