package worker

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
)

// Task is a unit of work submitted to the queue.
type Task func()

// Queue runs every submitted task on its own goroutine, chained so that
// tasks execute one at a time in submission order. Nothing is dropped.
type Queue struct {
	mu     sync.Mutex
	tail   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Submit schedules task after every previously submitted task. Returns false
// once the queue is closed.
func (q *Queue) Submit(task Task) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	prev := q.tail
	done := make(chan struct{})
	q.tail = done
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}
		runTask(task)
	}()
	return true
}

// Wait blocks until every submitted task has finished or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further submissions and waits for queued tasks.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
}

func runTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker: task panicked: %v\n%s", r, debug.Stack())
		}
	}()
	task()
}
