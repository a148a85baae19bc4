// Package prereq runs the transport account check in the background so
// uploads can be gated on it.
package prereq

import (
	"context"
	"log"
	"sync/atomic"
)

// Check is a one-shot background check. It reports running from New until
// fn has returned, so uploads requested before Start are deferred too.
type Check struct {
	fn      func(context.Context) error
	running atomic.Bool
	done    chan struct{}
	err     error
	onDone  func(error)
}

// New prepares a check of fn.
func New(fn func(context.Context) error) *Check {
	c := &Check{fn: fn, done: make(chan struct{})}
	c.running.Store(true)
	return c
}

// Start runs the check on a new goroutine. onDone, if set, is called once fn
// has returned and IsRunning reports false, before Done is closed.
func (c *Check) Start(ctx context.Context, onDone func(error)) {
	c.onDone = onDone
	go c.run(ctx)
}

// Completed returns a Check that has already finished with err.
func Completed(err error) *Check {
	c := &Check{done: make(chan struct{}), err: err}
	close(c.done)
	return c
}

func (c *Check) run(ctx context.Context) {
	err := c.fn(ctx)
	if err != nil {
		log.Printf("Prereq: account check failed: %v", err)
	} else {
		log.Printf("Prereq: account check passed")
	}
	c.err = err
	c.running.Store(false)
	if c.onDone != nil {
		c.onDone(err)
	}
	close(c.done)
}

// IsRunning reports whether the check is still in progress.
func (c *Check) IsRunning() bool { return c.running.Load() }

// Done is closed when the check finishes.
func (c *Check) Done() <-chan struct{} { return c.done }

// Err returns the check result. Only meaningful after Done is closed.
func (c *Check) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}
