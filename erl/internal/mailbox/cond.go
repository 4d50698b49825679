package mailbox

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	pollInitialInterval = time.Millisecond
	pollMaxInterval     = 50 * time.Millisecond
)

// Cond is a condition variable with at most one waiter at a time. Unlike [sync.Cond] it
// supports timed waits and reports whether the waiter was woken or timed out.
//
// The waiter parks on a private mutex that [Notify] unlocks. Timed waits poll that mutex
// with an exponential backoff, so a wait never oversleeps its deadline by more than the
// cost of re-acquiring the condition lock.
type Cond struct {
	mx     sync.Mutex
	waiter *sync.Mutex
}

func (c *Cond) Lock() {
	c.mx.Lock()
}

func (c *Cond) Unlock() {
	c.mx.Unlock()
}

// Wait blocks until [Notify] is called. The caller must hold the lock; it is released
// while waiting and re-acquired before Wait returns.
func (c *Cond) Wait() {
	w := c.park()
	w.Lock()
	c.mx.Lock()
	c.clear(w)
}

// WaitFor is like [Wait] but gives up after [d]. It returns true when woken by [Notify]
// and false on timeout.
func (c *Cond) WaitFor(d time.Duration) bool {
	w := c.park()
	woken := poll(w, d)
	c.mx.Lock()

	// Notify may have fired between the last poll and re-acquiring the lock.
	if !c.clear(w) {
		woken = true
	}

	return woken
}

// Notify wakes the outstanding waiter, if any. The caller must hold the lock.
func (c *Cond) Notify() {
	c.assertLocked("notify")

	if c.waiter != nil {
		w := c.waiter
		c.waiter = nil
		w.Unlock()
	}
}

func (c *Cond) park() *sync.Mutex {
	c.assertLocked("wait")

	if c.waiter != nil {
		panic("mailbox: concurrent waiters on a single-waiter condition")
	}

	w := &sync.Mutex{}
	w.Lock()
	c.waiter = w
	c.mx.Unlock()

	return w
}

// clear removes [w] as the waiter, returning false if it was already removed by Notify.
func (c *Cond) clear(w *sync.Mutex) bool {
	if c.waiter == w {
		c.waiter = nil
		return true
	}
	return false
}

func (c *Cond) assertLocked(op string) {
	if c.mx.TryLock() {
		c.mx.Unlock()
		panic("mailbox: cannot " + op + " on un-acquired lock")
	}
}

func poll(w *sync.Mutex, d time.Duration) bool {
	deadline := time.Now().Add(d)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = pollInitialInterval
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = pollMaxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		if w.TryLock() {
			return true
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}

		time.Sleep(min(b.NextBackOff(), remaining))
	}
}
