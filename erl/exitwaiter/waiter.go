/*
 * This package lets code outside a process block until a process exits, and find out why.
 */
package exitwaiter

import (
	"fmt"
	"time"

	"github.com/uberbrodt/erl-recv/erl"
	"github.com/uberbrodt/erl-recv/erl/exitreason"
	"github.com/uberbrodt/erl-recv/erl/pattern"
	"github.com/uberbrodt/erl-recv/erl/tuple"
)

// A Waiter is a trapping process linked to the process being waited on. It exits as soon
// as it has the exit reason.
type Waiter struct {
	waitingOn erl.PID
	waiter    erl.PID
	done      chan struct{}
	reason    any
}

// Watch starts a Waiter for an existing process. If [pid] has already exited the reason
// is "noproc".
func Watch(pid erl.PID) *Waiter {
	w := &Waiter{waitingOn: pid, done: make(chan struct{})}
	started := make(chan struct{})

	w.waiter = erl.Spawn(func() error {
		erl.ProcessFlag(erl.TrapExit, true)
		erl.Link(pid)
		close(started)
		w.await()
		return nil
	})
	<-started
	return w
}

// Spawn starts [fn] as a process linked to a new Waiter. Unlike [Watch], the exit reason
// is never lost if [fn] returns straight away.
func Spawn(fn func() error) *Waiter {
	w := &Waiter{done: make(chan struct{})}
	started := make(chan erl.PID)

	w.waiter = erl.Spawn(func() error {
		erl.ProcessFlag(erl.TrapExit, true)
		started <- erl.SpawnLink(fn)
		w.await()
		return nil
	})
	w.waitingOn = <-started
	return w
}

func (w *Waiter) await() {
	r := erl.NewReceiver()
	defer r.Close()

	r.AddHandler(tuple.New(erl.EXIT, w.waitingOn, pattern.Any), func(args ...any) any {
		_, reason, _ := erl.ExitMsg(args[0])
		return reason
	}, erl.Message)
	r.AddHandler(stopWaiting{}, func(...any) any {
		erl.Unlink(w.waitingOn)
		return stopWaiting{}
	})

	result := r.Receive()
	if _, stopped := result.(stopWaiting); stopped {
		return
	}
	w.reason = result
	erl.DebugPrintf("exitwaiter: %v exited with %v", w.waitingOn, w.reason)
	close(w.done)
}

// PID is the process being waited on.
func (w *Waiter) PID() erl.PID {
	return w.waitingOn
}

// Done is closed once the process has exited.
func (w *Waiter) Done() <-chan struct{} {
	return w.done
}

// Reason is the exit reason, as a trapping process would receive it. Only valid after
// [Waiter.Done] is closed.
func (w *Waiter) Reason() any {
	return w.reason
}

// Wait blocks until the process exits and returns its exit reason. If that takes longer
// than [d], the error wraps [exitreason.Timeout] and the process is left running.
func (w *Waiter) Wait(d time.Duration) (any, error) {
	select {
	case <-w.done:
		return w.reason, nil
	case <-time.After(d):
		return nil, fmt.Errorf("%v did not exit within %s: %w", w.waitingOn, d, exitreason.Timeout)
	}
}

type stopWaiting struct{}

// Stop abandons the wait: the Waiter unlinks and exits, leaving the watched process
// running. [Waiter.Done] is never closed after Stop.
func (w *Waiter) Stop() {
	erl.Send(w.waiter, stopWaiting{})
}
