// Package erltest runs test bodies inside processes.
//
// Test functions run on goroutines that are not processes, so they cannot call [erl.Self]
// or receive messages. [Run] spawns the body as a process, waits for it to exit and
// returns its exit reason.
//
// Use assert.Check (not assert.Assert) inside a body: the body does not run on the test
// goroutine, so it must not call t.FailNow.
//
// Importing this package makes the main goroutine the root process.
package erltest

import (
	"testing"
	"time"

	"github.com/uberbrodt/erl-recv/erl"
	"github.com/uberbrodt/erl-recv/erl/exitreason"
	"github.com/uberbrodt/erl-recv/erl/exitwaiter"
	"github.com/uberbrodt/erl-recv/erl/timeout"
)

func init() {
	erl.RootPID()
}

type RunOpt func(ro runOptions) runOptions

type runOptions struct {
	waitTimeout time.Duration
}

// Specify how long [Run] waits for the body to exit before killing it. Defaults to
// [timeout.Default].
func WaitTimeout(t time.Duration) RunOpt {
	return func(ro runOptions) runOptions {
		ro.waitTimeout = t
		return ro
	}
}

// Run executes [body] in a new process and returns the value of its exit reason, as a
// trapping process would see it: "normal" when the body returns, the reason given to
// [erl.Exit], "killed", an *exitreason.S for panics, and so on.
//
// If the body has not exited after the wait timeout it is killed, the test is marked
// failed and [exitreason.Timeout] is returned.
func Run(t testing.TB, body func(self erl.PID), opts ...RunOpt) any {
	t.Helper()

	ro := runOptions{waitTimeout: timeout.Default}
	for _, opt := range opts {
		ro = opt(ro)
	}

	w := exitwaiter.Spawn(func() error {
		body(erl.Self())
		return nil
	})

	reason, err := w.Wait(ro.waitTimeout)
	if err != nil {
		t.Errorf("test process did not exit within %s", ro.waitTimeout)
		erl.ExitProcess(w.PID(), exitreason.Kill)
		<-w.Done()
		return exitreason.Timeout
	}
	return reason
}

// RunOK is [Run], failing the test unless the body exits normally.
func RunOK(t testing.TB, body func(self erl.PID), opts ...RunOpt) {
	t.Helper()

	if reason := Run(t, body, opts...); reason != "normal" {
		t.Errorf("test process exited with %v", reason)
	}
}

// Receive takes the first message matching [pat] out of the calling process's mailbox,
// waiting at most [d]. [ok] is false on timeout.
func Receive(pat any, d time.Duration) (msg any, ok bool) {
	r := erl.NewReceiver()
	defer r.Close()

	r.AddHandler(pat, func(args ...any) any { return args[0] }, erl.Message)
	result := r.ReceiveTimeout(d, func(...any) any { return timedOut{} })
	if _, expired := result.(timedOut); expired {
		return nil, false
	}
	return result, true
}

type timedOut struct{}
