package erl_test

import (
	"time"

	gocmp "github.com/google/go-cmp/cmp"

	"github.com/uberbrodt/erl-recv/chronos"
	"github.com/uberbrodt/erl-recv/erl"
	"github.com/uberbrodt/erl-recv/erl/tuple"
)

var (
	shortWait   = chronos.Dur("200ms")
	pidComparer = gocmp.Comparer(erl.PID.Equals)
)

// blocks until the process is killed
func waitForever() error {
	erl.NewReceiver().Receive()
	return nil
}

func exitPattern(pid erl.PID, reason any) tuple.Tuple {
	return tuple.New(erl.EXIT, pid, reason)
}

// exitFrom sends an exit signal to [pid] from a separate process. A signal drops the
// target's link to its sender, so a linked caller would not hear about the exit otherwise.
func exitFrom(pid erl.PID, reason any) {
	erl.Spawn(func() error {
		return erl.ExitProcess(pid, reason)
	})
}

// waitUntilDead polls until [pid] has exited.
func waitUntilDead(pid erl.PID) {
	for range 500 {
		if !erl.IsAlive(pid) {
			return
		}
		time.Sleep(time.Millisecond)
	}
}
