package erl_test

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/uberbrodt/erl-recv/chronos"
	"github.com/uberbrodt/erl-recv/erl"
	"github.com/uberbrodt/erl-recv/erl/erltest"
	"github.com/uberbrodt/erl-recv/erl/exitreason"
)

func TestTimer_Fires(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		start := time.Now()
		erl.SendAfter(self, "timer_ran", chronos.Dur("100ms"))

		msg, ok := erltest.Receive("timer_ran", time.Second)
		assert.Check(t, ok)
		assert.Check(t, is.Equal(msg, "timer_ran"))
		assert.Check(t, time.Since(start) >= chronos.Dur("100ms"))
	})
}

func TestTimer_Cancel(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		tref := erl.SendAfter(self, "timer_ran", chronos.Dur("200ms"))
		assert.Check(t, erl.CancelTimer(tref))

		_, ok := erltest.Receive("timer_ran", chronos.Dur("500ms"))
		assert.Check(t, !ok)
	})
}

func TestTimer_CancelAfterFiring(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		tref := erl.SendAfter(self, "timer_ran", chronos.Ms(10))

		_, ok := erltest.Receive("timer_ran", time.Second)
		assert.Check(t, ok)

		// the timer process may still be exiting
		var err error
		for range 100 {
			if err = erl.CancelTimer(tref); err != nil {
				break
			}
			time.Sleep(time.Millisecond)
		}
		assert.Check(t, exitreason.IsNoProc(err))
	})
}
