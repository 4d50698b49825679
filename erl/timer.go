package erl

import (
	"time"

	"github.com/uberbrodt/erl-recv/erl/exitreason"
)

type TimerRef struct {
	pid PID
}

type cancelTimer struct{}

// SendAfter sends [msg] to [pid] after [tout], unless the timer is cancelled first with
// [CancelTimer]. The timer is a process of its own.
func SendAfter(pid PID, msg any, tout time.Duration) TimerRef {
	timer := Spawn(func() error {
		r := NewReceiver()
		r.Bind(cancelTimer{})
		r.ReceiveTimeout(tout, func(args ...any) any {
			return Send(pid, msg)
		})
		return nil
	})
	return TimerRef{pid: timer}
}

// CancelTimer stops [tr] from firing. Returns [exitreason.NoProc] if the timer has already
// fired or been cancelled.
func CancelTimer(tr TimerRef) error {
	if tr.pid.IsNil() || !IsAlive(tr.pid) {
		return exitreason.NoProc
	}
	Send(tr.pid, cancelTimer{})
	return nil
}
