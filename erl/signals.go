package erl

import (
	"fmt"

	"github.com/uberbrodt/erl-recv/erl/exitreason"
	"github.com/uberbrodt/erl-recv/erl/tuple"
)

// ExitError is an exit signal: the reason a process is exiting and the process it came
// from. A pending exit signal is raised on the receiving process's own goroutine as
// panic(*ExitError) the next time that process calls into this package, and the process
// then exits with [ExitError.Reason].
//
// A process that traps exits receives the signal as a message instead, see [ExitMsg].
type ExitError struct {
	Reason *exitreason.S
	// the process that exited or called [ExitProcess]. [UndefinedPID] when the signal was
	// sent from a goroutine that is not a process.
	Proc PID
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit signal from %v: %v", e.Proc, e.Reason)
}

func (e *ExitError) Unwrap() error {
	return e.Reason
}

// the message a trapping process receives in place of [sig].
func trappedMsg(sig *ExitError) tuple.Tuple {
	return tuple.New(EXIT, sig.Proc, sig.Reason.Value())
}

// ExitMsg unpacks the message delivered to a trapping process when a linked process exits,
// the tuple {EXIT, pid, reason}. The reason is "normal", "killed", "noproc" etc. for the
// built-in reasons, the original value for user reasons, and the *exitreason.S for
// exceptions.
func ExitMsg(msg any) (from PID, reason any, ok bool) {
	tup, isTuple := msg.(tuple.Tuple)
	if !isTuple || len(tup) != 3 {
		return from, nil, false
	}
	if tag, _ := tuple.Lookup[Atom](tup, 0); tag != EXIT {
		return from, nil, false
	}
	from, ok = tuple.Lookup[PID](tup, 1)
	return from, tup[2], ok
}
