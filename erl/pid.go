package erl

import (
	"fmt"

	"github.com/uberbrodt/erl-recv/erl/exitreason"
)

// A Process Identifier; wraps the underlying Process so we can reference it
// without exposing Process internals. Two PIDs are equal if and only if they
// identify the same process, so PIDs can be used as map keys and in patterns.
type PID struct {
	p *Process
}

var UndefinedPID PID = PID{}

func (pid PID) String() string {
	if pid.p != nil {
		if pid.p.getName() == "" {
			return fmt.Sprintf("PID<%d>", pid.p.id)
		} else {
			return fmt.Sprintf("PID<%d|%s>", pid.p.id, pid.p.getName())
		}
	} else {
		return "PID<undefined>"
	}
}

func (pid PID) IsNil() bool {
	return pid.p == nil
}

func (self PID) Equals(pid PID) bool {
	return self.p == pid.p
}

// Send is shorthand for [Send](pid, msg).
func (pid PID) Send(msg any) any {
	return Send(pid, msg)
}

// MailboxLen returns the number of messages waiting in the process's mailbox.
func (pid PID) MailboxLen() int {
	if pid.p == nil {
		return 0
	}
	return pid.p.mbox.Len()
}

func (p PID) ResolvePID() (PID, error) {
	return p, nil
}

type Name string

func (n Name) ResolvePID() (PID, error) {
	pid, exists := WhereIs(n)
	if !exists {
		return pid, fmt.Errorf("no PID found for name %s: %w", n, exitreason.NoProc)
	}
	return pid, nil
}

// Dest is anything [SendTo] can deliver to: a [PID] or a registered [Name].
type Dest interface {
	ResolvePID() (PID, error)
}
