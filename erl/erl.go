/*
Package erl provides Erlang-style processes with selective receive for Go.

Every process is a goroutine with its own unbounded mailbox. Messages are pulled out of
the mailbox with a [Receiver], which matches them against patterns (see the pattern
package) in the order the handlers were added, leaving messages nobody asked for in the
mailbox for later.

# Core Concepts

Processes in erl are goroutines that provide:
  - Asynchronous message passing via [Send]
  - Selective receive with timeouts via [Receiver]
  - Bi-directional linking via [Link] and [SpawnLink]
  - Exit signal handling and propagation
  - Automatic panic recovery with clean exit

# Process Creation

Use [Spawn] or [SpawnLink] to create new processes:

	// Standalone process
	pid := erl.Spawn(func() error {
		r := erl.NewReceiver()
		r.AddHandler("ping", func(...any) any { return "pong" })
		r.Receive()
		return nil
	})

	// Linked to the caller (exit signals propagate both ways)
	pid := erl.SpawnLink(worker)

The goroutine that first uses this package (normally main) is the root process; it may
call [Self], [Link] and [Receiver.Receive] like any other process. Goroutines started with
the go statement are not processes.

# Exit Signals

When a process exits, every linked process gets an exit signal carrying the exit reason.
A normal exit is ignored. Any other reason is remembered by the receiving process and
raised, as a panic(*[ExitError]), the next time it calls [Send], [IsAlive], [Self] or
[Receiver.Receive], or immediately if it is blocked in a receive. The process wrapper
recovers the panic and the process exits with the same reason, so crashes spread along
links.

A process killed with [exitreason.Kill] reports [exitreason.Killed] to its own links.

# Exit Trapping

Use [ProcessFlag] with [TrapExit] to receive exit signals as messages instead:

	erl.ProcessFlag(erl.TrapExit, true)

	r := erl.NewReceiver()
	r.AddHandler(tuple.New(erl.EXIT, pattern.Any, pattern.Any), handleExit, erl.Message)

A kill signal sent with [ExitProcess] cannot be trapped.

# Erlang Correspondence

	Erlang                  Go (erl package)
	------                  ----------------
	spawn/1                 Spawn
	spawn_link/1            SpawnLink
	self/0                  Self
	link/1                  Link
	unlink/1                Unlink
	!/send                  Send
	receive ... after       Receiver
	exit/1                  Exit
	exit/2                  ExitProcess
	process_flag/2          ProcessFlag
	processes/0             Processes
	is_process_alive/1      IsAlive
	make_ref/0              MakeRef
	register/2              Register
	send_after/3            SendAfter

See https://www.erlang.org/doc/system/ref_man_processes.html for detailed
Erlang process documentation that informed this design.
*/
package erl

import (
	"cmp"

	"github.com/rs/xid"
	"github.com/uberbrodt/fungo/fun"
	"golang.org/x/exp/slices"

	"github.com/uberbrodt/erl-recv/erl/exitreason"
)

// Spawn starts [fn] in a new process and returns its PID.
//
// The process exits when [fn] returns: with [exitreason.Normal] if it returned nil, with the
// returned reason if it is an [exitreason.S] (or wraps one), and with an
// [exitreason.Exception] for any other error or a panic. An exit signal raised inside [fn]
// makes the process exit with the signal's reason.
func Spawn(fn func() error) PID {
	checkCaller()
	return doSpawn(fn, nil)
}

// SpawnLink is like [Spawn], but links the new process to the caller before it starts, so
// the caller is notified even if [fn] returns immediately.
//
// Panics if the caller is not a process.
func SpawnLink(fn func() error) PID {
	self := mustSelf()
	return doSpawn(fn, self)
}

func doSpawn(fn func() error, link *Process) PID {
	p := newProcess()
	if link != nil {
		p.addLink(link)
		link.addLink(p)
	}

	spawnedCounter.Inc()
	aliveGauge.Inc()
	go p.run(fn)

	return p.self()
}

// Self returns the PID of the calling process. Panics if the calling goroutine is not a
// process.
func Self() PID {
	return mustSelf().self()
}

// Exit terminates the calling process with [reason], which may be an [exitreason.S], an
// error, or any other value (see [exitreason.From]). It does not return.
func Exit(reason any) {
	self := mustSelf()
	panic(&ExitError{Reason: exitreason.From(reason), Proc: self.self()})
}

// ExitProcess sends an exit signal with [reason] to [pid], as if a process linked to it
// had exited with that reason. [exitreason.Kill] terminates [pid] even if it traps exits.
// Receiving the signal removes [pid]'s link to the caller, so the caller is not told when
// [pid] exits.
//
// Sending an exit signal to the calling process is the same as [Exit]. Signals to a
// process that has already exited are ignored.
func ExitProcess(pid PID, reason any) error {
	if pid.IsNil() {
		return exitreason.BadArgf("cannot exit %v", pid)
	}

	caller := checkCaller()
	sig := &ExitError{Reason: exitreason.From(reason)}

	if caller == pid.p {
		sig.Proc = caller.self()
		panic(sig)
	}
	if caller != nil {
		sig.Proc = caller.self()
	}

	pid.p.signal(sig)
	return nil
}

// Link establishes a bi-directional relationship between the calling process and [pid].
// When either process exits, the other one gets an exit signal.
//
// Links are idempotent. If [pid] has already exited, the caller immediately gets an exit
// signal with reason [exitreason.NoProc], which is raised before Link returns unless the
// caller traps exits.
func Link(pid PID) error {
	if pid.IsNil() {
		return exitreason.BadArgf("cannot link to %v", pid)
	}

	self := mustSelf()
	self.link(pid.p)
	self.checkSignal()
	return nil
}

// Unlink removes the link between the calling process and [pid], if there is one.
func Unlink(pid PID) error {
	if pid.IsNil() {
		return exitreason.BadArgf("cannot unlink from %v", pid)
	}

	self := mustSelf()
	pid.p.removeLink(self)
	self.removeLink(pid.p)
	return nil
}

// ProcessFlag sets a flag on the calling process and returns its previous value. The
// only flag is [TrapExit], which takes a bool; anything else returns a badarg error.
func ProcessFlag(flag ProcFlag, value any) (any, error) {
	return mustSelf().processFlag(flag, value)
}

// Processes returns every live process, ordered by creation.
func Processes() []PID {
	checkCaller()

	procs := fun.Filter(processRegistry().snapshot(), func(p *Process) bool {
		return p.isAlive()
	})
	slices.SortFunc(procs, func(a, b *Process) int {
		return cmp.Compare(a.id, b.id)
	})

	pids := make([]PID, 0, len(procs))
	for _, p := range procs {
		pids = append(pids, p.self())
	}
	return pids
}

// IsAlive reports whether [pid] is a process that has not exited yet.
func IsAlive(pid PID) bool {
	checkCaller()
	if pid.IsNil() {
		return false
	}
	return pid.p.isAlive()
}

// Send puts [msg] at the end of [pid]'s mailbox and returns it. Messages to a process that
// has exited, or to [UndefinedPID], are dropped.
func Send(pid PID, msg any) any {
	checkCaller()
	if pid.IsNil() {
		return msg
	}
	return pid.p.send(msg)
}

// SendTo resolves [dest] and sends it [msg].
func SendTo(dest Dest, msg any) (any, error) {
	pid, err := dest.ResolvePID()
	if err != nil {
		return msg, err
	}
	return Send(pid, msg), nil
}

// MakeRef returns a new unique [Ref].
func MakeRef() Ref {
	return Ref(xid.New().String())
}
