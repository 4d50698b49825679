package erl

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"weak"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/petermattis/goid"
	"go.uber.org/atomic"

	"github.com/uberbrodt/erl-recv/erl/exitreason"
	"github.com/uberbrodt/erl-recv/erl/internal/mailbox"
)

var nextProcessID atomic.Int64

// Process is the state behind a [PID]: a mailbox, the links to other processes and a slot
// for one pending exit signal.
//
// Locks, in the order they may be nested:
//   - mbox guards the message queue and receivers. Receivers' own locks are only ever
//     taken while holding it, one at a time.
//   - linkMx guards links and the transition of alive to false.
//   - sigMx guards sig and trapExit. It is never held while taking another lock.
type Process struct {
	id   int64
	root bool

	mbox      *mailbox.Mailbox
	receivers map[uint64]weak.Pointer[Receiver]

	alive  atomic.Bool
	linkMx sync.Mutex
	links  mapset.Set[*Process]

	sigMx    sync.Mutex
	sig      *ExitError
	sigSet   atomic.Bool
	trapExit bool

	nameMutex sync.RWMutex
	// the local name of the pid, optional
	_name Name
}

func newProcess() *Process {
	p := &Process{
		id:        nextProcessID.Inc(),
		mbox:      mailbox.New(),
		receivers: make(map[uint64]weak.Pointer[Receiver]),
		links:     mapset.NewThreadUnsafeSet[*Process](),
	}
	p.alive.Store(true)
	return p
}

func (p *Process) String() string {
	if p.getName() != "" {
		return fmt.Sprintf("Process<%d|%s>", p.id, p.getName())
	} else {
		return fmt.Sprintf("Process<%d>", p.id)
	}
}

func (p *Process) self() PID {
	return PID{p: p}
}

func (p *Process) isAlive() bool {
	return p.alive.Load()
}

// send appends [msg] to the mailbox unless the process has exited. Sending never blocks
// and never fails.
func (p *Process) send(msg any) any {
	if !p.isAlive() {
		return msg
	}

	p.mbox.Lock()
	p.mbox.Enqueue(msg)
	p.mbox.Notify()
	p.mbox.Unlock()

	sentCounter.Inc()
	return msg
}

// addLink records a one way link from p to [other]. It reports false, recording nothing,
// if p has already exited.
func (p *Process) addLink(other *Process) bool {
	if other == p {
		return true
	}

	p.linkMx.Lock()
	defer p.linkMx.Unlock()

	if !p.isAlive() {
		return false
	}
	p.links.Add(other)
	return true
}

func (p *Process) removeLink(other *Process) {
	p.linkMx.Lock()
	defer p.linkMx.Unlock()

	p.links.Remove(other)
}

func (p *Process) linkedTo(other *Process) bool {
	p.linkMx.Lock()
	defer p.linkMx.Unlock()

	return p.links.Contains(other)
}

// link establishes a two way link between p and [other]. If [other] has already exited,
// p is sent a noproc exit signal instead.
func (p *Process) link(other *Process) {
	if other == p {
		return
	}

	p.addLink(other)
	if !other.addLink(p) {
		p.removeLink(other)
		p.signal(&ExitError{Reason: exitreason.NoProc, Proc: other.self()})
	}
}

// signal delivers an exit signal to p and drops p's link to the sender. A trapping process
// gets it as a message (unless the reason is kill), a normal exit is otherwise ignored, and
// anything else is kept as the pending signal unless one is pending already.
func (p *Process) signal(sig *ExitError) {
	if sig.Proc.p == p {
		panic(fmt.Sprintf("erl: %v cannot send an exit signal to itself", p))
	}
	if !p.isAlive() {
		return
	}
	if sig.Proc.p != nil {
		p.removeLink(sig.Proc.p)
	}

	p.sigMx.Lock()
	switch {
	case p.trapExit && !exitreason.IsKill(sig.Reason):
		p.sigMx.Unlock()
		DebugPrintf("%v trapped exit signal from %v: %v", p, sig.Proc, sig.Reason)
		p.send(trappedMsg(sig))
		return
	case exitreason.IsNormal(sig.Reason):
		p.sigMx.Unlock()
		return
	case p.sig == nil:
		p.sig = sig
		p.sigSet.Store(true)
	}
	p.sigMx.Unlock()

	// wake the process if it is blocked in a receive
	p.mbox.Lock()
	p.mbox.Notify()
	p.mbox.Unlock()
}

// checkSignal raises the pending exit signal, if any. Must only be called from p's own
// goroutine.
func (p *Process) checkSignal() {
	if !p.sigSet.Load() {
		return
	}

	sig := p.takeSignal()
	if sig != nil {
		panic(sig)
	}
}

func (p *Process) takeSignal() *ExitError {
	p.sigMx.Lock()
	defer p.sigMx.Unlock()

	sig := p.sig
	p.sig = nil
	p.sigSet.Store(false)
	return sig
}

func (p *Process) processFlag(flag ProcFlag, value any) (any, error) {
	switch flag {
	case TrapExit:
		v, ok := value.(bool)
		if !ok {
			return nil, exitreason.BadArgf("%s expects a bool, got %T", flag, value)
		}
		p.sigMx.Lock()
		defer p.sigMx.Unlock()
		prev := p.trapExit
		p.trapExit = v
		return prev, nil
	default:
		return nil, exitreason.BadArgf("unknown process flag %q", flag)
	}
}

func (p *Process) trappingExits() bool {
	p.sigMx.Lock()
	defer p.sigMx.Unlock()
	return p.trapExit
}

// exit marks p dead and sends [reason] to every linked process. Only the first call has
// any effect.
func (p *Process) exit(reason *exitreason.S) {
	if exitreason.IsKill(reason) {
		reason = exitreason.Killed
	}

	p.linkMx.Lock()
	if !p.alive.CompareAndSwap(true, false) {
		p.linkMx.Unlock()
		return
	}
	links := p.links.ToSlice()
	p.links.Clear()
	p.linkMx.Unlock()

	if name := p.getName(); name != "" {
		DebugPrintf("%v unregistering name: %s", p, name)
		unregisterProcess(name, p)
	}

	aliveGauge.Dec()
	exitedCounter.WithLabelValues(reason.Kind()).Inc()
	DebugPrintf("%v exited: %v", p, reason)

	sig := &ExitError{Reason: reason, Proc: p.self()}
	for _, linked := range links {
		linked.removeLink(p)
		linked.signal(sig)
	}
}

// run is the entry point of a spawned process's goroutine. However [fn] ends, the process
// exits and its goroutine is removed from the registry.
func (p *Process) run(fn func() error) {
	gid := goid.Get()
	processRegistry().add(gid, p)

	// only left as is when fn calls runtime.Goexit
	reason := exitreason.Exception(errors.New("process goroutine exited early"))
	defer func() {
		p.exit(reason)
		processRegistry().remove(gid)
	}()

	reason = p.invoke(fn)
}

func (p *Process) invoke(fn func() error) (reason *exitreason.S) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		switch v := r.(type) {
		case *ExitError:
			reason = v.Reason
		case error:
			reason = exitreason.Exception(fmt.Errorf("%v panicked: %w", p, v))
		default:
			reason = exitreason.Exception(fmt.Errorf("%v panicked: %v", p, v))
		}
		if exitreason.IsException(reason) {
			Logger.Printf("%v exited with exception: %v, stack: %s", p, reason, debug.Stack())
		}
	}()

	return exitreason.From(fn())
}

type receiverBinding struct {
	p  *Process
	id uint64
}

// addReceiver records a weak reference to [r]. The returned cleanup removes the entry once
// [r] is garbage collected; stop it when unregistering explicitly.
func (p *Process) addReceiver(r *Receiver) runtime.Cleanup {
	p.mbox.Lock()
	p.receivers[r.id] = weak.Make(r)
	p.mbox.Unlock()

	return runtime.AddCleanup(r, func(b receiverBinding) {
		b.p.removeReceiver(b.id)
	}, receiverBinding{p: p, id: r.id})
}

func (p *Process) removeReceiver(id uint64) {
	p.mbox.Lock()
	defer p.mbox.Unlock()

	delete(p.receivers, id)
}

// number of live receivers bound to p
func (p *Process) receiverCount() int {
	p.mbox.Lock()
	defer p.mbox.Unlock()

	n := 0
	for _, wp := range p.receivers {
		if wp.Value() != nil {
			n++
		}
	}
	return n
}

// deleteMessage removes the message at [i] and moves back the cursor of every other
// receiver bound to p that had already scanned past it. Mailbox lock must be held.
func (p *Process) deleteMessage(i int, except *Receiver) any {
	msg := p.mbox.Delete(i)

	for _, wp := range p.receivers {
		r := wp.Value()
		if r == nil || r == except {
			continue
		}
		r.messageDeleted(p, i)
	}
	return msg
}

func (p *Process) getName() Name {
	p.nameMutex.RLock()
	defer p.nameMutex.RUnlock()
	return p._name
}

func (p *Process) setName(name Name) {
	p.nameMutex.Lock()
	defer p.nameMutex.Unlock()

	p._name = name
}
