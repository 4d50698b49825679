package erl

import (
	"sync"

	"github.com/petermattis/goid"
	"go.uber.org/atomic"

	"github.com/uberbrodt/erl-recv/erl/exitreason"
)

// registry maps goroutine ids to the process running on them.
type registry struct {
	mx    sync.RWMutex
	procs map[int64]*Process
	root  *Process
}

var (
	registryInit sync.Mutex
	theRegistry  atomic.Pointer[registry]
)

// processRegistry returns the process registry, creating it on first use. The goroutine
// that first touches the registry becomes the root process.
func processRegistry() *registry {
	if r := theRegistry.Load(); r != nil {
		return r
	}

	registryInit.Lock()
	defer registryInit.Unlock()

	if r := theRegistry.Load(); r != nil {
		return r
	}

	root := newProcess()
	root.root = true
	r := &registry{
		procs: map[int64]*Process{goid.Get(): root},
		root:  root,
	}
	aliveGauge.Inc()
	theRegistry.Store(r)
	DebugPrintf("%v is the root process", root)
	return r
}

func (r *registry) add(gid int64, p *Process) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.procs[gid] = p
}

func (r *registry) remove(gid int64) {
	r.mx.Lock()
	defer r.mx.Unlock()
	delete(r.procs, gid)
}

func (r *registry) lookup(gid int64) *Process {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return r.procs[gid]
}

func (r *registry) snapshot() []*Process {
	r.mx.RLock()
	defer r.mx.RUnlock()

	procs := make([]*Process, 0, len(r.procs))
	for _, p := range r.procs {
		procs = append(procs, p)
	}
	return procs
}

// current returns the process of the calling goroutine, or nil if the goroutine is not a
// process.
func current() *Process {
	return processRegistry().lookup(goid.Get())
}

// checkCaller raises the caller's pending exit signal, if the caller is a process.
func checkCaller() *Process {
	p := current()
	if p != nil {
		p.checkSignal()
	}
	return p
}

func mustSelf() *Process {
	p := current()
	if p == nil {
		panic("erl: only the root goroutine or goroutines started by Spawn are processes")
	}
	p.checkSignal()
	return p
}

// RootPID returns the process representing the goroutine that first used this package,
// normally the main goroutine.
func RootPID() PID {
	return processRegistry().root.self()
}

// Shutdown exits the root process, propagating the exit to every process linked to it.
// Call it when the program is ending, typically deferred in main.
//
// If the root process has a pending exit signal it exits with that signal's reason, which
// is also returned. Otherwise it exits normally and Shutdown returns nil.
func Shutdown() error {
	return shutdown(processRegistry().root)
}

func shutdown(root *Process) error {
	if sig := root.takeSignal(); sig != nil {
		root.exit(sig.Reason)
		return sig
	}

	root.exit(exitreason.Normal)
	return nil
}
