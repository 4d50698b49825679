package erl

import (
	"iter"
	"runtime"
	"sync"
	"time"

	"github.com/uberbrodt/fungo/fun"
	"go.uber.org/atomic"

	"github.com/uberbrodt/erl-recv/erl/exitreason"
	"github.com/uberbrodt/erl-recv/erl/pattern"
	"github.com/uberbrodt/erl-recv/erl/timeout"
)

var nextReceiverID atomic.Uint64

type handler struct {
	id    HandlerID
	match pattern.Predicate
	fn    HandlerFunc
	args  []any
}

type afterSpec struct {
	d    time.Duration
	fn   HandlerFunc
	args []any
}

// a matched message and the handler that will process it
type dispatch struct {
	msg  any
	fn   HandlerFunc
	args []any
}

// Receiver takes messages out of the calling process's mailbox. Each handler pairs a
// pattern with a [HandlerFunc]; [Receiver.Receive] removes the first message matching any
// handler and returns what that handler returns.
//
// Messages are considered oldest first, and for each message the handlers in the order
// they were added. A message that matches no handler stays in the mailbox, where other
// receivers can still see it, but this receiver skips it until its handlers change.
//
// A Receiver belongs to whichever process last called Receive on it, and can be shared by
// code running in the same process. It must not be used from inside one of its own
// handlers.
type Receiver struct {
	id uint64

	mx          sync.Mutex
	nextHandler HandlerID
	handlers    []handler
	// mailbox index below which no handler matches
	cursor int
	// bumped whenever the cursor is reset, so a scan does not write back a stale cursor
	gen     uint64
	after   *afterSpec
	proc    *Process
	cleanup runtime.Cleanup
}

func NewReceiver() *Receiver {
	checkCaller()
	return &Receiver{id: nextReceiverID.Inc()}
}

// AddHandler registers [fn] to be called with [args] when a message matches [pat].
// Any [Message] in [args] is replaced with the matched message. A nil [fn] consumes the
// message and makes Receive return nil.
//
// Adding a handler makes previously skipped messages eligible again.
func (r *Receiver) AddHandler(pat any, fn HandlerFunc, args ...any) HandlerID {
	checkCaller()
	match := pattern.Compile(pat)

	r.mx.Lock()
	defer r.mx.Unlock()

	id := r.nextHandler
	r.nextHandler++
	r.handlers = append(r.handlers, handler{id: id, match: match, fn: fn, args: args})
	r.resetCursor()
	return id
}

// Bind registers [pat] with no handler: a matching message is consumed and Receive
// returns nil.
func (r *Receiver) Bind(pat any) HandlerID {
	return r.AddHandler(pat, nil)
}

// AddHandlers appends copies of all of [src]'s current handlers, returning their new ids.
func (r *Receiver) AddHandlers(src *Receiver) []HandlerID {
	checkCaller()

	src.mx.Lock()
	handlers := src.handlers
	src.mx.Unlock()

	r.mx.Lock()
	defer r.mx.Unlock()

	ids := make([]HandlerID, 0, len(handlers))
	added := make([]handler, 0, len(r.handlers)+len(handlers))
	added = append(added, r.handlers...)
	for _, h := range handlers {
		h.id = r.nextHandler
		r.nextHandler++
		added = append(added, h)
		ids = append(ids, h.id)
	}
	r.handlers = added
	r.resetCursor()
	return ids
}

// RemoveHandler removes the handler with [id]. Returns a badarg error if there is none.
func (r *Receiver) RemoveHandler(id HandlerID) error {
	r.mx.Lock()
	defer r.mx.Unlock()

	remaining := fun.Filter(r.handlers, func(h handler) bool {
		return h.id != id
	})
	if len(remaining) == len(r.handlers) {
		return exitreason.BadArgf("no handler with id %d", id)
	}
	r.handlers = remaining
	return nil
}

// After sets a timeout for the next receive: if no message matches within [d], Receive
// returns the result of calling [fn] with [args] (or nil if [fn] is nil). The timeout is
// used up by that receive, whether or not it expires.
//
// Returns a badarg error for a negative [d]. Panics if a timeout is already set.
func (r *Receiver) After(d time.Duration, fn HandlerFunc, args ...any) error {
	checkCaller()
	if d < 0 {
		return exitreason.BadArgf("negative timeout %s", d)
	}
	r.setAfter(&afterSpec{d: d, fn: fn, args: args})
	return nil
}

func (r *Receiver) setAfter(a *afterSpec) {
	r.mx.Lock()
	defer r.mx.Unlock()

	if r.after != nil {
		panic("erl: a timeout has already been set for this Receiver")
	}
	r.after = a
}

func (r *Receiver) takeAfter() *afterSpec {
	r.mx.Lock()
	defer r.mx.Unlock()

	a := r.after
	r.after = nil
	return a
}

// Receive blocks until a message matches one of the handlers, removes it from the mailbox
// and returns the handler's result. If a timeout was set with [Receiver.After] and expires
// first, the timeout handler's result is returned instead.
//
// A pending exit signal for the calling process is raised on entry and while waiting.
func (r *Receiver) Receive() any {
	return r.receive(nil)
}

// ReceiveTimeout is [Receiver.Receive] with an inline timeout, equivalent to calling
// [Receiver.After] first. [timeout.Infinity] waits forever.
//
// A negative [d] raises a badarg exit in the calling process.
func (r *Receiver) ReceiveTimeout(d time.Duration, fn HandlerFunc, args ...any) any {
	self := mustSelf()
	if d < 0 {
		panic(&ExitError{Reason: exitreason.BadArgf("negative timeout %s", d), Proc: self.self()})
	}
	if d == timeout.Infinity {
		return r.receive(nil)
	}
	return r.receive(&afterSpec{d: d, fn: fn, args: args})
}

func (r *Receiver) receive(inline *afterSpec) any {
	p := mustSelf()
	r.bind(p)

	if inline != nil {
		r.setAfter(inline)
	}
	after := r.takeAfter()

	var deadline time.Time
	if after != nil {
		deadline = time.Now().Add(after.d)
	}

	d := r.await(p, after, deadline)

	if d.fn == nil {
		return nil
	}
	return d.fn(substitute(d.args, d.msg)...)
}

func (r *Receiver) await(p *Process, after *afterSpec, deadline time.Time) dispatch {
	p.mbox.Lock()
	defer p.mbox.Unlock()

	for {
		if d, ok := r.scan(p); ok {
			receivedCounter.Inc()
			return d
		}
		// a signal stored before the lock was taken has already notified
		p.checkSignal()

		if after == nil {
			p.mbox.Wait()
			p.checkSignal()
			continue
		}

		remaining := time.Until(deadline)
		if remaining > 0 && p.mbox.WaitFor(remaining) {
			p.checkSignal()
			continue
		}

		p.checkSignal()
		if d, ok := r.scan(p); ok {
			receivedCounter.Inc()
			return d
		}
		receiveTimeoutCounter.Inc()
		return dispatch{fn: after.fn, args: after.args}
	}
}

// scan looks for the first message from the cursor on that matches a handler, and removes
// it from the mailbox. Mailbox lock must be held.
func (r *Receiver) scan(p *Process) (dispatch, bool) {
	r.mx.Lock()
	handlers, cursor, gen := r.handlers, r.cursor, r.gen
	r.mx.Unlock()

	for i := cursor; i < p.mbox.Size(); i++ {
		msg := p.mbox.At(i)
		for _, h := range handlers {
			if h.match(msg) {
				p.deleteMessage(i, r)
				r.storeCursor(p, gen, i)
				return dispatch{msg: msg, fn: h.fn, args: h.args}, true
			}
		}
	}

	r.storeCursor(p, gen, p.mbox.Size())
	return dispatch{}, false
}

func (r *Receiver) storeCursor(p *Process, gen uint64, cursor int) {
	r.mx.Lock()
	defer r.mx.Unlock()

	if r.gen == gen && r.proc == p {
		r.cursor = cursor
	}
}

// messageDeleted is called by another receiver that removed the message at [i] from
// [p]'s mailbox.
func (r *Receiver) messageDeleted(p *Process, i int) {
	r.mx.Lock()
	defer r.mx.Unlock()

	if r.proc == p && r.cursor > i {
		r.cursor--
	}
}

func (r *Receiver) resetCursor() {
	r.cursor = 0
	r.gen++
}

// bind makes [p] the process this receiver reads from.
func (r *Receiver) bind(p *Process) {
	r.mx.Lock()
	old, oldCleanup := r.proc, r.cleanup
	if old == p {
		r.mx.Unlock()
		return
	}
	r.proc = p
	r.resetCursor()
	r.mx.Unlock()

	if old != nil {
		oldCleanup.Stop()
		old.removeReceiver(r.id)
	}

	cleanup := p.addReceiver(r)

	r.mx.Lock()
	r.cleanup = cleanup
	r.mx.Unlock()
}

// Close unbinds the receiver from its process. Receivers that are garbage collected are
// unbound automatically; Close just does it sooner.
func (r *Receiver) Close() {
	r.mx.Lock()
	p, cleanup := r.proc, r.cleanup
	r.proc = nil
	r.resetCursor()
	r.mx.Unlock()

	if p != nil {
		cleanup.Stop()
		p.removeReceiver(r.id)
	}
}

// All returns an endless sequence of [Receiver.Receive] results.
//
//	for result := range r.All() {
//		if result == "stop" {
//			break
//		}
//	}
func (r *Receiver) All() iter.Seq[any] {
	return func(yield func(any) bool) {
		for {
			if !yield(r.Receive()) {
				return
			}
		}
	}
}

func substitute(args []any, msg any) []any {
	result := make([]any, len(args))
	for i, arg := range args {
		if arg == Message {
			result[i] = msg
		} else {
			result[i] = arg
		}
	}
	return result
}
