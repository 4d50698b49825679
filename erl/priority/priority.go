// Package priority receives from several receivers in order of precedence: a message for
// an earlier receiver is always taken before a message for a later one, no matter which
// arrived first.
package priority

import (
	"time"

	"github.com/uberbrodt/erl-recv/erl"
)

type timedOut struct{}

func poll(...any) any {
	return timedOut{}
}

// Receiver polls merged receivers from highest to lowest priority.
//
// Level i holds the handlers of the first i+1 receivers, so a receive at level i still
// honours the precedence of every receiver before it.
type Receiver struct {
	levels []*erl.Receiver
}

// New builds a Receiver from [receivers], highest priority first. Handlers are copied, so
// later changes to [receivers] have no effect.
func New(receivers ...*erl.Receiver) *Receiver {
	pr := &Receiver{levels: make([]*erl.Receiver, 0, len(receivers))}

	var prev *erl.Receiver
	for _, r := range receivers {
		merged := erl.NewReceiver()
		if prev != nil {
			merged.AddHandlers(prev)
		}
		merged.AddHandlers(r)
		pr.levels = append(pr.levels, merged)
		prev = merged
	}
	return pr
}

// Receive returns the result of the highest priority handler with a waiting message,
// blocking until there is one.
func (pr *Receiver) Receive() any {
	if result, ok := pr.pollHigher(); ok {
		return result
	}
	return pr.lowest().Receive()
}

// ReceiveTimeout is [Receiver.Receive] giving up after [d], as [erl.Receiver.ReceiveTimeout].
func (pr *Receiver) ReceiveTimeout(d time.Duration, fn erl.HandlerFunc, args ...any) any {
	if result, ok := pr.pollHigher(); ok {
		return result
	}
	return pr.lowest().ReceiveTimeout(d, fn, args...)
}

func (pr *Receiver) pollHigher() (any, bool) {
	if len(pr.levels) == 0 {
		return nil, false
	}

	for _, r := range pr.levels[:len(pr.levels)-1] {
		result := r.ReceiveTimeout(0, poll)
		if _, ok := result.(timedOut); !ok {
			return result, true
		}
	}
	return nil, false
}

func (pr *Receiver) lowest() *erl.Receiver {
	if len(pr.levels) == 0 {
		panic("priority: Receiver has no receivers")
	}
	return pr.levels[len(pr.levels)-1]
}

// Close unbinds every merged receiver from its process.
func (pr *Receiver) Close() {
	for _, r := range pr.levels {
		r.Close()
	}
}
