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
	"github.com/uberbrodt/erl-recv/erl/pattern"
	"github.com/uberbrodt/erl-recv/erl/timeout"
	"github.com/uberbrodt/erl-recv/erl/tuple"
)

func echo(args ...any) any {
	return args[0]
}

func constant(v any) erl.HandlerFunc {
	return func(...any) any { return v }
}

func TestReceive_FirstMatchingMessage(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		erl.Send(self, 1)
		erl.Send(self, "a")
		erl.Send(self, 2)

		r := erl.NewReceiver()
		r.AddHandler(pattern.Type[string](), echo, erl.Message)

		assert.Check(t, is.Equal(r.Receive(), "a"))
		assert.Check(t, is.Equal(self.MailboxLen(), 2))
	})
}

func TestReceive_HandlersTriedInOrder(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		erl.Send(self, 7)

		r := erl.NewReceiver()
		r.AddHandler(pattern.Type[int](), constant("first"))
		r.AddHandler(7, constant("second"))

		assert.Check(t, is.Equal(r.Receive(), "first"))
	})
}

func TestReceive_OldestMessageFirst(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		erl.Send(self, "b")
		erl.Send(self, "a")

		r := erl.NewReceiver()
		r.AddHandler("a", echo, erl.Message)
		r.AddHandler("b", echo, erl.Message)

		assert.Check(t, is.Equal(r.Receive(), "b"))
		assert.Check(t, is.Equal(r.Receive(), "a"))
	})
}

func TestReceive_HandlerArgs(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		erl.Send(self, tuple.New("add", 2))

		r := erl.NewReceiver()
		r.AddHandler(tuple.New("add", pattern.Type[int]()), func(args ...any) any {
			base := args[0].(int)
			n := tuple.Get[int](args[1].(tuple.Tuple), 1)
			return base + n
		}, 40, erl.Message)

		assert.Check(t, is.Equal(r.Receive(), 42))
	})
}

func TestReceive_UnmatchedMessagesStay(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		erl.Send(self, "unwanted")

		r := erl.NewReceiver()
		r.AddHandler("wanted", echo, erl.Message)
		assert.Check(t, is.Equal(r.ReceiveTimeout(0, constant("timeout")), "timeout"))

		other := erl.NewReceiver()
		other.AddHandler("unwanted", echo, erl.Message)
		assert.Check(t, is.Equal(other.ReceiveTimeout(0, constant("timeout")), "unwanted"))
	})
}

func TestReceiveTimeout_WaitsFullDuration(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		r := erl.NewReceiver()
		r.Bind("never")

		start := time.Now()
		result := r.ReceiveTimeout(shortWait, constant("timeout"))

		assert.Check(t, is.Equal(result, "timeout"))
		assert.Check(t, time.Since(start) >= shortWait)
	})
}

func TestReceiveTimeout_MessageBeforeDeadline(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		erl.SendAfter(self, "late", chronos.Dur("150ms"))

		r := erl.NewReceiver()
		r.AddHandler("late", echo, erl.Message)

		assert.Check(t, is.Equal(r.ReceiveTimeout(chronos.Dur("1s"), constant("timeout")), "late"))
	})
}

func TestReceiveTimeout_InfinityWaits(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		erl.SendAfter(self, "ping", chronos.Dur("50ms"))

		r := erl.NewReceiver()
		r.AddHandler("ping", echo, erl.Message)

		assert.Check(t, is.Equal(r.ReceiveTimeout(timeout.Infinity, constant("timeout")), "ping"))
	})
}

func TestReceiveTimeout_NegativeIsBadArg(t *testing.T) {
	reason := erltest.Run(t, func(self erl.PID) {
		erl.NewReceiver().ReceiveTimeout(-time.Second, constant("timeout"))
	})

	assert.Equal(t, reason, "badarg")
}

func TestAfter_AppliesToNextReceiveOnly(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		r := erl.NewReceiver()
		r.AddHandler("msg", echo, erl.Message)

		assert.Check(t, r.After(chronos.Ms(10), constant("timeout")))
		assert.Check(t, is.Equal(r.Receive(), "timeout"))

		// consumed by the previous receive
		erl.SendAfter(self, "msg", chronos.Ms(50))
		assert.Check(t, is.Equal(r.Receive(), "msg"))
	})
}

func TestAfter_Negative(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		r := erl.NewReceiver()
		assert.Check(t, exitreason.IsBadArg(r.After(-time.Millisecond, constant("timeout"))))
	})
}

func TestAfter_AlreadySetPanics(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		r := erl.NewReceiver()
		r.After(time.Second, constant("timeout"))

		assert.Check(t, is.Panics(func() {
			r.After(time.Second, constant("timeout"))
		}))
		assert.Check(t, is.Panics(func() {
			r.ReceiveTimeout(time.Second, constant("timeout"))
		}))
	})
}

func TestRemoveHandler(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		erl.Send(self, "x")

		r := erl.NewReceiver()
		id := r.AddHandler("x", constant("removed"))
		r.AddHandler(pattern.Any, constant("kept"))

		assert.Check(t, r.RemoveHandler(id))
		assert.Check(t, exitreason.IsBadArg(r.RemoveHandler(id)))
		assert.Check(t, is.Equal(r.Receive(), "kept"))
	})
}

func TestAddHandlers_CopiesInOrder(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		erl.Send(self, 1)
		erl.Send(self, "s")

		src := erl.NewReceiver()
		src.AddHandler(pattern.Type[string](), constant("string"))
		src.AddHandler(pattern.Type[int](), constant("int"))

		r := erl.NewReceiver()
		r.AddHandler(tuple.New(pattern.Any), constant("tuple"))
		ids := r.AddHandlers(src)
		assert.Check(t, is.Len(ids, 2))

		// changes to src after the copy do not affect r
		src.AddHandler(pattern.Any, constant("any"))

		assert.Check(t, is.Equal(r.Receive(), "int"))
		assert.Check(t, is.Equal(r.Receive(), "string"))
	})
}

func TestBind_ReturnsNil(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		erl.Send(self, "drop me")

		r := erl.NewReceiver()
		r.Bind(pattern.Any)

		assert.Check(t, r.Receive() == nil)
		assert.Check(t, is.Equal(self.MailboxLen(), 0))
	})
}

func TestAll_ReceivesUntilBreak(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		for _, m := range []any{1, 2, 3, "stop", 4} {
			erl.Send(self, m)
		}

		r := erl.NewReceiver()
		r.AddHandler(pattern.Any, echo, erl.Message)

		var got []any
		for result := range r.All() {
			if result == "stop" {
				break
			}
			got = append(got, result)
		}

		assert.Check(t, is.DeepEqual(got, []any{1, 2, 3}))
		assert.Check(t, is.Equal(self.MailboxLen(), 1))
	})
}

func TestReceive_SharedMailboxBetweenReceivers(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		ints := erl.NewReceiver()
		ints.AddHandler(pattern.Type[int](), echo, erl.Message)
		strs := erl.NewReceiver()
		strs.AddHandler(pattern.Type[string](), echo, erl.Message)

		for _, m := range []any{"a", 1, "b", 2} {
			erl.Send(self, m)
		}

		assert.Check(t, is.Equal(ints.Receive(), 1))
		assert.Check(t, is.Equal(strs.Receive(), "a"))
		assert.Check(t, is.Equal(strs.Receive(), "b"))
		assert.Check(t, is.Equal(ints.Receive(), 2))
	})
}

func TestReceive_TrappedExitIsMessage(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		erl.ProcessFlag(erl.TrapExit, true)
		child := erl.SpawnLink(func() error {
			erl.Exit("boom")
			return nil
		})

		r := erl.NewReceiver()
		r.AddHandler(tuple.New(erl.EXIT, pattern.Any, pattern.Any), func(args ...any) any {
			from, reason, ok := erl.ExitMsg(args[0])
			assert.Check(t, ok)
			assert.Check(t, from.Equals(child))
			return reason
		}, erl.Message)

		assert.Check(t, is.Equal(r.ReceiveTimeout(time.Second, constant("timeout")), "boom"))
	})
}

func TestReceive_OutsideProcessPanics(t *testing.T) {
	r := erl.NewReceiver()

	assert.Assert(t, is.Panics(func() { r.Receive() }))
}
