package task_test

import (
	"errors"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/uberbrodt/erl-recv/erl"
	"github.com/uberbrodt/erl-recv/erl/erltest"
	"github.com/uberbrodt/erl-recv/erl/exitreason"
	"github.com/uberbrodt/erl-recv/erl/exitwaiter"
	"github.com/uberbrodt/erl-recv/erl/pattern"
	"github.com/uberbrodt/erl-recv/erl/task"
	"github.com/uberbrodt/erl-recv/erl/tuple"
)

// a task function that blocks until its cleanup runs
func blocking() (taskFun func() error, cleanup func() error, cleaned <-chan struct{}) {
	stop := make(chan struct{})
	return func() error {
			<-stop
			return nil
		}, func() error {
			close(stop)
			return nil
		}, stop
}

func noop() error { return nil }

// exitReason waits for the EXIT message from [pid] in the calling (trapping) process.
func exitReason(t *testing.T, pid erl.PID) any {
	msg, ok := erltest.Receive(tuple.New(erl.EXIT, pid, pattern.Any), time.Second)
	assert.Check(t, ok, "task %v did not exit", pid)
	_, reason, _ := erl.ExitMsg(msg)
	return reason
}

func TestTask_ExitsNormallyWhenFunReturns(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		erl.ProcessFlag(erl.TrapExit, true)
		pid := task.StartLink(noop, noop)

		assert.Check(t, is.Equal(exitReason(t, pid), "normal"))
	})
}

func TestTask_ErrorIsException(t *testing.T) {
	boom := errors.New("boom")

	erltest.RunOK(t, func(self erl.PID) {
		erl.ProcessFlag(erl.TrapExit, true)
		pid := task.StartLink(func() error { return boom }, noop)

		err, ok := exitReason(t, pid).(error)
		assert.Check(t, ok)
		assert.Check(t, exitreason.IsException(err))
		assert.Check(t, errors.Is(exitreason.To(err).ExceptionDetail(), boom))
	})
}

func TestTask_Stop(t *testing.T) {
	taskFun, cleanup, cleaned := blocking()
	pid := task.Start(taskFun, cleanup, task.SetName("task-stop-test"))
	w := exitwaiter.Watch(pid)

	for range 100 {
		if _, exists := erl.WhereIs("task-stop-test"); exists {
			break
		}
		time.Sleep(time.Millisecond)
	}
	found, exists := erl.WhereIs("task-stop-test")
	assert.Assert(t, exists)
	assert.Assert(t, found.Equals(pid))

	assert.NilError(t, task.Stop(pid))

	reason, err := w.Wait(time.Second)
	assert.NilError(t, err)
	assert.Equal(t, reason, "normal")

	select {
	case <-cleaned:
	default:
		t.Fatal("cleanup was not called")
	}
}

func TestTask_CleansUpWhenLinkExits(t *testing.T) {
	taskFun, cleanup, cleaned := blocking()

	reason := erltest.Run(t, func(self erl.PID) {
		task.StartLink(taskFun, cleanup)
		erl.Exit("parent done")
	})
	assert.Equal(t, reason, "parent done")

	select {
	case <-cleaned:
	case <-time.After(time.Second):
		t.Fatal("cleanup was not called")
	}
}

func TestTask_ExitReasonFollowsSignal(t *testing.T) {
	taskFun, cleanup, _ := blocking()

	erltest.RunOK(t, func(self erl.PID) {
		erl.ProcessFlag(erl.TrapExit, true)
		pid := task.StartLink(taskFun, cleanup)

		// from a separate process, so the task stays linked to us
		erl.Spawn(func() error { return erl.ExitProcess(pid, "shutdown") })

		assert.Check(t, is.Equal(exitReason(t, pid), "shutdown"))
	})
}

func TestTask_CleanupError(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		erl.ProcessFlag(erl.TrapExit, true)
		stop := make(chan struct{})
		pid := task.StartLink(func() error {
			<-stop
			return nil
		}, func() error {
			close(stop)
			return errors.New("close failed")
		})

		task.Stop(pid)

		err, ok := exitReason(t, pid).(error)
		assert.Check(t, ok)
		assert.Check(t, exitreason.IsException(err))
	})
}

func TestTask_SetNameInUse(t *testing.T) {
	erltest.RunOK(t, func(self erl.PID) {
		erl.ProcessFlag(erl.TrapExit, true)
		assert.Check(t, erl.Register("task-name-taken", self))

		pid := task.StartLink(noop, noop, task.SetName("task-name-taken"))

		// registration errors unwrap to badarg
		assert.Check(t, is.Equal(exitReason(t, pid), "badarg"))
	})
}
