// WARNING: this package is EXPERIMENTAL and may change in breaking ways
//
// tasks are basically wrappers around go routines that will send exits if the specified
// action is given.
//
// The process traps exits and will call the [cleanup] function before it exits. this makes it
// a nice fit for things like [net/http.Server]s that generally block a thread but also can be closed
// using a pointer.
package task

import (
	"fmt"

	"github.com/uberbrodt/erl-recv/erl"
	"github.com/uberbrodt/erl-recv/erl/exitreason"
	"github.com/uberbrodt/erl-recv/erl/pattern"
	"github.com/uberbrodt/erl-recv/erl/tuple"
)

type taskOpts struct {
	name erl.Name
}

type StartOpt func(opts taskOpts) taskOpts

// Register the task process with [name].
func SetName(name erl.Name) StartOpt {
	return func(opts taskOpts) taskOpts {
		opts.name = name
		return opts
	}
}

// Start runs [taskFun] in a new task process. See [StartLink].
func Start(taskFun func() error, cleanupFun func() error, opts ...StartOpt) erl.PID {
	t := newTask(taskFun, cleanupFun, opts...)
	return erl.Spawn(t.run)
}

// StartLink runs [taskFun] in a goroutine owned by a new task process linked to the
// caller. The task exits normally when [taskFun] returns nil and with an exception when
// it returns an error. If a linked process exits, or [Stop] is called, [cleanupFun] is
// called to make [taskFun] return.
func StartLink(taskFun func() error, cleanupFun func() error, opts ...StartOpt) erl.PID {
	t := newTask(taskFun, cleanupFun, opts...)
	return erl.SpawnLink(t.run)
}

// Stop asks [task] to run its cleanup function and exit normally.
func Stop(task erl.PID) error {
	// TODO: this should be synchronous. Because it's currently not, error is always nil
	erl.Send(task, stopTask{})
	return nil
}

type Task struct {
	taskFun func() error
	cleanup func() error
	opts    taskOpts
}

func newTask(taskFun func() error, cleanupFun func() error, opts ...StartOpt) *Task {
	topts := taskOpts{}
	for _, opt := range opts {
		topts = opt(topts)
	}
	return &Task{taskFun: taskFun, cleanup: cleanupFun, opts: topts}
}

type taskFunExited struct {
	err error
}

type stopTask struct{}

func (t *Task) run() error {
	self := erl.Self()
	if t.opts.name != "" {
		if err := erl.Register(t.opts.name, self); err != nil {
			return err
		}
	}
	erl.ProcessFlag(erl.TrapExit, true)

	// not a process, so it only talks to the task through its mailbox
	go func() {
		err := t.taskFun()
		erl.Send(self, taskFunExited{err: err})
	}()

	r := erl.NewReceiver()
	r.AddHandler(tuple.New(erl.EXIT, pattern.Any, pattern.Any), t.linkExited, erl.Message)
	r.AddHandler(pattern.Type[taskFunExited](), t.taskExited, erl.Message)
	r.AddHandler(stopTask{}, t.stop)

	err, _ := r.Receive().(error)
	return err
}

func (t *Task) linkExited(args ...any) any {
	from, reason, _ := erl.ExitMsg(args[0])
	erl.DebugPrintf("task %v: linked process %v exited with %v, cleaning up", erl.Self(), from, reason)

	if err := t.cleanup(); err != nil {
		return exitreason.Exception(fmt.Errorf("task cleanup failed after %v exited: %w", from, err))
	}
	return exitreason.From(reason)
}

func (t *Task) taskExited(args ...any) any {
	msg := args[0].(taskFunExited)
	if msg.err == nil {
		return exitreason.Normal
	}
	return exitreason.Exception(msg.err)
}

func (t *Task) stop(...any) any {
	if err := t.cleanup(); err != nil {
		return exitreason.Exception(err)
	}
	return exitreason.Normal
}
