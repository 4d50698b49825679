// A recurringtask is similar to a cronjob; it is designed to be run on a soft schedule dictated by the
// [SetInterval] option. However, there are important differences with a cronjob:
//
//  1. It does not support running a job at a specific time of day, but only supports the "run every X" idiom.
//  2. It is not guaranteed to run every time the schedule is hit. The next run of the TaskFun will occur only
//     AFTER the current execution is finished
//  3. As a side effect of #2, this guarantees that only one TaskFun is executing at any one time.
//
// Under the hood, [erl.SendAfter] is used to set the schedule, so it is susceptible to time traveling
// if the system clock changes.
package recurringtask

import (
	"time"

	"github.com/uberbrodt/erl-recv/chronos"
	"github.com/uberbrodt/erl-recv/erl"
	"github.com/uberbrodt/erl-recv/erl/exitreason"
	"github.com/uberbrodt/erl-recv/erl/exitwaiter"
)

type taskOpts struct {
	name        erl.Name
	loopTimeout time.Duration
}

type StartOpt func(opts *taskOpts) *taskOpts

// Register this task with a name
func SetName(name erl.Name) StartOpt {
	return func(opts *taskOpts) *taskOpts {
		opts.name = name
		return opts
	}
}

// How often the task function should run. It is inclusive of task run time.
// so if the interval is 5m and the task takes 1m to run, the task will
// run effectively every 6m
func SetInterval(interval time.Duration) StartOpt {
	return func(opts *taskOpts) *taskOpts {
		opts.loopTimeout = interval
		return opts
	}
}

func defaultTaskOpts() *taskOpts {
	return &taskOpts{loopTimeout: chronos.Dur("5m")}
}

type doTask struct{}

type stopTask struct{}

type rtConfig[S any, A any] struct {
	// Executed on each loopTimeout. return error to stop the function
	taskFun func(self erl.PID, state S) (S, error)
	// Setup the initialState. Runs once, in the task process
	initFun func(self erl.PID, args A) (S, error)
	args    A
	opts    *taskOpts
}

func buildTask[S any, A any](taskFun func(self erl.PID, state S) (S, error), initFun func(self erl.PID, args A) (S, error), args A, opts ...StartOpt) rtConfig[S, A] {
	topts := defaultTaskOpts()
	for _, opt := range opts {
		topts = opt(topts)
	}
	return rtConfig[S, A]{taskFun: taskFun, initFun: initFun, args: args, opts: topts}
}

func (c rtConfig[S, A]) run() error {
	self := erl.Self()
	if c.opts.name != "" {
		if err := erl.Register(c.opts.name, self); err != nil {
			return err
		}
	}

	state, err := c.initFun(self, c.args)
	if err != nil {
		return exitreason.Wrap(err)
	}

	r := erl.NewReceiver()
	r.AddHandler(doTask{}, func(...any) any {
		erl.DebugPrintf("%v running task", self)
		state, err = c.taskFun(self, state)
		if err != nil {
			return err
		}
		erl.SendAfter(self, doTask{}, c.opts.loopTimeout)
		return nil
	})
	r.AddHandler(stopTask{}, func(...any) any {
		return exitreason.Normal
	})

	erl.Send(self, doTask{})
	for result := range r.All() {
		if err, ok := result.(error); ok {
			return exitreason.Wrap(err)
		}
	}
	return nil
}

// See [StartLink]
func Start[S any, A any](taskFun func(self erl.PID, state S) (S, error), initFun func(self erl.PID, args A) (S, error), args A, opts ...StartOpt) erl.PID {
	c := buildTask(taskFun, initFun, args, opts...)
	return erl.Spawn(c.run)
}

// The [initFun] will run once, when the process starts, then the [taskFun] will
// run on every `Interval` or every 5m if [SetInterval] is not used. A [taskFun] error
// makes the task exit with it.
func StartLink[S any, A any](taskFun func(self erl.PID, state S) (S, error), initFun func(self erl.PID, args A) (S, error), args A, opts ...StartOpt) erl.PID {
	c := buildTask(taskFun, initFun, args, opts...)
	return erl.SpawnLink(c.run)
}

// Stops the task, waiting up to [tout] for it to exit. A running TaskFun will complete
// first.
func Stop(task erl.PID, tout time.Duration) error {
	w := exitwaiter.Watch(task)
	erl.Send(task, stopTask{})

	if _, err := w.Wait(tout); err != nil {
		w.Stop()
		return err
	}
	return nil
}
