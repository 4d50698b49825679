// Each process exits with an [exitreason.S]. The reason travels to every linked process
// as part of the exit signal, and decides whether the link dies with it, ignores it or
// (when trapping exits) receives it as a message.
//
// In the event a process exits unexpectedly (ie. panic or a returned error), then an
// Exception reason is used.
package exitreason

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/go-cmp/cmp"
)

const (
	normal    = "normal"
	kill      = "kill"
	killed    = "killed"
	noProc    = "noproc"
	badArg    = "badarg"
	timeout   = "timeout"
	exception = "error"
	term      = "term"
)

// Opaque reason type. Use functions in this package to create new instances and
// test with the `Is*(exitreason) bool` functions.
//
// For convienence it implements the [errors] and [stringer] interfaces.
type S struct {
	short     string
	err       error
	term      any
	detail    string
	exception error
}

func (s *S) Error() string {
	switch {
	case s.short == exception:
		return fmt.Sprintf("EXIT{error: %v}", s.exception)
	case s.short == term:
		return fmt.Sprintf("EXIT{%v}", s.term)
	case s.detail != "":
		return fmt.Sprintf("EXIT{%s: %s}", s.short, s.detail)
	default:
		return fmt.Sprintf("EXIT{%s}", s.short)
	}
}

// Kind is the short symbolic name of the reason: "normal", "kill", "killed", "noproc",
// "badarg", "timeout", "error" or "term" for user supplied values.
func (s *S) Kind() string {
	return s.short
}

// Value returns what a trapping process sees as the reason in its EXIT message: the
// symbolic name for the built-in reasons, the user value for [Term] reasons and the
// reason itself for exceptions.
func (s *S) Value() any {
	switch s.short {
	case term:
		return s.term
	case exception:
		return s
	default:
		return s.short
	}
}

func (s *S) ExceptionDetail() error {
	return s.exception
}

func (s *S) Unwrap() error {
	return s.err
}

// private Sentinel Errors that get wrapped
var exceptionErr = &S{short: exception}

// Sentinel errors
var (
	// A normal process exit. Links ignore it unless they trap exits.
	Normal = &S{short: normal}
	// Untrappable exit signal.
	Kill = &S{short: kill}
	// What a process that received [Kill] reports to its own links.
	Killed = &S{short: killed}
	// The pid does not identifiy an active process
	NoProc = &S{short: noProc}
	// An invalid argument was passed to a runtime operation.
	BadArg = &S{short: badArg}
	// Returned when a request exceeds it's specified timeout.
	Timeout = &S{short: timeout}
)

var sentinels = map[string]*S{
	normal:  Normal,
	kill:    Kill,
	killed:  Killed,
	noProc:  NoProc,
	badArg:  BadArg,
	timeout: Timeout,
}

// Tests to see if error is or wraps a *S. If not, returns nil
func IsExitReason(e error) (err *S) {
	ok := errors.As(e, &err)

	if ok {
		return err
	}

	return nil
}

// Test if [exitReason] is "Normal"
func IsNormal(e error) bool {
	return errors.Is(e, Normal)
}

// Test if [exitReason] is exactly "Kill". [Killed] does not count.
func IsKill(e error) bool {
	return errors.Is(e, Kill)
}

func IsKilled(e error) bool {
	return errors.Is(e, Killed)
}

func IsNoProc(e error) bool {
	return errors.Is(e, NoProc)
}

func IsBadArg(e error) bool {
	return errors.Is(e, BadArg)
}

// General "error" exitreason. Used when a process panics or exits with an error.
func Exception(reason error) *S {
	return &S{exception: reason, err: exceptionErr, short: exception}
}

// Test if [exitReason] is "Exception"
func IsException(e error) bool {
	return errors.Is(e, exceptionErr)
}

// BadArgf returns a badarg reason carrying a description of the offending argument.
func BadArgf(format string, args ...any) *S {
	return &S{short: badArg, err: BadArg, detail: fmt.Sprintf(format, args...)}
}

// Term wraps an arbitrary user value as a reason. Strings naming one of the built-in
// reasons ("normal", "kill", ...) resolve to the matching sentinel.
func Term(v any) *S {
	if str, ok := v.(string); ok {
		if s, ok := sentinels[str]; ok {
			return s
		}
	}
	return &S{short: term, term: v}
}

// IsTerm reports whether [e] is a user value reason equal to [v].
func IsTerm(e error, v any) bool {
	s := IsExitReason(e)
	return s != nil && s.short == term && cmp.Equal(s.term, v, cmp.Exporter(func(reflect.Type) bool { return true }))
}

func To(e error) *S {
	return IsExitReason(e)
}

// From normalises anything that may be used as a reason: nil is [Normal], a *S (or an
// error wrapping one) is returned as is, any other error becomes an [Exception] and every
// other value goes through [Term].
func From(v any) *S {
	switch r := v.(type) {
	case nil:
		return Normal
	case *S:
		return r
	case error:
		if s := IsExitReason(r); s != nil {
			return s
		}
		return Exception(r)
	default:
		return Term(v)
	}
}

// Takes any error and if it is not a *S, then wraps it as an [exitreason.Exception]
func Wrap(e error) error {
	if er := IsExitReason(e); er != nil {
		return er
	} else {
		return Exception(e)
	}
}
