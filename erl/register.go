package erl

import (
	"cmp"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/uberbrodt/erl-recv/erl/exitreason"
)

var (
	names             = make(map[Name]PID)
	registrationMutex sync.RWMutex
)

type RegistrationErrorKind string

type RegistrationError struct {
	Kind RegistrationErrorKind
	Name Name
}

func (e *RegistrationError) Error() string {
	return string(e.Kind) + ": " + string(e.Name)
}

// Unwrap lets callers test registration errors with [exitreason.IsNoProc] and
// [exitreason.IsBadArg].
func (e *RegistrationError) Unwrap() error {
	if e.Kind == NoProc {
		return exitreason.NoProc
	}
	return exitreason.BadArg
}

const (
	// process is already registered with a name. Caller should consider calling [Unregister] and retry
	AlreadyRegistered RegistrationErrorKind = "already_registered"
	// another process already registered given name
	NameInUse RegistrationErrorKind = "name_used"
	// the process you're trying to register doesn't exist/is dead
	NoProc RegistrationErrorKind = "no_proc"
	// name is invalid and cannot be registered.
	BadName RegistrationErrorKind = "bad_name"
)

// Register associates [name] with [pid] until either is unregistered or the process exits.
// Registered names can be used with [SendTo].
func Register(name Name, pid PID) error {
	registrationMutex.Lock()
	defer registrationMutex.Unlock()
	if name == "nil" || name == "undefined" || name == "" {
		return &RegistrationError{Kind: BadName, Name: name}
	}

	if pid.IsNil() || !pid.p.isAlive() {
		return &RegistrationError{Kind: NoProc, Name: name}
	}

	if pid.p.getName() != "" {
		return &RegistrationError{Kind: AlreadyRegistered, Name: name}
	}

	if _, ok := names[name]; ok {
		return &RegistrationError{Kind: NameInUse, Name: name}
	}

	names[name] = pid
	// make sure process knows it's name. It will know to unregister itself
	// when it exits now.
	pid.p.setName(name)

	// the process may have exited before its name was set
	if !pid.p.isAlive() {
		delete(names, name)
		pid.p.setName("")
		return &RegistrationError{Kind: NoProc, Name: name}
	}
	return nil
}

func WhereIs(name Name) (pid PID, exists bool) {
	registrationMutex.RLock()
	defer registrationMutex.RUnlock()

	pid, exists = names[name]
	return
}

// Unregister given [Name]. Returns false if [Name] is not registered
func Unregister(name Name) bool {
	registrationMutex.Lock()
	defer registrationMutex.Unlock()
	if pid, ok := names[name]; ok {
		delete(names, name)
		// NOTE: need to unset the process name, otherwise it cannot be re-registered
		pid.p.setName(Name(""))
		return true
	}
	return false
}

// called by an exiting process; only removes [name] if it still belongs to [p]
func unregisterProcess(name Name, p *Process) {
	registrationMutex.Lock()
	defer registrationMutex.Unlock()

	if pid, ok := names[name]; ok && pid.p == p {
		delete(names, name)
	}
}

type Registration struct {
	Name Name
	PID  PID
}

// Registered returns all current registrations, sorted by name.
func Registered() []Registration {
	registrationMutex.RLock()
	defer registrationMutex.RUnlock()

	keys := maps.Keys(names)
	slices.SortFunc(keys, func(a, b Name) int {
		return cmp.Compare(a, b)
	})

	registrations := make([]Registration, 0, len(keys))
	for _, name := range keys {
		registrations = append(registrations, Registration{Name: name, PID: names[name]})
	}
	return registrations
}
