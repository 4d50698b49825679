package erl

// an opaque unique string. Don't rely on structure format or even size for that matter.
type Ref string

type ProcFlag string

var TrapExit ProcFlag = "trap_exit"

// Atom is a symbolic constant used to tag messages.
type Atom string

// EXIT tags the message a trapping process receives when a linked process exits.
const EXIT Atom = "EXIT"

type placeholder struct{}

func (placeholder) String() string { return "Message" }

// Message can be passed as a bound argument to [Receiver.AddHandler] and friends. When
// the handler fires, it is replaced with the message that was matched.
var Message = placeholder{}

// HandlerFunc is invoked with its bound arguments when its pattern matches a message.
// Its return value becomes the result of [Receiver.Receive].
type HandlerFunc func(args ...any) any

type HandlerID uint64
