// Patterns describe the messages a receiver is interested in. [Compile] turns a pattern
// value into a [Predicate] once, when the handler is registered, so matching a message is
// just a function call.
//
// The shape of the pattern decides how it matches:
//
//	pattern.Any                      anything
//	func(any) bool / Predicate       whatever the function returns
//	Matcher (gomock.Eq(...) etc.)    Matcher.Matches
//	pattern.Type[T]() / reflect.Type message's dynamic type is T (or implements T)
//	tuple.New(p1, p2, ...)           a tuple.Tuple of the same length, element-wise
//	[]any{p1, p2, ...}               a []any of the same length, element-wise
//	map[K]V{k: p, ...}               a map containing every key k, with a value matching p
//	anything else                    equality
//
// Tuple and list patterns ending in [AnyRemaining] only require the message to be at least
// as long as the elements before it.
package pattern

import (
	"reflect"
	"sync"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/uberbrodt/erl-recv/erl/tuple"
)

type Predicate func(msg any) bool

// Matcher is satisfied by gomock.Matcher and friends.
type Matcher interface {
	Matches(x any) bool
}

type anyValue struct{}

func (anyValue) String() string { return "Any" }

type anyRemainingValue struct{}

func (anyRemainingValue) String() string { return "AnyRemaining" }

var (
	// Matches every message.
	Any = anyValue{}
	// As the last element of a tuple or list pattern, matches zero or more trailing elements.
	AnyRemaining = anyRemainingValue{}
)

var listRemainingWarning sync.Once

// Type returns a pattern matching messages whose dynamic type is T. If T is an interface
// type, messages implementing it match.
func Type[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Compile builds the predicate for pattern [p]. See the package documentation for the
// supported pattern shapes.
func Compile(p any) Predicate {
	switch pat := p.(type) {
	case anyValue:
		return matchAny
	case Predicate:
		return pat
	case func(any) bool:
		return pat
	case Matcher:
		return pat.Matches
	case reflect.Type:
		return typeFilter(pat)
	case tuple.Tuple:
		return tupleFilter(pat)
	case []any:
		return listFilter(pat)
	}

	if p != nil && reflect.TypeOf(p).Kind() == reflect.Map {
		return mapFilter(reflect.ValueOf(p))
	}

	return valueFilter(p)
}

func matchAny(any) bool {
	return true
}

func typeFilter(t reflect.Type) Predicate {
	return func(msg any) bool {
		if msg == nil {
			return false
		}
		mt := reflect.TypeOf(msg)
		if t.Kind() == reflect.Interface {
			return mt.Implements(t)
		}
		return mt == t
	}
}

func valueFilter(v any) Predicate {
	if v == nil {
		return func(msg any) bool {
			return msg == nil
		}
	}

	// struct types with interface fields are comparable only for some values
	t := reflect.TypeOf(v)
	if reflect.ValueOf(v).Comparable() {
		return func(msg any) bool {
			return reflect.TypeOf(msg) == t && msg == v
		}
	}

	return func(msg any) bool {
		return cmp.Equal(v, msg, exportAll)
	}
}

// compare unexported fields too, instead of panicking on them
var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

// elementFilters compiles the sub-patterns of a sequence pattern, reporting whether a
// trailing [AnyRemaining] relaxed the length check.
func elementFilters(seq []any) ([]Predicate, bool) {
	remaining := false
	if len(seq) > 0 && seq[len(seq)-1] == AnyRemaining {
		remaining = true
		seq = seq[:len(seq)-1]
	}

	filters := make([]Predicate, len(seq))
	for i, sub := range seq {
		filters[i] = Compile(sub)
	}
	return filters, remaining
}

func matchElements(filters []Predicate, remaining bool, msg []any) bool {
	if remaining && len(msg) < len(filters) {
		return false
	}
	if !remaining && len(msg) != len(filters) {
		return false
	}
	for i, f := range filters {
		if !f(msg[i]) {
			return false
		}
	}
	return true
}

func tupleFilter(tup tuple.Tuple) Predicate {
	filters, remaining := elementFilters(tup)

	return func(msg any) bool {
		m, ok := msg.(tuple.Tuple)
		if !ok {
			return false
		}
		return matchElements(filters, remaining, m)
	}
}

func listFilter(list []any) Predicate {
	filters, remaining := elementFilters(list)
	if remaining {
		listRemainingWarning.Do(func() {
			zap.S().Warnw("pattern.AnyRemaining in a list pattern is deprecated, use a tuple pattern instead",
				"pattern", list)
		})
	}

	return func(msg any) bool {
		m, ok := msg.([]any)
		if !ok {
			return false
		}
		return matchElements(filters, remaining, m)
	}
}

type keyFilter struct {
	key    reflect.Value
	filter Predicate
}

func mapFilter(m reflect.Value) Predicate {
	filters := make([]keyFilter, 0, m.Len())
	iter := m.MapRange()
	for iter.Next() {
		key := iter.Key()
		if key.Kind() == reflect.Interface && !key.IsNil() {
			key = key.Elem()
		}
		filters = append(filters, keyFilter{key: key, filter: Compile(iter.Value().Interface())})
	}

	return func(msg any) bool {
		if msg == nil {
			return false
		}
		mv := reflect.ValueOf(msg)
		if mv.Kind() != reflect.Map {
			return false
		}
		keyType := mv.Type().Key()

		for _, kf := range filters {
			if !kf.key.Type().AssignableTo(keyType) {
				return false
			}
			v := mv.MapIndex(kf.key)
			if !v.IsValid() {
				return false
			}
			if !kf.filter(v.Interface()) {
				return false
			}
		}
		return true
	}
}
