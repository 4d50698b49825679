// Tuples are the fixed-arity message shape used with selective receive. A tuple pattern
// only matches a Tuple message of the same length (see the pattern package).
package tuple

type Tuple []any

func New(items ...any) Tuple {
	v := make(Tuple, len(items))
	copy(v, items)
	return v
}

func Get[T any](tup Tuple, idx int) T {
	return tup[idx].(T)
}

// Like [Get] but reports false instead of panicking when [idx] is out of range or the
// element is not a T.
func Lookup[T any](tup Tuple, idx int) (T, bool) {
	var zero T
	if idx < 0 || idx >= len(tup) {
		return zero, false
	}
	v, ok := tup[idx].(T)
	return v, ok
}

func Update[T any](tup Tuple, idx int, v any) Tuple {
	x := New(tup...)
	x[idx] = v
	return x
}

func Two[ONE any, TWO any](t Tuple) (ONE, TWO) {
	return Get[ONE](t, 0), Get[TWO](t, 1)
}

func Three[ONE any, TWO any, THREE any](t Tuple) (ONE, TWO, THREE) {
	return Get[ONE](t, 0), Get[TWO](t, 1), Get[THREE](t, 2)
}
