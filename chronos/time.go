package chronos

import (
	"time"
)

// Dur parses a duration string such as "200ms" or "1.5s", panicking if it is malformed.
// Intended for constants and tests.
func Dur(s string) time.Duration {
	t, err := time.ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Ms converts a whole number of milliseconds to a [time.Duration].
func Ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
