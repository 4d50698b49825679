// Timeout values shared by receivers and test helpers.
package timeout

import (
	"time"

	"github.com/uberbrodt/erl-recv/chronos"
)

// Infinity passed as a receive timeout waits forever.
const Infinity time.Duration = 1<<63 - 1

var Default time.Duration = chronos.Dur("5s")
