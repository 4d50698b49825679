package chronos

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestDur(t *testing.T) {
	assert.Equal(t, Dur("200ms"), 200*time.Millisecond)
	assert.Equal(t, Dur("1.5s"), 1500*time.Millisecond)
}

func TestDur_PanicsOnBadInput(t *testing.T) {
	defer func() {
		assert.Assert(t, recover() != nil)
	}()

	Dur("soon")
}

func TestMs(t *testing.T) {
	assert.Equal(t, Ms(250), 250*time.Millisecond)
	assert.Equal(t, Ms(0), time.Duration(0))
}
