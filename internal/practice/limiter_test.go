package practice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubmitLimiter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewSubmitLimiter(time.Second)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1), "second submission inside the interval")
	assert.True(t, l.Allow(2), "users are limited independently")

	now = now.Add(time.Second)
	assert.True(t, l.Allow(1))
}

func TestSubmitLimiterSweep(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewSubmitLimiter(time.Second)
	l.now = func() time.Time { return now }

	l.Allow(1)
	now = now.Add(500 * time.Millisecond)
	l.Allow(2)
	now = now.Add(700 * time.Millisecond)
	l.Sweep()

	assert.NotContains(t, l.last, int64(1))
	assert.Contains(t, l.last, int64(2))
}
