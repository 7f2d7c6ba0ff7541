package practice

import (
	"sync"
	"time"
)

// SubmitLimiter enforces a minimum interval between submissions of the same
// user.
type SubmitLimiter struct {
	mu          sync.Mutex
	last        map[int64]time.Time
	minInterval time.Duration
	now         func() time.Time
}

func NewSubmitLimiter(minInterval time.Duration) *SubmitLimiter {
	return &SubmitLimiter{
		last:        make(map[int64]time.Time),
		minInterval: minInterval,
		now:         time.Now,
	}
}

// Allow returns true if enough time has passed since the user's last
// accepted submission.
func (l *SubmitLimiter) Allow(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	last, ok := l.last[userID]
	if ok && now.Sub(last) < l.minInterval {
		return false
	}
	l.last[userID] = now
	return true
}

// Sweep forgets users idle for longer than the interval.
func (l *SubmitLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.minInterval)
	for id, t := range l.last {
		if t.Before(cutoff) {
			delete(l.last, id)
		}
	}
}
