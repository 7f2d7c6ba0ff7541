package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterRefillsAndSweeps(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "burst spent")
	assert.True(t, rl.Allow("b"), "keys have separate buckets")

	clock = clock.Add(time.Second)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	clock = clock.Add(rl.idle + time.Second)
	rl.Sweep()
	assert.Zero(t, rl.size())
}

func TestAPILimitsByUserNotForwardedFor(t *testing.T) {
	s := newTestServer(t, &fakePractice{}, &fakeArena{})
	s.userLimiter.rate = 0
	s.userLimiter.burst = 2
	h := s.Handler()

	call := func(userID int64, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		req.Header.Set("Authorization", bearer(t, userID))
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call(1, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, call(1, "10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, call(1, "10.0.0.3"), "a fresh header does not buy a fresh bucket")
	assert.Equal(t, http.StatusOK, call(2, "10.0.0.3"), "other users are unaffected")
}

func TestPublicRoutesLimitByPeerAddress(t *testing.T) {
	s := newTestServer(t, &fakePractice{}, &fakeArena{})
	s.ipLimiter.rate = 0
	s.ipLimiter.burst = 1
	h := s.Handler()

	call := func(remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("192.0.2.1:5000", "1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("192.0.2.1:5001", "2.2.2.2"), "same host, other port")
	assert.Equal(t, http.StatusOK, call("192.0.2.9:5000", "1.1.1.1"))
}

func TestSweepStopsWithContext(t *testing.T) {
	s := newTestServer(t, &fakePractice{}, &fakeArena{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Sweep(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "sweeper still running after cancel")
	}
}
