package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics collects basic application metrics as JSON.
type Metrics struct {
	wsConnections   atomic.Int64
	attempts        atomic.Int64
	correctAttempts atomic.Int64
	eventsRelayed   atomic.Int64
	startTime       time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func (m *Metrics) IncrWSConn()  { m.wsConnections.Add(1) }
func (m *Metrics) DecrWSConn()  { m.wsConnections.Add(-1) }
func (m *Metrics) IncrRelayed() { m.eventsRelayed.Add(1) }

func (m *Metrics) IncrAttempt(correct bool) {
	m.attempts.Add(1)
	if correct {
		m.correctAttempts.Add(1)
	}
}

// ServeHTTP exposes metrics as JSON at /metrics.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	data := map[string]any{
		"uptime_seconds":   int(time.Since(m.startTime).Seconds()),
		"ws_connections":   m.wsConnections.Load(),
		"attempts":         m.attempts.Load(),
		"correct_attempts": m.correctAttempts.Load(),
		"events_relayed":   m.eventsRelayed.Load(),
		"goroutines":       runtime.NumGoroutine(),
		"heap_alloc_mb":    mem.HeapAlloc / 1024 / 1024,
		"sys_mb":           mem.Sys / 1024 / 1024,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
}
