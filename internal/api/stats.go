package api

import (
	"net/http"
	"runtime"
	"sync"
	"time"

	"geoscan/pkg/tracker"
)

type StatsHandler struct {
	tracker *tracker.Tracker
	started time.Time
	mu      sync.Mutex
	maxHeap uint64
}

func NewStatsHandler(t *tracker.Tracker) *StatsHandler {
	return &StatsHandler{
		tracker: t,
		started: time.Now(),
	}
}

type ComponentStats struct {
	Name          string  `json:"name"`
	MemoryMB      uint64  `json:"memory_mb"`
	MemoryMaxMB   uint64  `json:"memory_max_mb"`
	Goroutines    int     `json:"goroutines"`
	UptimeSeconds float64 `json:"uptime_sec"`
}

type StatsResponse struct {
	Diagnostics []ComponentStats `json:"diagnostics"`
	Scanning    tracker.Snapshot `json:"scanning"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Diagnostics: []ComponentStats{h.gatherDiagnostics()},
		Scanning:    h.tracker.Snapshot(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *StatsHandler) gatherDiagnostics() ComponentStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	h.mu.Lock()
	if ms.HeapAlloc > h.maxHeap {
		h.maxHeap = ms.HeapAlloc
	}
	maxHeap := h.maxHeap
	h.mu.Unlock()

	return ComponentStats{
		Name:          "Server",
		MemoryMB:      bToMb(ms.HeapAlloc),
		MemoryMaxMB:   bToMb(maxHeap),
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: time.Since(h.started).Seconds(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
