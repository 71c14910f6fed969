package tracker

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"geoscan/pkg/core"
	"geoscan/pkg/radio"
	"geoscan/pkg/scan"
)

// Tracker tracks scan outcome statistics per technology. It implements core.Observer.
type Tracker struct {
	mu     sync.RWMutex
	stats  map[radio.Technology]*TechStats
	groups int64
	state  atomic.Value // core.State
}

// TechStats holds counters for one technology.
// Fields are accessed atomically.
type TechStats struct {
	Completed  int64 `json:"completed"`
	TimedOut   int64 `json:"timed_out"`
	Busy       int64 `json:"busy"`
	Faults     int64 `json:"faults"`
	Errors     int64 `json:"errors"`
	Detections int64 `json:"detections"`
	LastCount  int64 `json:"last_count"`
}

// Snapshot is a consistent copy of all counters.
type Snapshot struct {
	State  core.State                     `json:"state"`
	Groups int64                          `json:"groups"`
	Scans  map[radio.Technology]TechStats `json:"scans"`
}

// New creates a new Tracker.
func New() *Tracker {
	t := &Tracker{
		stats: make(map[radio.Technology]*TechStats),
	}
	t.state.Store(core.StateIdle)
	return t
}

// getStats returns the stats object for a technology, creating it if needed.
func (t *Tracker) getStats(tech radio.Technology) *TechStats {
	t.mu.RLock()
	s, ok := t.stats[tech]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[tech]; ok {
		return s
	}
	s = &TechStats{}
	t.stats[tech] = s
	return s
}

func (t *Tracker) StateChanged(st core.State) {
	t.state.Store(st)
}

func (t *Tracker) ScanFinished(tech radio.Technology, out scan.Outcome, _ *scan.ResultSet) {
	s := t.getStats(tech)
	if out.TimedOut {
		atomic.AddInt64(&s.TimedOut, 1)
	} else {
		atomic.AddInt64(&s.Completed, 1)
	}
	atomic.AddInt64(&s.Detections, int64(out.Count))
	atomic.StoreInt64(&s.LastCount, int64(out.Count))
}

func (t *Tracker) ScanFailed(tech radio.Technology, err error) {
	s := t.getStats(tech)
	switch {
	case errors.Is(err, scan.ErrRadioBusy):
		atomic.AddInt64(&s.Busy, 1)
	case errors.Is(err, scan.ErrRadioFault):
		atomic.AddInt64(&s.Faults, 1)
	default:
		atomic.AddInt64(&s.Errors, 1)
	}
}

func (t *Tracker) GroupFinished(_ *core.Bundle, _ time.Duration) {
	atomic.AddInt64(&t.groups, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := Snapshot{
		State:  t.state.Load().(core.State),
		Groups: atomic.LoadInt64(&t.groups),
		Scans:  make(map[radio.Technology]TechStats, len(t.stats)),
	}
	for k, v := range t.stats {
		result.Scans[k] = TechStats{
			Completed:  atomic.LoadInt64(&v.Completed),
			TimedOut:   atomic.LoadInt64(&v.TimedOut),
			Busy:       atomic.LoadInt64(&v.Busy),
			Faults:     atomic.LoadInt64(&v.Faults),
			Errors:     atomic.LoadInt64(&v.Errors),
			Detections: atomic.LoadInt64(&v.Detections),
			LastCount:  atomic.LoadInt64(&v.LastCount),
		}
	}
	return result
}

// Reset zeroes all counters but keeps known technologies.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.stats {
		t.stats[k] = &TechStats{}
	}
	atomic.StoreInt64(&t.groups, 0)
}
