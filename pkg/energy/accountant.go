// Package energy keeps the per-session radio energy budget.
package energy

import (
	"sync"
	"time"
)

// Reading is a point-in-time view of the accountant.
type Reading struct {
	LastScanID string    `json:"last_scan_id"`
	LastUAh    uint32    `json:"last_uah"`
	TotalUAh   uint64    `json:"total_uah"`
	Scans      int       `json:"scans"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Accountant accumulates microampere-hours per scan. The total never decreases.
type Accountant struct {
	mu      sync.RWMutex
	lastID  string
	last    uint32
	total   uint64
	count   int
	updated time.Time
}

// NewAccountant creates an empty accountant.
func NewAccountant() *Accountant {
	return &Accountant{}
}

// Record adds the energy of one scan.
func (a *Accountant) Record(scanID string, uah uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastID = scanID
	a.last = uah
	a.total += uint64(uah)
	a.count++
	a.updated = time.Now()
}

// Last returns the energy of the most recently recorded scan.
func (a *Accountant) Last() uint32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Total returns the cumulative energy of the session.
func (a *Accountant) Total() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.total
}

// Count returns how many scans were recorded.
func (a *Accountant) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.count
}

// Reading returns all counters consistently.
func (a *Accountant) Reading() Reading {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Reading{
		LastScanID: a.lastID,
		LastUAh:    a.last,
		TotalUAh:   a.total,
		Scans:      a.count,
		UpdatedAt:  a.updated,
	}
}
