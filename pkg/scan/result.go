package scan

import (
	"encoding/json"
	"time"

	"geoscan/pkg/radio"
)

// SingleResult is one recorded detection.
type SingleResult struct {
	ID      string        `json:"id"`
	Channel radio.Channel `json:"channel"`
	Type    string        `json:"type"`
	RSSI    int8          `json:"rssi"`
}

func resultFrom(d radio.Detection) SingleResult {
	return SingleResult{ID: d.ID, Channel: d.Channel, Type: d.Type.String(), RSSI: d.RSSI}
}

// ResultSet is a fixed-capacity buffer holding the outcome of one scan.
// It is overwritten, not appended to, by the next scan.
type ResultSet struct {
	ScanID     string
	Technology radio.Technology
	Timestamp  time.Time
	EnergyUAh  uint32
	TimedOut   bool

	count   int
	limit   int
	results [HardCap]SingleResult
	raw     [HardCap]radio.Detection
}

// Count returns the number of valid results.
func (r *ResultSet) Count() int { return r.count }

// Limit returns the capacity applied to the current scan.
func (r *ResultSet) Limit() int { return r.limit }

// Results returns a read-only view over the valid results, in detection order.
// The view is only valid until the next scan overwrites the set.
func (r *ResultSet) Results() []SingleResult {
	return r.results[:r.count:r.count]
}

// At returns result i.
func (r *ResultSet) At(i int) (SingleResult, bool) {
	if i < 0 || i >= r.count {
		return SingleResult{}, false
	}
	return r.results[i], true
}

// Clone returns a copy safe to retain after the set is overwritten.
func (r *ResultSet) Clone() *ResultSet {
	c := *r
	return &c
}

// reset empties the set for a new scan bounded by limit.
func (r *ResultSet) reset(tech radio.Technology, limit int) {
	if limit > HardCap {
		limit = HardCap
	}
	if limit < 0 {
		limit = 0
	}
	r.ScanID = ""
	r.Technology = tech
	r.Timestamp = time.Time{}
	r.EnergyUAh = 0
	r.TimedOut = false
	r.count = 0
	r.limit = limit
}

// discard drops collected results but keeps identity and accounting fields.
func (r *ResultSet) discard() {
	r.count = 0
}

// rawBuffer exposes the fetch scratch area, bounded by the current limit.
func (r *ResultSet) rawBuffer() []radio.Detection {
	return r.raw[:r.limit]
}

// commit copies n raw detections into the results. n is clamped to [0, limit].
func (r *ResultSet) commit(n int) {
	n = max(0, min(n, r.limit))
	for i := 0; i < n; i++ {
		r.results[i] = resultFrom(r.raw[i])
	}
	r.count = n
}

type resultSetJSON struct {
	ScanID     string           `json:"scan_id,omitempty"`
	Technology radio.Technology `json:"technology"`
	Timestamp  time.Time        `json:"timestamp"`
	EnergyUAh  uint32           `json:"energy_uah"`
	TimedOut   bool             `json:"timed_out"`
	Count      int              `json:"count"`
	Results    []SingleResult   `json:"results"`
}

// MarshalJSON encodes the valid results only.
func (r *ResultSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultSetJSON{
		ScanID:     r.ScanID,
		Technology: r.Technology,
		Timestamp:  r.Timestamp,
		EnergyUAh:  r.EnergyUAh,
		TimedOut:   r.TimedOut,
		Count:      r.count,
		Results:    r.Results(),
	})
}
