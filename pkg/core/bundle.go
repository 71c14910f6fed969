package core

import (
	"time"

	"geoscan/pkg/model"
	"geoscan/pkg/radio"
	"geoscan/pkg/scan"
)

// Bundle is the aggregated outcome of one scan group, handed to the consumer.
// Sets point into scheduler-owned buffers and are only valid until the next group; Clone to retain.
type Bundle struct {
	ID             string                   `json:"id"`
	Sequence       uint64                   `json:"sequence"`
	Started        time.Time                `json:"started"`
	Completed      time.Time                `json:"completed"`
	Mode           Mode                     `json:"mode"`
	Sets           []*scan.ResultSet        `json:"sets"`
	Assistance     model.AssistancePosition `json:"assistance"`
	EnergyUAh      uint64                   `json:"energy_uah"`
	TotalEnergyUAh uint64                   `json:"total_energy_uah"`
}

// Clone returns a deep copy that survives the next group.
func (b *Bundle) Clone() *Bundle {
	c := *b
	c.Sets = make([]*scan.ResultSet, len(b.Sets))
	for i, s := range b.Sets {
		c.Sets[i] = s.Clone()
	}
	return &c
}

// Set returns the result set of a technology, or nil.
func (b *Bundle) Set(tech radio.Technology) *scan.ResultSet {
	for _, s := range b.Sets {
		if s.Technology == tech {
			return s
		}
	}
	return nil
}

// Detections returns the total result count across all sets.
func (b *Bundle) Detections() int {
	n := 0
	for _, s := range b.Sets {
		n += s.Count()
	}
	return n
}
