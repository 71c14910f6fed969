package core

import (
	"sync"
	"time"

	"geoscan/pkg/geo"
	"geoscan/pkg/model"
)

// PeriodPolicy decides the next group period in mobile mode.
type PeriodPolicy interface {
	NextPeriod(base time.Duration, pos model.AssistancePosition) time.Duration
}

// PeriodFunc adapts a function to PeriodPolicy.
type PeriodFunc func(base time.Duration, pos model.AssistancePosition) time.Duration

func (f PeriodFunc) NextPeriod(base time.Duration, pos model.AssistancePosition) time.Duration {
	return f(base, pos)
}

// DistancePolicy shortens the period to MinPeriod when the device moved at least
// Threshold meters since the previous group.
type DistancePolicy struct {
	mu        sync.Mutex
	threshold float64 // meters
	minPeriod time.Duration
	lastPos   geo.Point
	firstRun  bool
}

// NewDistancePolicy creates a policy. minPeriod is raised to one second if lower.
func NewDistancePolicy(thresholdMeters float64, minPeriod time.Duration) *DistancePolicy {
	return &DistancePolicy{
		threshold: thresholdMeters,
		minPeriod: max(minPeriod, time.Second),
		firstRun:  true,
	}
}

func (p *DistancePolicy) NextPeriod(base time.Duration, pos model.AssistancePosition) time.Duration {
	if !pos.Known {
		return base
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	curr := geo.FromOrb(pos.Point())
	if p.firstRun {
		p.firstRun = false
		p.lastPos = curr
		return base
	}

	moved := geo.Distance(p.lastPos, curr)
	p.lastPos = curr
	if moved >= p.threshold && p.minPeriod < base {
		return p.minPeriod
	}
	return base
}
