package core

import (
	"context"
	"time"

	"geoscan/pkg/model"
	"geoscan/pkg/radio"
	"geoscan/pkg/scan"
)

// Consumer receives completed bundles (solver/uplink collaborator).
type Consumer interface {
	Consume(ctx context.Context, b *Bundle) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(ctx context.Context, b *Bundle) error

func (f ConsumerFunc) Consume(ctx context.Context, b *Bundle) error { return f(ctx, b) }

// Consumers fans a bundle out to several consumers. All are called; the first error is returned.
type Consumers []Consumer

func (cs Consumers) Consume(ctx context.Context, b *Bundle) error {
	var first error
	for _, c := range cs {
		if err := c.Consume(ctx, b); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// AssistanceSource provides the assistance snapshot taken at the start of each group.
type AssistanceSource interface {
	Current() model.AssistancePosition
}

// EnergyRecorder accumulates per-scan energy.
type EnergyRecorder interface {
	Record(scanID string, uah uint32)
	Total() uint64
}

// Observer is notified of scheduler activity (metrics, statistics).
type Observer interface {
	StateChanged(st State)
	ScanFinished(tech radio.Technology, out scan.Outcome, set *scan.ResultSet)
	ScanFailed(tech radio.Technology, err error)
	GroupFinished(b *Bundle, elapsed time.Duration)
}

// Observers fans notifications out to several observers.
type Observers []Observer

func (o Observers) StateChanged(st State) {
	for _, x := range o {
		x.StateChanged(st)
	}
}

func (o Observers) ScanFinished(tech radio.Technology, out scan.Outcome, set *scan.ResultSet) {
	for _, x := range o {
		x.ScanFinished(tech, out, set)
	}
}

func (o Observers) ScanFailed(tech radio.Technology, err error) {
	for _, x := range o {
		x.ScanFailed(tech, err)
	}
}

func (o Observers) GroupFinished(b *Bundle, elapsed time.Duration) {
	for _, x := range o {
		x.GroupFinished(b, elapsed)
	}
}
