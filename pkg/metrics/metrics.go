// Package metrics exports scheduler activity to Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"geoscan/pkg/core"
	"geoscan/pkg/radio"
	"geoscan/pkg/scan"
)

const namespace = "geoscan"

var states = []core.State{core.StateIdle, core.StateScanning, core.StateAggregating, core.StateFault}

// Observer implements core.Observer with Prometheus collectors.
type Observer struct {
	scans      *prometheus.CounterVec
	detections *prometheus.CounterVec
	energy     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	groups     prometheus.Counter
	groupTime  prometheus.Histogram
	totalUAh   prometheus.Gauge
	state      *prometheus.GaugeVec
}

// NewObserver creates the collectors and registers them with reg.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scans by technology and outcome.",
		}, []string{"technology", "outcome"}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Recorded detections by technology.",
		}, []string{"technology"}),
		energy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_energy_uah_total",
			Help:      "Radio energy consumed by scans, in microampere-hours.",
		}, []string{"technology"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time from scan start to results fetched.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"technology"}),
		groups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_total",
			Help:      "Completed scan groups.",
		}),
		groupTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "group_duration_seconds",
			Help:      "Time from group start to aggregation.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		totalUAh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "energy_session_uah",
			Help:      "Cumulative radio energy of the session.",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_state",
			Help:      "1 for the current scheduler state, 0 otherwise.",
		}, []string{"state"}),
	}

	collectors := []prometheus.Collector{o.scans, o.detections, o.energy, o.duration, o.groups, o.groupTime, o.totalUAh, o.state}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	o.StateChanged(core.StateIdle)
	return o, nil
}

// StateChanged implements core.Observer.
func (o *Observer) StateChanged(st core.State) {
	for _, s := range states {
		v := 0.0
		if s == st {
			v = 1
		}
		o.state.WithLabelValues(string(s)).Set(v)
	}
}

// ScanFinished implements core.Observer.
func (o *Observer) ScanFinished(tech radio.Technology, out scan.Outcome, set *scan.ResultSet) {
	outcome := "complete"
	if out.TimedOut {
		outcome = "timeout"
	}
	t := string(tech)
	o.scans.WithLabelValues(t, outcome).Inc()
	o.detections.WithLabelValues(t).Add(float64(out.Count))
	o.duration.WithLabelValues(t).Observe(out.Duration.Seconds())
	if set != nil {
		o.energy.WithLabelValues(t).Add(float64(set.EnergyUAh))
	}
}

// ScanFailed implements core.Observer.
func (o *Observer) ScanFailed(tech radio.Technology, err error) {
	o.scans.WithLabelValues(string(tech), failureOutcome(err)).Inc()
}

func failureOutcome(err error) string {
	switch {
	case errors.Is(err, scan.ErrRadioBusy):
		return "busy"
	case errors.Is(err, scan.ErrRadioFault):
		return "fault"
	default:
		return "error"
	}
}

// GroupFinished implements core.Observer.
func (o *Observer) GroupFinished(b *core.Bundle, elapsed time.Duration) {
	o.groups.Inc()
	o.groupTime.Observe(elapsed.Seconds())
	o.totalUAh.Set(float64(b.TotalEnergyUAh))
}
