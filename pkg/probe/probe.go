package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"geoscan/pkg/radio"
)

// CheckFunc is a function that performs a health check.
// It returns nil if the check passes, or an error if it fails.
type CheckFunc func(ctx context.Context) error

// Probe represents a single startup check.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool // If true, a failure here should prevent application startup.
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Timeout bounds each check when the caller's context has no earlier deadline.
const Timeout = 5 * time.Second

// Run executes a list of probes and returns their results.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))

	for i, p := range probes {
		start := time.Now()

		checkCtx, cancel := context.WithTimeout(ctx, Timeout)
		err := p.Check(checkCtx)
		cancel()

		results[i] = Result{
			Probe:    p,
			Error:    err,
			Duration: time.Since(start),
		}
	}

	return results
}

// AnalyzeResults logs a summary and returns the joined errors of failed critical probes.
func AnalyzeResults(results []Result) error {
	var criticalErrors []error

	slog.Info("Startup Checks Summary")

	for _, r := range results {
		status := "PASS"
		if r.Error != nil {
			status = "FAIL"
		}

		msg := fmt.Sprintf("[%s] %-20s (%v)", status, r.Probe.Name, r.Duration.Round(time.Millisecond))

		if r.Error != nil {
			slog.Error(msg, "error", r.Error)
			if r.Probe.Critical {
				criticalErrors = append(criticalErrors, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
			}
		} else {
			slog.Info(msg)
		}
	}

	if len(criticalErrors) > 0 {
		return errors.Join(criticalErrors...)
	}

	return nil
}

// Pinger is anything with a context-aware liveness check, such as the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Database checks that the store answers. A broken database is critical.
func Database(p Pinger) Probe {
	return Probe{Name: "Database", Check: p.Ping, Critical: true}
}

// Radio checks that the transceiver is reachable and idle. Radios without a
// liveness check pass. A busy radio is reported but does not stop startup;
// a faulty one does.
func Radio(r radio.Radio) Probe {
	return Probe{
		Name:     "Radio",
		Critical: true,
		Check: func(ctx context.Context) error {
			p, ok := r.(radio.Pinger)
			if !ok {
				return nil
			}
			err := p.Ping(ctx)
			if errors.Is(err, radio.ErrBusy) {
				slog.Warn("Radio busy at startup", "error", err)
				return nil
			}
			return err
		},
	}
}
