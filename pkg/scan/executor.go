package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"geoscan/pkg/logging"
	"geoscan/pkg/radio"
)

type phase int

const (
	phaseIdle phase = iota
	phaseStarted
	phaseCompleted
	phaseAborted
)

// Outcome summarises one executed scan.
type Outcome struct {
	ScanID   string
	Count    int
	TimedOut bool
	Duration time.Duration
}

// Executor drives one scan at a time against a radio.
type Executor struct {
	radio    radio.Radio
	settings *SettingsStore
	clock    Clock
	logger   *slog.Logger

	phase       phase
	scanID      string
	startedAt   time.Time
	completedAt time.Time
	watchdog    <-chan time.Time
	timedOut    bool
	done        <-chan struct{}

	energyFresh bool
	lastEnergy  uint32
}

// NewExecutor creates an executor. The settings store must already be initialised.
func NewExecutor(r radio.Radio, settings *SettingsStore, clock Clock, logger *slog.Logger) *Executor {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		radio:    r,
		settings: settings,
		clock:    clock,
		logger:   logger,
	}
}

// Settings returns the active settings.
func (e *Executor) Settings() (Settings, error) {
	return e.settings.Current()
}

// InProgress reports whether a scan was started and not yet ended.
func (e *Executor) InProgress() bool {
	return e.phase != phaseIdle
}

// Start issues one scan command and arms the watchdog.
func (e *Executor) Start(ctx context.Context) error {
	if e.phase != phaseIdle {
		return fmt.Errorf("%w: scan already in progress", ErrRadioBusy)
	}
	s, err := e.settings.Current()
	if err != nil {
		return err
	}

	if err := e.radio.Start(ctx, s.Request()); err != nil {
		if errors.Is(err, radio.ErrBusy) {
			return fmt.Errorf("%w: %v", ErrRadioBusy, err)
		}
		return fmt.Errorf("%w: start %s scan: %v", ErrRadioFault, s.Technology, err)
	}

	e.phase = phaseStarted
	e.scanID = uuid.NewString()
	e.startedAt = e.clock.Now()
	e.completedAt = time.Time{}
	e.timedOut = false
	e.done = e.radio.Done()
	e.watchdog = e.clock.After(s.TimeoutPerScan)
	e.settings.setInFlight(true)

	e.logger.Debug("Scan started", "technology", s.Technology, "scan_id", e.scanID, "channels", s.Channels.Len(), "timeout", s.TimeoutPerScan)
	return nil
}

// StartScan is Start reduced to accepted/refused.
func (e *Executor) StartScan(ctx context.Context) bool {
	if err := e.Start(ctx); err != nil {
		e.logger.Warn("Scan refused", "error", err)
		return false
	}
	return true
}

// Wait blocks until the radio signals completion or the watchdog expires.
// Watchdog expiry forces completion. Context cancellation aborts the scan and returns ctx.Err().
func (e *Executor) Wait(ctx context.Context) error {
	switch e.phase {
	case phaseCompleted:
		return nil
	case phaseStarted:
	default:
		return fmt.Errorf("%w: no scan to wait for", ErrInvalidState)
	}

	// Completion wins over a watchdog that fired in the same instant.
	select {
	case <-e.done:
		e.complete(false)
		return nil
	default:
	}

	select {
	case <-e.done:
		e.complete(false)
	case <-e.watchdog:
		e.complete(true)
		e.logger.Warn("Scan watchdog expired, forcing completion", "scan_id", e.scanID)
	case <-ctx.Done():
		e.phase = phaseAborted
		e.logger.Info("Scan aborted", "scan_id", e.scanID, "reason", ctx.Err())
		return ctx.Err()
	}
	return nil
}

func (e *Executor) complete(timedOut bool) {
	e.phase = phaseCompleted
	e.timedOut = timedOut
	e.completedAt = e.clock.Now()
}

// FetchResults retrieves the detections of the completed scan into dst, truncated to MaxResults.
func (e *Executor) FetchResults(ctx context.Context, dst *ResultSet) error {
	if e.phase != phaseCompleted {
		return fmt.Errorf("%w: results fetched before completion", ErrInvalidState)
	}
	s, err := e.settings.Current()
	if err != nil {
		return err
	}

	dst.reset(s.Technology, s.MaxResults)
	dst.ScanID = e.scanID
	dst.TimedOut = e.timedOut

	n, err := e.radio.Fetch(ctx, dst.rawBuffer())
	if err != nil {
		return fmt.Errorf("%w: fetch %s results: %v", ErrRadioFault, s.Technology, err)
	}
	dst.commit(n)
	dst.Timestamp = e.completedAt

	for _, r := range dst.Results() {
		logging.Trace(e.logger, "Detection", "scan_id", e.scanID, "id", r.ID, "channel", r.Channel, "type", r.Type, "rssi", r.RSSI)
	}
	return nil
}

// ScanEnded tears down the radio side of the scan. It must run exactly once per started scan.
func (e *Executor) ScanEnded(ctx context.Context) error {
	if e.phase == phaseIdle {
		return fmt.Errorf("%w: no scan to end", ErrInvalidState)
	}
	completed := e.phase == phaseCompleted

	e.phase = phaseIdle
	e.done = nil
	e.watchdog = nil
	e.settings.setInFlight(false)

	if err := e.radio.Teardown(ctx); err != nil {
		return fmt.Errorf("%w: teardown: %v", ErrRadioFault, err)
	}

	if completed {
		uah, err := e.radio.Energy(ctx)
		if err != nil {
			e.logger.Warn("Energy read failed", "scan_id", e.scanID, "error", err)
		} else {
			e.lastEnergy = uah
			e.energyFresh = true
		}
	}
	return nil
}

// PowerConsumption returns the energy spent by the most recently completed scan.
// It fails with ErrUnavailable when no scan completed since the previous read.
func (e *Executor) PowerConsumption(ctx context.Context) (uint32, error) {
	if !e.energyFresh {
		return 0, ErrUnavailable
	}
	e.energyFresh = false
	return e.lastEnergy, nil
}

// Run executes one full scan into dst: start, wait, fetch, then ScanEnded on every exit path.
// On cancellation the partial results are discarded.
func (e *Executor) Run(ctx context.Context, dst *ResultSet) (out Outcome, err error) {
	s, err := e.settings.Current()
	if err != nil {
		return out, err
	}
	dst.reset(s.Technology, s.MaxResults)

	if err := e.Start(ctx); err != nil {
		return out, err
	}
	out.ScanID = e.scanID
	dst.ScanID = e.scanID

	defer func() {
		// Teardown must not be skipped because the caller's context was cancelled.
		endErr := e.ScanEnded(context.WithoutCancel(ctx))
		if endErr != nil && err == nil {
			err = endErr
		}
		if err != nil {
			dst.discard()
			out.Count = 0
			return
		}
		if uah, perr := e.PowerConsumption(ctx); perr == nil {
			dst.EnergyUAh = uah
		}
	}()

	if err = e.Wait(ctx); err != nil {
		return out, err
	}
	if err = e.FetchResults(ctx, dst); err != nil {
		return out, err
	}

	out.Count = dst.Count()
	out.TimedOut = dst.TimedOut
	out.Duration = e.completedAt.Sub(e.startedAt)
	return out, nil
}
