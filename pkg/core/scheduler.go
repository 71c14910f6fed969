package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"geoscan/pkg/energy"
	"geoscan/pkg/logging"
	"geoscan/pkg/model"
	"geoscan/pkg/radio"
	"geoscan/pkg/scan"
)

// GroupConfig is the cadence and composition of scan groups.
type GroupConfig struct {
	Period time.Duration
	Mode   Mode
	Order  []radio.Technology
}

// Validate checks the group invariants. Errors wrap scan.ErrConfig.
func (c GroupConfig) Validate() error {
	if c.Period < time.Second {
		return fmt.Errorf("%w: group period %v is below 1s", scan.ErrConfig, c.Period)
	}
	if c.Mode != ModeStatic && c.Mode != ModeMobile {
		return fmt.Errorf("%w: unknown group mode %q", scan.ErrConfig, c.Mode)
	}
	if len(c.Order) == 0 {
		return fmt.Errorf("%w: no technology to scan", scan.ErrConfig)
	}
	seen := make(map[radio.Technology]bool, len(c.Order))
	for _, t := range c.Order {
		if seen[t] {
			return fmt.Errorf("%w: technology %s listed twice", scan.ErrConfig, t)
		}
		seen[t] = true
	}
	return nil
}

// Deps are the collaborators of a Scheduler. Only nil-safe fields may be omitted.
type Deps struct {
	Assistance AssistanceSource
	Energy     EnergyRecorder
	Consumer   Consumer
	Observer   Observer
	Policy     PeriodPolicy // mobile mode only
	Clock      scan.Clock
	Logger     *slog.Logger
	// Recover runs on Reinit before leaving FAULT, e.g. to reset the radio.
	Recover func(ctx context.Context) error
}

// Scheduler runs scan groups on a period: IDLE, SCANNING, AGGREGATING, back to IDLE.
// A radio fault moves it to FAULT, where it stays until Reinit.
type Scheduler struct {
	loop  BaseJob
	group BaseJob

	mu   sync.RWMutex
	cfg  GroupConfig
	jobs map[radio.Technology]*ScanJob

	assist   AssistanceSource
	energy   EnergyRecorder
	consumer Consumer
	observer Observer
	policy   PeriodPolicy
	clock    scan.Clock
	logger   *slog.Logger
	recover  func(ctx context.Context) error

	state  atomic.Value // State
	fault  atomic.Value // string
	seq    atomic.Uint64
	reinit chan struct{}
}

// NewScheduler creates a scheduler in IDLE.
func NewScheduler(cfg GroupConfig, deps Deps) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		loop:     NewBaseJob("loop"),
		group:    NewBaseJob("group"),
		cfg:      cfg,
		jobs:     make(map[radio.Technology]*ScanJob),
		assist:   deps.Assistance,
		energy:   deps.Energy,
		consumer: deps.Consumer,
		observer: deps.Observer,
		policy:   deps.Policy,
		clock:    deps.Clock,
		logger:   deps.Logger,
		recover:  deps.Recover,
		reinit:   make(chan struct{}, 1),
	}
	if s.energy == nil {
		s.energy = energy.NewAccountant()
	}
	if s.consumer == nil {
		s.consumer = Consumers{}
	}
	if s.observer == nil {
		s.observer = Observers{}
	}
	if s.clock == nil {
		s.clock = scan.SystemClock{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "scheduler")
	s.state.Store(StateIdle)
	s.fault.Store("")
	return s, nil
}

// AddJob registers the job of one technology, replacing any previous one.
func (s *Scheduler) AddJob(j *ScanJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.tech] = j
}

// Config returns the active group configuration.
func (s *Scheduler) Config() GroupConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.cfg
	c.Order = append([]radio.Technology(nil), s.cfg.Order...)
	return c
}

// Reconfigure replaces the group configuration. It applies from the next group on.
func (s *Scheduler) Reconfigure(cfg GroupConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkJobs(cfg.Order); err != nil {
		return err
	}
	s.cfg = cfg
	s.logger.Info("Group configuration changed", "period", cfg.Period, "mode", cfg.Mode, "order", cfg.Order)
	return nil
}

func (s *Scheduler) checkJobs(order []radio.Technology) error {
	for _, t := range order {
		if _, ok := s.jobs[t]; !ok {
			return fmt.Errorf("%w: no scanner registered for %s", scan.ErrConfig, t)
		}
	}
	return nil
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return s.state.Load().(State)
}

// FaultReason describes the fault that stopped the scheduler, or "".
func (s *Scheduler) FaultReason() string {
	return s.fault.Load().(string)
}

// Sequence returns the number of completed groups.
func (s *Scheduler) Sequence() uint64 {
	return s.seq.Load()
}

func (s *Scheduler) setState(st State) {
	prev := s.state.Swap(st)
	if prev != st {
		logging.Trace(s.logger, "State changed", "from", prev, "to", st)
		s.observer.StateChanged(st)
	}
}

// Start runs groups until the context is cancelled (returns nil) or a radio fault
// stops the scheduler (returns an error wrapping scan.ErrRadioFault).
func (s *Scheduler) Start(ctx context.Context) error {
	if s.State() == StateFault {
		return fmt.Errorf("%w: scheduler is in fault: %s", scan.ErrRadioFault, s.FaultReason())
	}
	if !s.loop.TryLock() {
		return fmt.Errorf("%w: scheduler already running", scan.ErrInvalidState)
	}
	defer s.loop.Unlock()

	s.mu.RLock()
	err := s.checkJobs(s.cfg.Order)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	cfg := s.Config()
	s.logger.Info("Scheduler started", "period", cfg.Period, "mode", cfg.Mode, "order", cfg.Order)

	for {
		if ctx.Err() != nil {
			s.logger.Info("Scheduler stopped")
			return nil
		}

		period := s.nextPeriod()
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case <-s.clock.After(period):
		}

		if _, err := s.RunGroup(ctx); err != nil {
			switch {
			case ctx.Err() != nil:
				s.logger.Info("Scheduler stopped")
				return nil
			case errors.Is(err, scan.ErrRadioFault):
				s.logger.Error("Scheduler halted", "error", err)
				return err
			default:
				return err
			}
		}
	}
}

// Supervise runs Start and, after a fault, waits for Reinit before resuming.
// It returns when the context is cancelled or on a non-fault error.
func (s *Scheduler) Supervise(ctx context.Context) error {
	for {
		err := s.Start(ctx)
		if err == nil || !errors.Is(err, scan.ErrRadioFault) {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.reinit:
			s.logger.Info("Resuming after reinitialisation")
		}
	}
}

func (s *Scheduler) nextPeriod() time.Duration {
	cfg := s.Config()
	period := cfg.Period
	if cfg.Mode == ModeMobile && s.policy != nil {
		period = s.policy.NextPeriod(cfg.Period, s.assistance())
	}
	if period < time.Second {
		period = time.Second
	}
	return period
}

func (s *Scheduler) assistance() model.AssistancePosition {
	if s.assist == nil {
		return model.AssistancePosition{Mode: model.AssistanceAuto}
	}
	return s.assist.Current()
}

// RunGroup runs one scan group now and returns its bundle.
// The bundle's sets are only valid until the next group.
func (s *Scheduler) RunGroup(ctx context.Context) (*Bundle, error) {
	if s.State() == StateFault {
		return nil, fmt.Errorf("%w: scheduler is in fault: %s", scan.ErrRadioFault, s.FaultReason())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.group.TryLock() {
		return nil, fmt.Errorf("%w: scan group already running", scan.ErrInvalidState)
	}
	defer s.group.Unlock()

	cfg := s.Config()
	s.mu.RLock()
	jobs := make([]*ScanJob, 0, len(cfg.Order))
	for _, t := range cfg.Order {
		if j, ok := s.jobs[t]; ok {
			jobs = append(jobs, j)
		}
	}
	s.mu.RUnlock()
	if len(jobs) != len(cfg.Order) {
		return nil, fmt.Errorf("%w: missing scanner for group order %v", scan.ErrConfig, cfg.Order)
	}

	started := s.clock.Now()
	b := &Bundle{
		ID:         uuid.NewString(),
		Started:    started,
		Mode:       cfg.Mode,
		Assistance: s.assistance(),
		Sets:       make([]*scan.ResultSet, 0, len(jobs)),
	}

	s.setState(StateScanning)
	for _, j := range jobs {
		out, err := j.exec.Run(ctx, &j.set)
		switch {
		case err == nil:
			// Accounted per scan so a later fault in the group does not lose it.
			s.energy.Record(j.set.ScanID, j.set.EnergyUAh)
			if out.TimedOut {
				s.logger.Debug("Scan timed out, keeping partial results", "technology", j.tech, "count", out.Count)
			}
			s.observer.ScanFinished(j.tech, out, &j.set)
		case errors.Is(err, scan.ErrRadioBusy):
			s.logger.Warn("Radio busy, scan skipped", "technology", j.tech, "error", err)
			s.observer.ScanFailed(j.tech, err)
		case errors.Is(err, scan.ErrRadioFault):
			s.observer.ScanFailed(j.tech, err)
			s.enterFault(j.tech, err)
			return nil, err
		case ctx.Err() != nil:
			s.logger.Info("Scan group aborted", "technology", j.tech)
			s.setState(StateIdle)
			return nil, ctx.Err()
		default:
			s.observer.ScanFailed(j.tech, err)
			s.setState(StateIdle)
			return nil, err
		}
		b.Sets = append(b.Sets, &j.set)
	}

	s.setState(StateAggregating)
	s.aggregate(ctx, b)
	s.setState(StateIdle)
	return b, nil
}

func (s *Scheduler) aggregate(ctx context.Context, b *Bundle) {
	for _, set := range b.Sets {
		b.EnergyUAh += uint64(set.EnergyUAh)
	}
	b.TotalEnergyUAh = s.energy.Total()
	b.Completed = s.clock.Now()
	b.Sequence = s.seq.Add(1)

	if err := s.consumer.Consume(ctx, b); err != nil {
		s.logger.Warn("Bundle consumer failed", "bundle", b.ID, "error", err)
	}
	elapsed := b.Completed.Sub(b.Started)
	s.observer.GroupFinished(b, elapsed)

	counts := make([]string, 0, len(b.Sets))
	for _, set := range b.Sets {
		counts = append(counts, fmt.Sprintf("%s=%d", set.Technology, set.Count()))
	}
	s.logger.Info("Scan group completed", "sequence", b.Sequence, "detections", b.Detections(), "energy_uah", b.EnergyUAh, "elapsed", elapsed)
	logging.LogEvent(&model.GroupEvent{
		Timestamp: b.Completed,
		Type:      "group",
		Title:     fmt.Sprintf("Scan group %d", b.Sequence),
		Summary:   fmt.Sprintf("%s energy=%duAh", strings.Join(counts, " "), b.EnergyUAh),
	})
}

func (s *Scheduler) enterFault(tech radio.Technology, err error) {
	reason := fmt.Sprintf("%s: %v", tech, err)
	s.fault.Store(reason)
	s.setState(StateFault)
	s.logger.Error("Radio fault, scanning stopped", "technology", tech, "error", err)
	logging.LogEvent(&model.GroupEvent{
		Timestamp: s.clock.Now(),
		Type:      "fault",
		Title:     "Radio fault",
		Summary:   reason,
	})
}

// Reinit is the external re-initialisation that leaves FAULT.
func (s *Scheduler) Reinit(ctx context.Context) error {
	if s.State() != StateFault {
		return fmt.Errorf("%w: reinit is only legal in fault, state is %s", scan.ErrInvalidState, s.State())
	}
	if s.recover != nil {
		if err := s.recover(ctx); err != nil {
			return fmt.Errorf("%w: recovery failed: %v", scan.ErrRadioFault, err)
		}
	}
	s.fault.Store("")
	s.setState(StateIdle)
	s.logger.Info("Scheduler reinitialised")
	logging.LogEvent(&model.GroupEvent{Timestamp: s.clock.Now(), Type: "reinit", Title: "Scheduler reinitialised"})

	select {
	case s.reinit <- struct{}{}:
	default:
	}
	return nil
}
