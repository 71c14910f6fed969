package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"geoscan/pkg/config"
	"geoscan/pkg/logging"
	"geoscan/pkg/model"
	"geoscan/pkg/store"
)

// ErrRange is returned for coordinates outside the valid latitude/longitude range.
var ErrRange = errors.New("coordinate out of range")

// StateKey is the state-store key under which the operator's choice is persisted.
const StateKey = "assistance_position"

// Manager owns the assistance position. Reads are lock-free snapshots; writers are serialised.
type Manager struct {
	current atomic.Pointer[model.AssistancePosition]
	mu      sync.Mutex // serialises writers
	store   store.StateStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewManager creates a manager initialised from config. The store may be nil.
func NewManager(cfg config.AssistanceConfig, st store.StateStore, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:  st,
		logger: logger.With("component", "assist"),
		now:    time.Now,
	}

	pos := &model.AssistancePosition{Mode: model.AssistanceAuto, UpdatedAt: m.now()}
	if !cfg.Auto {
		if err := CheckRange(cfg.Latitude, cfg.Longitude); err != nil {
			return nil, err
		}
		pos = &model.AssistancePosition{
			Mode:      model.AssistanceManual,
			Latitude:  cfg.Latitude,
			Longitude: cfg.Longitude,
			Label:     cfg.Label,
			Known:     true,
			UpdatedAt: m.now(),
		}
	}
	m.current.Store(pos)
	return m, nil
}

// CheckRange validates a coordinate pair. NaN fails: every comparison with NaN is false.
func CheckRange(lat, lon float64) error {
	if !(lat >= -90 && lat <= 90) {
		return fmt.Errorf("%w: latitude %v not in [-90,90]", ErrRange, lat)
	}
	if !(lon >= -180 && lon <= 180) {
		return fmt.Errorf("%w: longitude %v not in [-180,180]", ErrRange, lon)
	}
	return nil
}

// Current returns a snapshot of the assistance position. Safe to call concurrently with writers.
func (m *Manager) Current() model.AssistancePosition {
	return *m.current.Load()
}

// SetAuto switches to the autonomously derived position and clears any manual coordinate.
func (m *Manager) SetAuto(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.current.Load()
	next := &model.AssistancePosition{Mode: model.AssistanceAuto, UpdatedAt: m.now()}
	// Keep a known autonomous estimate across the switch.
	if prev.Mode == model.AssistanceAuto && prev.Known {
		next.Latitude, next.Longitude, next.Known = prev.Latitude, prev.Longitude, true
	}
	m.current.Store(next)

	m.logger.Info("Assistance switched to auto")
	m.event("Assistance auto", "")
	return m.persist(ctx, next)
}

// SetManual fixes an operator-supplied coordinate. Out-of-range values fail with ErrRange
// and leave the current position untouched.
func (m *Manager) SetManual(ctx context.Context, lat, lon float64, label string) error {
	if err := CheckRange(lat, lon); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := &model.AssistancePosition{
		Mode:      model.AssistanceManual,
		Latitude:  lat,
		Longitude: lon,
		Label:     label,
		Known:     true,
		UpdatedAt: m.now(),
	}
	m.current.Store(next)

	m.logger.Info("Assistance set to manual", "lat", lat, "lon", lon, "label", label)
	m.event("Assistance manual", fmt.Sprintf("%.6f, %.6f %s", lat, lon, label))
	return m.persist(ctx, next)
}

// UpdateAutonomous records the device-estimated position. It is ignored in manual mode.
func (m *Manager) UpdateAutonomous(lat, lon float64) error {
	if err := CheckRange(lat, lon); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Load().Mode != model.AssistanceAuto {
		return nil
	}
	m.current.Store(&model.AssistancePosition{
		Mode:      model.AssistanceAuto,
		Latitude:  lat,
		Longitude: lon,
		Known:     true,
		UpdatedAt: m.now(),
	})
	logging.Trace(m.logger, "Autonomous position updated", "lat", lat, "lon", lon)
	return nil
}

// Restore loads a persisted operator choice, if any. Invalid stored data is logged and ignored.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	raw, ok := m.store.GetState(ctx, StateKey)
	if !ok || raw == "" {
		return nil
	}

	var pos model.AssistancePosition
	if err := json.Unmarshal([]byte(raw), &pos); err != nil {
		m.logger.Warn("Ignoring unreadable persisted assistance position", "error", err)
		return nil
	}

	switch pos.Mode {
	case model.AssistanceManual:
		if err := CheckRange(pos.Latitude, pos.Longitude); err != nil {
			m.logger.Warn("Ignoring persisted assistance position", "error", err)
			return nil
		}
		pos.Known = true
	case model.AssistanceAuto:
		pos = model.AssistancePosition{Mode: model.AssistanceAuto, UpdatedAt: pos.UpdatedAt}
	default:
		m.logger.Warn("Ignoring persisted assistance position", "mode", pos.Mode)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Store(&pos)
	m.logger.Info("Restored assistance position", "mode", pos.Mode, "label", pos.Label)
	return nil
}

func (m *Manager) persist(ctx context.Context, pos *model.AssistancePosition) error {
	if m.store == nil {
		return nil
	}
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("failed to encode assistance position: %w", err)
	}
	if err := m.store.SetState(ctx, StateKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist assistance position: %w", err)
	}
	return nil
}

func (m *Manager) event(title, summary string) {
	logging.LogEvent(&model.GroupEvent{
		Timestamp: m.now(),
		Type:      "assistance",
		Title:     title,
		Summary:   summary,
	})
}
