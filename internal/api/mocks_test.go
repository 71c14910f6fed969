package api

import (
	"context"
	"fmt"
	"sync"

	"geoscan/pkg/core"
	"geoscan/pkg/radio"
	"geoscan/pkg/scan"
)

type mockStore struct {
	mu    sync.Mutex
	state map[string]string
}

func (m *mockStore) GetState(ctx context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.state[key]
	return val, ok
}

func (m *mockStore) SetState(ctx context.Context, key, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		m.state = make(map[string]string)
	}
	m.state[key] = val
	return nil
}

func (m *mockStore) DeleteState(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, key)
	return nil
}

// mockScheduler implements Scheduler.
type mockScheduler struct {
	mu        sync.Mutex
	state     core.State
	fault     string
	seq       uint64
	cfg       core.GroupConfig
	reinitErr error
	reconfErr error
	reconfigs int
}

func (m *mockScheduler) State() core.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockScheduler) FaultReason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fault
}

func (m *mockScheduler) Sequence() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}

func (m *mockScheduler) Config() core.GroupConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.cfg
	c.Order = append([]radio.Technology(nil), m.cfg.Order...)
	return c
}

func (m *mockScheduler) Reconfigure(cfg core.GroupConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reconfErr != nil {
		return m.reconfErr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.cfg = cfg
	m.reconfigs++
	return nil
}

func (m *mockScheduler) Reinit(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != core.StateFault {
		return fmt.Errorf("%w: not in fault", scan.ErrInvalidState)
	}
	if m.reinitErr != nil {
		return fmt.Errorf("%w: %v", scan.ErrRadioFault, m.reinitErr)
	}
	m.state = core.StateIdle
	m.fault = ""
	return nil
}
