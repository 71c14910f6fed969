package config

import (
	"context"
	"errors"
	"testing"
	"time"
)

// MockStateStore implements store.StateStore for testing.
type MockStateStore struct {
	data map[string]string
}

func NewMockStateStore() *MockStateStore {
	return &MockStateStore{data: make(map[string]string)}
}

func (m *MockStateStore) GetState(ctx context.Context, key string) (string, bool) {
	val, ok := m.data[key]
	return val, ok
}

func (m *MockStateStore) SetState(ctx context.Context, key, val string) error {
	m.data[key] = val
	return nil
}

func (m *MockStateStore) DeleteState(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestUnifiedProvider(t *testing.T) {
	ctx := context.Background()
	base := DefaultConfig()
	st := NewMockStateStore()
	p := NewProvider(base, st)

	t.Run("Defaults_And_Fallbacks", func(t *testing.T) {
		if got := p.GroupPeriod(ctx); got != 30*time.Second {
			t.Errorf("expected 30s, got %v", got)
		}
		if got := p.GroupMode(ctx); got != ModeStatic {
			t.Errorf("expected static, got %s", got)
		}
		if got := p.Region(ctx); got != "EU868" {
			t.Errorf("expected EU868, got %s", got)
		}
		if p.AppConfig() != base {
			t.Error("AppConfig should return the base config")
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		if err := p.SetGroupPeriod(ctx, 2*time.Minute); err != nil {
			t.Fatalf("SetGroupPeriod: %v", err)
		}
		if err := p.SetGroupMode(ctx, "MOBILE"); err != nil {
			t.Fatalf("SetGroupMode: %v", err)
		}
		st.data[KeyRegion] = "us915"

		if got := p.GroupPeriod(ctx); got != 2*time.Minute {
			t.Errorf("expected 2m, got %v", got)
		}
		if got := p.GroupMode(ctx); got != ModeMobile {
			t.Errorf("expected mobile, got %s", got)
		}
		if got := p.Region(ctx); got != "US915" {
			t.Errorf("expected US915, got %s", got)
		}
	})

	t.Run("InvalidOverrides", func(t *testing.T) {
		if err := p.SetGroupPeriod(ctx, 500*time.Millisecond); !errors.Is(err, ErrInvalid) {
			t.Errorf("expected ErrInvalid for sub-second period, got %v", err)
		}
		if err := p.SetGroupMode(ctx, "drifting"); !errors.Is(err, ErrInvalid) {
			t.Errorf("expected ErrInvalid for unknown mode, got %v", err)
		}

		// A corrupt stored value falls back to the static config.
		st.data[KeyGroupPeriod] = "soon"
		if got := p.GroupPeriod(ctx); got != 30*time.Second {
			t.Errorf("expected fallback 30s, got %v", got)
		}
	})

	t.Run("NilStore", func(t *testing.T) {
		np := NewProvider(base, nil)
		if got := np.GroupMode(ctx); got != ModeStatic {
			t.Errorf("expected static, got %s", got)
		}
		if err := np.SetGroupMode(ctx, ModeMobile); err == nil {
			t.Error("expected error persisting without a store")
		}
	})
}
