package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"geoscan/pkg/store"
)

// Keys of operator overrides persisted in the state store.
const (
	KeyGroupPeriod = "scan_group_period"
	KeyGroupMode   = "scan_group_mode"
	KeyRegion      = "lorawan_region"
)

// Provider gives access to the effective configuration: the static file plus
// overrides an operator made at runtime.
type Provider interface {
	GroupPeriod(ctx context.Context) time.Duration
	GroupMode(ctx context.Context) string
	Region(ctx context.Context) string

	SetGroupPeriod(ctx context.Context, d time.Duration) error
	SetGroupMode(ctx context.Context, mode string) error

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider. A nil store yields the static config only.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

func (p *UnifiedProvider) GroupPeriod(ctx context.Context) time.Duration {
	return p.getDuration(ctx, KeyGroupPeriod, time.Duration(p.base.ScanGroup.Period))
}

func (p *UnifiedProvider) GroupMode(ctx context.Context) string {
	return p.getString(ctx, KeyGroupMode, p.base.ScanGroup.Mode)
}

func (p *UnifiedProvider) Region(ctx context.Context) string {
	return strings.ToUpper(p.getString(ctx, KeyRegion, p.base.LoRaWAN.Region))
}

// SetGroupPeriod persists a period override. Periods under one second are rejected.
func (p *UnifiedProvider) SetGroupPeriod(ctx context.Context, d time.Duration) error {
	if d < time.Second {
		return fmt.Errorf("%w: period must be at least 1s, got %v", ErrInvalid, d)
	}
	return p.set(ctx, KeyGroupPeriod, d.String())
}

// SetGroupMode persists a mode override.
func (p *UnifiedProvider) SetGroupMode(ctx context.Context, mode string) error {
	mode = strings.ToLower(mode)
	if mode != ModeStatic && mode != ModeMobile {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalid, mode)
	}
	return p.set(ctx, KeyGroupMode, mode)
}

// --- Helpers ---

func (p *UnifiedProvider) set(ctx context.Context, key, val string) error {
	if p.store == nil {
		return fmt.Errorf("no state store configured, cannot persist %s", key)
	}
	return p.store.SetState(ctx, key, val)
}

func (p *UnifiedProvider) getString(ctx context.Context, key, fallback string) string {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val
		}
	}
	return fallback
}

func (p *UnifiedProvider) getDuration(ctx context.Context, key string, fallback time.Duration) time.Duration {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if dur, err := ParseDuration(val); err == nil && dur >= time.Second {
				return dur
			}
		}
	}
	return fallback
}
