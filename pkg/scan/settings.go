package scan

import (
	"fmt"
	"time"

	"geoscan/pkg/radio"
)

// HardCap is the static capacity of a result buffer.
const HardCap = 32

// Settings is the validated configuration of one scan technology.
type Settings struct {
	Technology        radio.Technology
	Channels          radio.ChannelMask
	Types             radio.SignalTypeSet
	MaxResults        int
	TimeoutPerChannel time.Duration
	TimeoutPerScan    time.Duration
}

// Validate checks the settings invariants. The returned error wraps ErrConfig.
func (s Settings) Validate() error {
	if s.Technology != radio.TechWiFi && s.Technology != radio.TechGNSS {
		return fmt.Errorf("%w: unknown technology %q", ErrConfig, s.Technology)
	}
	if s.MaxResults < 1 || s.MaxResults > HardCap {
		return fmt.Errorf("%w: max_results %d outside 1-%d", ErrConfig, s.MaxResults, HardCap)
	}
	if s.TimeoutPerChannel <= 0 {
		return fmt.Errorf("%w: timeout_per_channel must be > 0", ErrConfig)
	}
	if s.TimeoutPerScan <= 0 {
		return fmt.Errorf("%w: timeout_per_scan must be > 0", ErrConfig)
	}
	if s.Types.Empty() {
		return fmt.Errorf("%w: no signal types selected", ErrConfig)
	}
	for _, t := range s.Types.Types() {
		if t.Technology() != s.Technology {
			return fmt.Errorf("%w: signal type %s is not a %s signal", ErrConfig, t, s.Technology)
		}
	}
	if s.Technology == radio.TechWiFi && s.Channels == 0 {
		return fmt.Errorf("%w: empty channel mask", ErrConfig)
	}
	return nil
}

// Request converts settings into a radio command.
func (s Settings) Request() radio.Request {
	return radio.Request{
		Technology:        s.Technology,
		Channels:          s.Channels,
		Types:             s.Types,
		MaxResults:        s.MaxResults,
		TimeoutPerChannel: s.TimeoutPerChannel,
		TimeoutPerScan:    s.TimeoutPerScan,
	}
}

// SettingsStore holds the settings for one scan group lifetime.
// Settings are immutable once initialised; Reset is refused while a scan is in flight.
type SettingsStore struct {
	settings Settings
	ready    bool
	inFlight bool
}

// Init validates and stores the settings. It may only be called once.
func (st *SettingsStore) Init(s Settings) error {
	if st.ready {
		return fmt.Errorf("%w: settings already initialised", ErrInvalidState)
	}
	if err := s.Validate(); err != nil {
		return err
	}
	st.settings = s
	st.ready = true
	return nil
}

// Reset replaces the settings. Only legal while no scan is in flight.
func (st *SettingsStore) Reset(s Settings) error {
	if st.inFlight {
		return fmt.Errorf("%w: cannot reconfigure during a scan", ErrInvalidState)
	}
	if err := s.Validate(); err != nil {
		return err
	}
	st.settings = s
	st.ready = true
	return nil
}

// Current returns the active settings.
func (st *SettingsStore) Current() (Settings, error) {
	if !st.ready {
		return Settings{}, fmt.Errorf("%w: settings not initialised", ErrInvalidState)
	}
	return st.settings, nil
}

func (st *SettingsStore) setInFlight(v bool) {
	st.inFlight = v
}
