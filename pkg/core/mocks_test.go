package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"geoscan/pkg/radio"
	"geoscan/pkg/scan"
)

// fakeRadio completes every scan immediately unless hang is set.
type fakeRadio struct {
	mu sync.Mutex

	found     map[radio.Technology]int
	startErrs map[radio.Technology]error
	hang      bool
	energy    uint32

	attempts  []radio.Technology
	starts    int
	teardowns int
	started   chan struct{} // signalled on every accepted start
	done      chan struct{}
	lastTech  radio.Technology
}

func newFakeRadio() *fakeRadio {
	return &fakeRadio{
		found:     map[radio.Technology]int{radio.TechWiFi: 3, radio.TechGNSS: 6},
		startErrs: map[radio.Technology]error{},
		energy:    10,
		started:   make(chan struct{}, 16),
	}
}

func (f *fakeRadio) Start(ctx context.Context, req radio.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, req.Technology)
	if err := f.startErrs[req.Technology]; err != nil {
		return err
	}
	f.starts++
	f.lastTech = req.Technology
	f.done = make(chan struct{})
	if !f.hang {
		close(f.done)
	}
	select {
	case f.started <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeRadio) Done() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

func (f *fakeRadio) Fetch(ctx context.Context, dst []radio.Detection) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := min(f.found[f.lastTech], len(dst))
	for i := 0; i < n; i++ {
		d := radio.Detection{ID: fmt.Sprintf("%s-%d", f.lastTech, i), RSSI: -60}
		if f.lastTech == radio.TechWiFi {
			d.Channel, d.Type = radio.Channel(1+i%13), radio.SignalWiFiG
		} else {
			d.Type = radio.SignalGPS
		}
		dst[i] = d
	}
	return n, nil
}

func (f *fakeRadio) Teardown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardowns++
	return nil
}

func (f *fakeRadio) Energy(ctx context.Context) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.energy, nil
}

func (f *fakeRadio) setStartErr(tech radio.Technology, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.startErrs, tech)
		return
	}
	f.startErrs[tech] = err
}

func (f *fakeRadio) snapshot() (attempts []radio.Technology, starts, teardowns int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]radio.Technology(nil), f.attempts...), f.starts, f.teardowns
}

// autoClock fires every timer immediately and advances virtual time by its duration.
type autoClock struct {
	mu     sync.Mutex
	now    time.Time
	afters []time.Duration
}

func newAutoClock() *autoClock {
	return &autoClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *autoClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *autoClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.afters = append(c.afters, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *autoClock) durations() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.afters...)
}

// stuckClock never fires.
type stuckClock struct{}

func (stuckClock) Now() time.Time                         { return time.Unix(0, 0) }
func (stuckClock) After(d time.Duration) <-chan time.Time { return make(chan time.Time) }

// bundleLog records bundles handed to the consumer.
type bundleLog struct {
	mu      sync.Mutex
	bundles []*Bundle
	err     error
	onItem  func(n int)
}

func (l *bundleLog) Consume(ctx context.Context, b *Bundle) error {
	l.mu.Lock()
	l.bundles = append(l.bundles, b.Clone())
	n := len(l.bundles)
	cb := l.onItem
	l.mu.Unlock()
	if cb != nil {
		cb(n)
	}
	return l.err
}

func (l *bundleLog) all() []*Bundle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Bundle(nil), l.bundles...)
}

func testSettings(tech radio.Technology) scan.Settings {
	if tech == radio.TechGNSS {
		return scan.Settings{
			Technology:        radio.TechGNSS,
			Types:             radio.SetOf(radio.SignalGPS, radio.SignalBeiDou),
			MaxResults:        4,
			TimeoutPerChannel: time.Second,
			TimeoutPerScan:    5 * time.Second,
		}
	}
	return scan.Settings{
		Technology:        radio.TechWiFi,
		Channels:          radio.AllChannels,
		Types:             radio.SetOf(radio.SignalWiFiB, radio.SignalWiFiG, radio.SignalWiFiN),
		MaxResults:        5,
		TimeoutPerChannel: 300 * time.Millisecond,
		TimeoutPerScan:    90 * time.Millisecond,
	}
}

func newTestScheduler(t *testing.T, r radio.Radio, clock scan.Clock, cfg GroupConfig, deps Deps) *Scheduler {
	t.Helper()
	deps.Clock = clock
	s, err := NewScheduler(cfg, deps)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	for _, tech := range cfg.Order {
		st := &scan.SettingsStore{}
		if err := st.Init(testSettings(tech)); err != nil {
			t.Fatalf("settings: %v", err)
		}
		s.AddJob(NewScanJob(tech, scan.NewExecutor(r, st, clock, nil)))
	}
	return s
}

func staticConfig() GroupConfig {
	return GroupConfig{Period: 30 * time.Second, Mode: ModeStatic, Order: []radio.Technology{radio.TechWiFi, radio.TechGNSS}}
}
