package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"geoscan/pkg/radio"
)

// fakeRadio implements radio.Radio with scripted behaviour.
type fakeRadio struct {
	mu sync.Mutex

	detections  []radio.Detection
	partial     int // detections available after a forced completion
	complete    bool
	startErr    error
	fetchErr    error
	teardownErr error
	energy      uint32

	done      chan struct{}
	scanning  bool
	finished  bool
	starts    int
	teardowns int
	lastReq   radio.Request
}

func (f *fakeRadio) Start(ctx context.Context, req radio.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	if f.scanning {
		return fmt.Errorf("still scanning: %w", radio.ErrBusy)
	}
	f.starts++
	f.scanning = true
	f.finished = false
	f.lastReq = req
	f.done = make(chan struct{})
	if f.complete {
		f.finished = true
		close(f.done)
	}
	return nil
}

func (f *fakeRadio) Done() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// finish signals hardware completion for a radio started with complete=false.
func (f *fakeRadio) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.finished {
		f.finished = true
		close(f.done)
	}
}

func (f *fakeRadio) Fetch(ctx context.Context, dst []radio.Detection) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return 0, f.fetchErr
	}
	avail := f.detections
	if !f.finished && f.partial < len(avail) {
		avail = avail[:f.partial]
	}
	return copy(dst, avail), nil
}

func (f *fakeRadio) Teardown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardowns++
	f.scanning = false
	return f.teardownErr
}

func (f *fakeRadio) Energy(ctx context.Context) (uint32, error) {
	return f.energy, nil
}

func (f *fakeRadio) counts() (starts, teardowns int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.teardowns
}

func detections(n int) []radio.Detection {
	out := make([]radio.Detection, n)
	for i := range out {
		out[i] = radio.Detection{
			ID:      fmt.Sprintf("aa:bb:cc:00:00:%02x", i),
			Channel: radio.Channel(i%13 + 1),
			Type:    radio.SignalWiFiB,
			RSSI:    int8(-40 - i),
		}
	}
	return out
}

func wifiSettings(maxResults int, perScan time.Duration) Settings {
	return Settings{
		Technology:        radio.TechWiFi,
		Channels:          radio.AllChannels,
		Types:             radio.SetOf(radio.SignalWiFiB, radio.SignalWiFiG, radio.SignalWiFiN),
		MaxResults:        maxResults,
		TimeoutPerChannel: 300 * time.Millisecond,
		TimeoutPerScan:    perScan,
	}
}

// manualClock fires After channels only when the test says so.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []chan time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	c.pending = append(c.pending, ch)
	return ch
}

func (c *manualClock) fire(advance time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(advance)
	for _, ch := range c.pending {
		ch <- c.now
	}
	c.pending = nil
}
