// Package mockradio simulates a scanning transceiver so the service runs without hardware.
package mockradio

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"geoscan/pkg/radio"
)

// Config holds the behaviour of the simulated transceiver.
type Config struct {
	// Latency until a scan signals completion. Zero completes immediately; negative never completes.
	Latency             time.Duration
	AccessPoints        int
	Satellites          int
	EnergyPerChannelUAh uint32
	GNSSEnergyUAh       uint32
	Seed                int64
}

type accessPoint struct {
	mac     string
	channel radio.Channel
	kind    radio.SignalType
	rssi    int8
}

type satellite struct {
	id   string
	kind radio.SignalType
	cn0  int8
}

// Stats counts driver calls.
type Stats struct {
	Starts    int `json:"starts"`
	Teardowns int `json:"teardowns"`
	Busy      int `json:"busy"`
	Faults    int `json:"faults"`
}

// Client implements radio.Radio and radio.Pinger.
type Client struct {
	mu  sync.Mutex
	cfg Config
	rng *rand.Rand

	aps  []accessPoint
	sats []satellite

	scanning  bool
	started   time.Time
	req       radio.Request
	found     []radio.Detection
	done      chan struct{}
	completed bool
	timer     *time.Timer
	energy    uint32

	busyLeft int
	faulty   bool
	stats    Stats
}

// NewClient creates a simulated radio with a deterministic environment derived from the seed.
func NewClient(cfg Config) *Client {
	c := &Client{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
	c.populate()
	return c
}

func (c *Client) populate() {
	wifiTypes := []radio.SignalType{radio.SignalWiFiB, radio.SignalWiFiG, radio.SignalWiFiN}
	for i := 0; i < c.cfg.AccessPoints; i++ {
		c.aps = append(c.aps, accessPoint{
			mac:     fmt.Sprintf("02:%02x:%02x:%02x:%02x:%02x", c.rng.Intn(256), c.rng.Intn(256), c.rng.Intn(256), c.rng.Intn(256), i),
			channel: radio.Channel(1 + c.rng.Intn(int(radio.MaxChannel))),
			kind:    wifiTypes[c.rng.Intn(len(wifiTypes))],
			rssi:    int8(-35 - c.rng.Intn(60)),
		})
	}
	for i := 0; i < c.cfg.Satellites; i++ {
		s := satellite{kind: radio.SignalGPS, cn0: int8(25 + c.rng.Intn(25))}
		if i%3 == 2 {
			s.kind = radio.SignalBeiDou
			s.id = fmt.Sprintf("C%02d", 1+c.rng.Intn(63))
		} else {
			s.id = fmt.Sprintf("G%02d", 1+c.rng.Intn(32))
		}
		c.sats = append(c.sats, s)
	}
}

// Start begins a scan. It fails with radio.ErrBusy while injected busy answers remain
// or a scan is active, and with radio.ErrFault while a fault is injected.
func (c *Client) Start(ctx context.Context, req radio.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.faulty {
		c.stats.Faults++
		return fmt.Errorf("mockradio: no answer from transceiver: %w", radio.ErrFault)
	}
	if c.busyLeft > 0 {
		c.busyLeft--
		c.stats.Busy++
		return fmt.Errorf("mockradio: transmission pending: %w", radio.ErrBusy)
	}
	if c.scanning {
		c.stats.Busy++
		return fmt.Errorf("mockradio: scan already running: %w", radio.ErrBusy)
	}

	c.stats.Starts++
	c.scanning = true
	c.completed = false
	c.started = time.Now()
	c.req = req
	c.found = c.detect(req)
	c.done = make(chan struct{})

	switch {
	case c.cfg.Latency == 0:
		c.finishLocked()
	case c.cfg.Latency > 0:
		done := c.done
		c.timer = time.AfterFunc(c.cfg.Latency, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.done == done {
				c.finishLocked()
			}
		})
	}
	return nil
}

func (c *Client) finishLocked() {
	if c.completed {
		return
	}
	c.completed = true
	close(c.done)
}

func (c *Client) detect(req radio.Request) []radio.Detection {
	var out []radio.Detection
	switch req.Technology {
	case radio.TechWiFi:
		for _, ap := range c.aps {
			if !req.Channels.Has(ap.channel) || !req.Types.Has(ap.kind) {
				continue
			}
			// A few dB of jitter per scan
			rssi := int(ap.rssi) + c.rng.Intn(7) - 3
			out = append(out, radio.Detection{ID: ap.mac, Channel: ap.channel, Type: ap.kind, RSSI: int8(rssi)})
		}
	case radio.TechGNSS:
		for _, s := range c.sats {
			if !req.Types.Has(s.kind) {
				continue
			}
			out = append(out, radio.Detection{ID: s.id, Type: s.kind, RSSI: s.cn0})
		}
	}
	c.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Done returns the completion signal of the current scan.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Fetch copies the detections into dst. Before completion only the share found so far is available.
func (c *Client) Fetch(ctx context.Context, dst []radio.Detection) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.faulty {
		return 0, fmt.Errorf("mockradio: read failed: %w", radio.ErrFault)
	}
	if !c.scanning {
		return 0, fmt.Errorf("mockradio: no scan to fetch")
	}
	avail := c.found
	if !c.completed && c.cfg.Latency > 0 {
		share := float64(time.Since(c.started)) / float64(c.cfg.Latency)
		avail = avail[:min(len(avail), int(share*float64(len(avail))))]
	} else if !c.completed {
		avail = nil
	}
	return copy(dst, avail), nil
}

// Teardown returns the radio to idle.
func (c *Client) Teardown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Teardowns++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.scanning {
		c.energy = c.cost(c.req)
	}
	c.scanning = false
	if c.faulty {
		return fmt.Errorf("mockradio: teardown unacknowledged: %w", radio.ErrFault)
	}
	return nil
}

func (c *Client) cost(req radio.Request) uint32 {
	if req.Technology == radio.TechGNSS {
		return c.cfg.GNSSEnergyUAh
	}
	return uint32(req.Channels.Len()) * c.cfg.EnergyPerChannelUAh
}

// Energy returns the consumption of the last scan.
func (c *Client) Energy(ctx context.Context) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.energy, nil
}

// Ping reports whether the transceiver answers and is idle.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.faulty {
		return fmt.Errorf("mockradio: ping: %w", radio.ErrFault)
	}
	if c.scanning {
		return fmt.Errorf("mockradio: ping: %w", radio.ErrBusy)
	}
	return nil
}

// InjectBusy makes the next n starts answer busy.
func (c *Client) InjectBusy(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busyLeft = n
}

// InjectFault makes every call fail until Reset.
func (c *Client) InjectFault() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faulty = true
}

// Reset clears injected faults and any scan state, like a chip reset.
func (c *Client) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.faulty = false
	c.busyLeft = 0
	c.scanning = false
	return nil
}

// Stats returns the call counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
