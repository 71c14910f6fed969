// Package radio defines the port between the scan core and the transceiver driver.
package radio

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrBusy is returned by Start when the transceiver cannot accept a scan right now.
	ErrBusy = errors.New("radio busy")
	// ErrFault reports a non-recoverable transceiver error (e.g. bus communication failure).
	ErrFault = errors.New("radio fault")
)

// Request describes one scan command.
type Request struct {
	Technology        Technology
	Channels          ChannelMask
	Types             SignalTypeSet
	MaxResults        int
	TimeoutPerChannel time.Duration
	TimeoutPerScan    time.Duration
}

// Detection is one raw record reported by the transceiver.
type Detection struct {
	ID      string // MAC address or satellite id
	Channel Channel
	Type    SignalType
	RSSI    int8 // dBm for Wi-Fi, C/N0 for GNSS
}

// Radio is the driver context. Only one scan may be outstanding at a time.
type Radio interface {
	// Start issues a scan command. Returns an error wrapping ErrBusy or ErrFault on refusal.
	Start(ctx context.Context, req Request) error
	// Done is closed when the outstanding scan completes in hardware.
	Done() <-chan struct{}
	// Fetch copies up to len(dst) detections, in detection order, and returns how many were written.
	// It may be called after a forced completion and then returns what is available.
	Fetch(ctx context.Context, dst []Detection) (int, error)
	// Teardown releases scan resources and returns the transceiver to idle.
	Teardown(ctx context.Context) error
	// Energy returns the charge spent by the most recent scan, in microampere-hours.
	Energy(ctx context.Context) (uint32, error)
}

// Pinger is implemented by radios that can report whether they are reachable and idle.
type Pinger interface {
	Ping(ctx context.Context) error
}
