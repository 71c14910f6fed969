package tracker

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"geoscan/pkg/core"
	"geoscan/pkg/radio"
	"geoscan/pkg/scan"
)

var _ core.Observer = (*Tracker)(nil)

func TestTracker(t *testing.T) {
	tr := New()

	// Test Initial State
	snap := tr.Snapshot()
	if len(snap.Scans) != 0 {
		t.Errorf("Expected empty stats, got %d", len(snap.Scans))
	}
	if snap.State != core.StateIdle {
		t.Errorf("Expected idle, got %s", snap.State)
	}

	// Test Tracking
	tr.StateChanged(core.StateScanning)
	tr.ScanFinished(radio.TechWiFi, scan.Outcome{Count: 4}, nil)
	tr.ScanFinished(radio.TechWiFi, scan.Outcome{Count: 2, TimedOut: true}, nil)
	tr.ScanFailed(radio.TechGNSS, fmt.Errorf("start: %w", scan.ErrRadioBusy))
	tr.ScanFailed(radio.TechGNSS, scan.ErrRadioFault)
	tr.ScanFailed(radio.TechGNSS, errors.New("unexpected"))
	tr.GroupFinished(&core.Bundle{}, time.Second)

	snap = tr.Snapshot()
	if snap.State != core.StateScanning {
		t.Errorf("Expected scanning, got %s", snap.State)
	}
	if snap.Groups != 1 {
		t.Errorf("Expected 1 group, got %d", snap.Groups)
	}

	wifi, ok := snap.Scans[radio.TechWiFi]
	if !ok {
		t.Fatal("Expected wifi stats")
	}
	if wifi.Completed != 1 || wifi.TimedOut != 1 {
		t.Errorf("Expected 1 completed and 1 timed out, got %+v", wifi)
	}
	if wifi.Detections != 6 || wifi.LastCount != 2 {
		t.Errorf("Expected 6 detections, last 2, got %+v", wifi)
	}

	gnss := snap.Scans[radio.TechGNSS]
	if gnss.Busy != 1 || gnss.Faults != 1 || gnss.Errors != 1 {
		t.Errorf("Unexpected gnss failures: %+v", gnss)
	}
}

func TestReset(t *testing.T) {
	tr := New()
	tr.ScanFinished(radio.TechGNSS, scan.Outcome{Count: 9}, nil)
	tr.GroupFinished(&core.Bundle{}, time.Second)

	tr.Reset()

	snap := tr.Snapshot()
	s, ok := snap.Scans[radio.TechGNSS]
	if !ok {
		t.Fatal("Post-Reset: technology should still exist in map")
	}
	if s.Completed != 0 || s.Detections != 0 {
		t.Errorf("Post-Reset: expected zeroed counters, got %+v", s)
	}
	if snap.Groups != 0 {
		t.Errorf("Post-Reset: expected 0 groups, got %d", snap.Groups)
	}
}

func TestConcurrentTracking(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.ScanFinished(radio.TechWiFi, scan.Outcome{Count: 1}, nil)
				_ = tr.Snapshot()
			}
		}()
	}
	wg.Wait()

	if got := tr.Snapshot().Scans[radio.TechWiFi].Completed; got != 800 {
		t.Errorf("Expected 800 completed scans, got %d", got)
	}
}
