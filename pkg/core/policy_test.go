package core

import (
	"testing"
	"time"

	"geoscan/pkg/model"
)

func TestDistancePolicy(t *testing.T) {
	base := 30 * time.Second
	at := func(lat, lon float64) model.AssistancePosition {
		return model.AssistancePosition{Mode: model.AssistanceAuto, Latitude: lat, Longitude: lon, Known: true}
	}

	tests := []struct {
		name string
		pos  model.AssistancePosition
		want time.Duration
	}{
		{"FirstFixKeepsBase", at(45.0, 5.0), base},
		{"Stationary", at(45.0, 5.0), base},
		{"MovedFar", at(45.01, 5.0), 10 * time.Second}, // about 1.1km
		{"SmallDrift", at(45.0101, 5.0), base},
		{"UnknownPosition", model.AssistancePosition{Mode: model.AssistanceAuto}, base},
	}

	p := NewDistancePolicy(200, 10*time.Second)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.NextPeriod(base, tt.pos); got != tt.want {
				t.Errorf("NextPeriod() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDistancePolicy_MinPeriodFloor(t *testing.T) {
	p := NewDistancePolicy(1, 0)
	pos := model.AssistancePosition{Latitude: 1, Longitude: 1, Known: true}
	p.NextPeriod(time.Minute, pos)
	pos.Latitude = 2
	if got := p.NextPeriod(time.Minute, pos); got != time.Second {
		t.Errorf("NextPeriod() = %v, want 1s floor", got)
	}
}

func TestBaseJob_LockUnlock(t *testing.T) {
	b := NewBaseJob("test")
	if !b.TryLock() {
		t.Fatal("First TryLock should succeed")
	}
	if b.TryLock() {
		t.Error("Second TryLock should fail when already locked")
	}
	if !b.Running() {
		t.Error("Running() should report the lock")
	}
	b.Unlock()
	if !b.TryLock() {
		t.Error("TryLock should succeed after Unlock")
	}
	if b.Name() != "test" {
		t.Errorf("Name() = %q", b.Name())
	}
}
