package model

import (
	"time"

	"github.com/paulmach/orb"
)

// AssistanceMode selects where the GNSS assistance position comes from.
type AssistanceMode string

const (
	// AssistanceAuto uses the position estimated by the device itself.
	AssistanceAuto AssistanceMode = "auto"
	// AssistanceManual uses a fixed operator-supplied coordinate.
	AssistanceManual AssistanceMode = "manual"
)

// AssistancePosition is the reference coordinate fed to the GNSS solver.
// Latitude, Longitude and Label are only meaningful in manual mode, or in auto mode once
// an autonomous estimate is Known.
type AssistancePosition struct {
	Mode      AssistanceMode `json:"mode"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Label     string         `json:"label"`
	Known     bool           `json:"known"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Point returns the coordinate in orb order (lon, lat).
func (p AssistancePosition) Point() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// GroupEvent is a notable scan-group occurrence written to the event log.
type GroupEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"` // cycle, fault, assistance, reinit
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
}
