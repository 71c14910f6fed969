package model

import "testing"

func TestAssistancePosition_Point(t *testing.T) {
	p := AssistancePosition{
		Mode:      AssistanceManual,
		Latitude:  45.181454,
		Longitude: 5.720893,
		Label:     "Grenoble, FRANCE",
	}
	pt := p.Point()
	if pt.Lat() != p.Latitude || pt.Lon() != p.Longitude {
		t.Errorf("Point() = %v, want lon/lat order", pt)
	}
}
