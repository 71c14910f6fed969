package probe

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"geoscan/pkg/radio"
)

func TestRun(t *testing.T) {
	probes := []Probe{
		{
			Name: "Success Probe",
			Check: func(ctx context.Context) error {
				return nil
			},
			Critical: true,
		},
		{
			Name: "Failure Probe (Non-Critical)",
			Check: func(ctx context.Context) error {
				return errors.New("minor issue")
			},
			Critical: false,
		},
	}

	results := Run(context.Background(), probes)

	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}

	if results[0].Error != nil {
		t.Errorf("Expected success probe to pass, got error: %v", results[0].Error)
	}

	if results[1].Error == nil {
		t.Error("Expected failure probe to fail, got nil")
	}
}

func TestAnalyzeResults(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		wantErr bool
	}{
		{
			name: "All Pass",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: true}, Error: nil},
			},
			wantErr: false,
		},
		{
			name: "Critical Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
		{
			name: "Non-Critical Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: false}, Error: errors.New("fail")},
			},
			wantErr: false,
		},
		{
			name: "Mixed Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: false}, Error: errors.New("fail")},
				{Probe: Probe{Name: "P2", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AnalyzeResults(tt.results)
			if (err != nil) != tt.wantErr {
				t.Errorf("AnalyzeResults() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// pingRadio is a radio.Radio that only answers Ping.
type pingRadio struct {
	radio.Radio
	err error
}

func (p pingRadio) Ping(ctx context.Context) error { return p.err }

func TestDatabaseProbe(t *testing.T) {
	ok := Database(pingFunc(func(ctx context.Context) error { return nil }))
	broken := Database(pingFunc(func(ctx context.Context) error { return errors.New("disk I/O error") }))

	results := Run(context.Background(), []Probe{ok, broken})
	if results[0].Error != nil {
		t.Errorf("expected healthy database to pass, got %v", results[0].Error)
	}
	if results[1].Error == nil || !results[1].Probe.Critical {
		t.Error("expected broken database to fail critically")
	}
}

func TestRadioProbe(t *testing.T) {
	tests := []struct {
		name    string
		r       radio.Radio
		wantErr error
	}{
		{"Idle", pingRadio{}, nil},
		{"Busy", pingRadio{err: fmt.Errorf("scan in flight: %w", radio.ErrBusy)}, nil},
		{"Fault", pingRadio{err: radio.ErrFault}, radio.ErrFault},
		{"NoPing", struct{ radio.Radio }{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Radio(tt.r).Check(context.Background())
			if tt.wantErr == nil && err != nil {
				t.Errorf("expected pass, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	err := AnalyzeResults(Run(context.Background(), []Probe{Radio(pingRadio{err: radio.ErrFault})}))
	if !errors.Is(err, radio.ErrFault) {
		t.Errorf("expected joined error to wrap ErrFault, got %v", err)
	}
}
