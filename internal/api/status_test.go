package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"geoscan/pkg/config"
	"geoscan/pkg/core"
	"geoscan/pkg/db"
	"geoscan/pkg/energy"
	"geoscan/pkg/radio"
	"geoscan/pkg/store"
)

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return store.NewSQLiteStore(d)
}

func newStatusFixture(t *testing.T) (*StatusHandler, *mockScheduler, *energy.Accountant, *store.SQLiteStore) {
	st := newSQLiteStore(t)
	sched := &mockScheduler{
		state: core.StateIdle,
		seq:   7,
		cfg:   core.GroupConfig{Period: time.Minute, Mode: core.ModeMobile, Order: []radio.Technology{radio.TechGNSS}},
	}
	acct := energy.NewAccountant()
	prov := config.NewProvider(config.DefaultConfig(), st)
	return NewStatusHandler(sched, prov, acct, st), sched, acct, st
}

func TestHandleStatus(t *testing.T) {
	h, sched, _, _ := newStatusFixture(t)
	sched.state = core.StateFault
	sched.fault = "gnss: radio fault"

	w := httptest.NewRecorder()
	h.HandleStatus(w, httptest.NewRequest("GET", "/api/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got StatusResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State != core.StateFault || got.Fault != "gnss: radio fault" {
		t.Errorf("unexpected state %q / %q", got.State, got.Fault)
	}
	if got.Sequence != 7 || got.Period != "1m0s" || got.Mode != core.ModeMobile {
		t.Errorf("unexpected group info: %+v", got)
	}
	if got.Region == nil || got.Region.Region != "EU868" || got.Region.CustomNbTrans != 1 {
		t.Errorf("expected EU868 profile, got %+v", got.Region)
	}
}

func TestHandleEnergy(t *testing.T) {
	h, _, acct, st := newStatusFixture(t)
	ctx := t.Context()

	acct.Record("a", 10)
	acct.Record("b", 15)
	for _, e := range []store.EnergyEntry{
		{ScanID: "old", Technology: "gnss", EnergyUAh: 100},
		{ScanID: "a", Technology: "wifi", EnergyUAh: 10},
		{ScanID: "b", Technology: "gnss", EnergyUAh: 15},
	} {
		if err := st.AppendEnergy(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	w := httptest.NewRecorder()
	h.HandleEnergy(w, httptest.NewRequest("GET", "/api/energy", nil))

	var got EnergyResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Session.TotalUAh != 25 || got.Session.LastUAh != 15 || got.Session.Scans != 2 {
		t.Errorf("unexpected session reading: %+v", got.Session)
	}
	if got.LifetimeUAh != 125 || got.LifetimeScans != 3 {
		t.Errorf("unexpected lifetime totals: %d / %d", got.LifetimeUAh, got.LifetimeScans)
	}
}

func TestHandleReinit(t *testing.T) {
	tests := []struct {
		name       string
		state      core.State
		reinitErr  error
		wantStatus int
		wantState  core.State
	}{
		{"FromFault", core.StateFault, nil, http.StatusOK, core.StateIdle},
		{"NotInFault", core.StateIdle, nil, http.StatusConflict, core.StateIdle},
		{"RecoveryFails", core.StateFault, errors.New("bus error"), http.StatusServiceUnavailable, core.StateFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, sched, _, _ := newStatusFixture(t)
			sched.state = tt.state
			sched.reinitErr = tt.reinitErr

			w := httptest.NewRecorder()
			h.HandleReinit(w, httptest.NewRequest("POST", "/api/reinit", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if sched.State() != tt.wantState {
				t.Errorf("state = %s, want %s", sched.State(), tt.wantState)
			}
		})
	}
}
