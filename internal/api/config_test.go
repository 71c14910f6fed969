package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"geoscan/pkg/config"
	"geoscan/pkg/core"
	"geoscan/pkg/radio"
)

func newConfigFixture() (*ConfigHandler, *mockStore, *mockScheduler) {
	st := &mockStore{state: make(map[string]string)}
	sched := &mockScheduler{
		state: core.StateIdle,
		cfg: core.GroupConfig{
			Period: 30 * time.Second,
			Mode:   core.ModeStatic,
			Order:  []radio.Technology{radio.TechWiFi, radio.TechGNSS},
		},
	}
	return NewConfigHandler(config.NewProvider(config.DefaultConfig(), st), sched), st, sched
}

func TestHandleGetConfig(t *testing.T) {
	tests := []struct {
		name       string
		storeState map[string]string
		wantRegion string
	}{
		{
			name:       "Default Config",
			storeState: map[string]string{},
			wantRegion: "EU868",
		},
		{
			name:       "Region Override",
			storeState: map[string]string{config.KeyRegion: "cn470"},
			wantRegion: "CN470",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, st, _ := newConfigFixture()
			st.state = tt.storeState

			req := httptest.NewRequest("GET", "/api/config", nil)
			w := httptest.NewRecorder()

			h.HandleConfig(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected status OK, got %v", resp.Status)
			}

			var got ConfigResponse
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if got.Period != "30s" {
				t.Errorf("Period = %q, want 30s", got.Period)
			}
			if got.Mode != "static" {
				t.Errorf("Mode = %q, want static", got.Mode)
			}
			if len(got.Order) != 2 || got.Order[0] != "wifi" || got.Order[1] != "gnss" {
				t.Errorf("Order = %v, want [wifi gnss]", got.Order)
			}
			if got.Region != tt.wantRegion {
				t.Errorf("Region = %q, want %q", got.Region, tt.wantRegion)
			}
			if got.MobileDistanceM != 200 {
				t.Errorf("MobileDistanceM = %f, want 200", got.MobileDistanceM)
			}
		})
	}
}

func TestHandleSetConfig(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantPeriod time.Duration
		wantMode   core.Mode
		wantStored map[string]string
	}{
		{
			name:       "Update Period",
			body:       `{"period": "2m"}`,
			wantStatus: http.StatusOK,
			wantPeriod: 2 * time.Minute,
			wantMode:   core.ModeStatic,
			wantStored: map[string]string{config.KeyGroupPeriod: "2m0s"},
		},
		{
			name:       "Update Mode",
			body:       `{"mode": "MOBILE"}`,
			wantStatus: http.StatusOK,
			wantPeriod: 30 * time.Second,
			wantMode:   core.ModeMobile,
			wantStored: map[string]string{config.KeyGroupMode: "mobile"},
		},
		{
			name:       "Day Units",
			body:       `{"period": "1d", "mode": "static"}`,
			wantStatus: http.StatusOK,
			wantPeriod: 24 * time.Hour,
			wantMode:   core.ModeStatic,
		},
		{
			name:       "Sub-second Period Rejected",
			body:       `{"period": "500ms"}`,
			wantStatus: http.StatusBadRequest,
			wantPeriod: 30 * time.Second,
			wantMode:   core.ModeStatic,
		},
		{
			name:       "Unknown Mode Rejected",
			body:       `{"mode": "orbit"}`,
			wantStatus: http.StatusBadRequest,
			wantPeriod: 30 * time.Second,
			wantMode:   core.ModeStatic,
		},
		{
			name:       "Garbage Period",
			body:       `{"period": "soon"}`,
			wantStatus: http.StatusBadRequest,
			wantPeriod: 30 * time.Second,
			wantMode:   core.ModeStatic,
		},
		{
			name:       "Invalid JSON",
			body:       `{"period":`,
			wantStatus: http.StatusBadRequest,
			wantPeriod: 30 * time.Second,
			wantMode:   core.ModeStatic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, st, sched := newConfigFixture()

			req := httptest.NewRequest("PUT", "/api/config", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			h.HandleConfig(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			got := sched.Config()
			if got.Period != tt.wantPeriod {
				t.Errorf("scheduler period = %v, want %v", got.Period, tt.wantPeriod)
			}
			if got.Mode != tt.wantMode {
				t.Errorf("scheduler mode = %q, want %q", got.Mode, tt.wantMode)
			}
			for k, v := range tt.wantStored {
				if st.state[k] != v {
					t.Errorf("stored %s = %q, want %q", k, st.state[k], v)
				}
			}
			if tt.wantStatus != http.StatusOK && len(st.state) != 0 {
				t.Errorf("rejected update must not persist, got %v", st.state)
			}
		})
	}
}

func TestHandleSetConfig_SchedulerRejects(t *testing.T) {
	h, _, sched := newConfigFixture()
	sched.reconfErr = errors.New("boom")

	req := httptest.NewRequest("POST", "/api/config", bytes.NewBufferString(`{"mode": "mobile"}`))
	w := httptest.NewRecorder()
	h.HandleConfig(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestHandleConfig_Methods(t *testing.T) {
	h, _, _ := newConfigFixture()

	for _, tt := range []struct {
		method string
		want   int
	}{
		{http.MethodOptions, http.StatusOK},
		{http.MethodDelete, http.StatusMethodNotAllowed},
	} {
		w := httptest.NewRecorder()
		h.HandleConfig(w, httptest.NewRequest(tt.method, "/api/config", nil))
		if w.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.method, w.Code, tt.want)
		}
	}
}
