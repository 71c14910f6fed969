package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"geoscan/pkg/config"
	"geoscan/pkg/core"
	"geoscan/pkg/energy"
	"geoscan/pkg/region"
	"geoscan/pkg/scan"
	"geoscan/pkg/store"
)

// Scheduler is the part of core.Scheduler the API drives.
type Scheduler interface {
	State() core.State
	FaultReason() string
	Sequence() uint64
	Config() core.GroupConfig
	Reconfigure(cfg core.GroupConfig) error
	Reinit(ctx context.Context) error
}

// StatusHandler serves scheduler state, energy and the re-initialisation command.
type StatusHandler struct {
	sched  Scheduler
	prov   config.Provider
	energy *energy.Accountant
	ledger store.EnergyLedger
}

// NewStatusHandler creates a StatusHandler. The ledger may be nil.
func NewStatusHandler(s Scheduler, prov config.Provider, acct *energy.Accountant, ledger store.EnergyLedger) *StatusHandler {
	return &StatusHandler{sched: s, prov: prov, energy: acct, ledger: ledger}
}

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	State    core.State      `json:"state"`
	Fault    string          `json:"fault,omitempty"`
	Sequence uint64          `json:"sequence"`
	Period   string          `json:"period"`
	Mode     core.Mode       `json:"mode"`
	Order    []string        `json:"order"`
	Region   *region.Profile `json:"region,omitempty"`
}

// HandleStatus returns the scheduler state and the active group configuration.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := h.sched.Config()
	resp := StatusResponse{
		State:    h.sched.State(),
		Fault:    h.sched.FaultReason(),
		Sequence: h.sched.Sequence(),
		Period:   cfg.Period.String(),
		Mode:     cfg.Mode,
		Order:    make([]string, 0, len(cfg.Order)),
	}
	for _, t := range cfg.Order {
		resp.Order = append(resp.Order, string(t))
	}
	if p, err := region.Lookup(h.prov.Region(r.Context())); err == nil {
		resp.Region = &p
	} else {
		slog.Debug("No regional profile", "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// EnergyResponse is the /api/energy payload.
type EnergyResponse struct {
	Session       energy.Reading `json:"session"`
	LifetimeUAh   uint64         `json:"lifetime_uah"`
	LifetimeScans int            `json:"lifetime_scans"`
}

// HandleEnergy returns the session accountant and the persisted lifetime totals.
func (h *StatusHandler) HandleEnergy(w http.ResponseWriter, r *http.Request) {
	resp := EnergyResponse{Session: h.energy.Reading()}
	if h.ledger != nil {
		total, scans, err := h.ledger.SumEnergy(r.Context())
		if err != nil {
			slog.Error("Failed to sum energy ledger", "error", err)
			writeError(w, http.StatusInternalServerError, "energy ledger unavailable")
			return
		}
		resp.LifetimeUAh = total
		resp.LifetimeScans = scans
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleReinit leaves FAULT. 409 outside FAULT, 503 when recovery fails.
func (h *StatusHandler) HandleReinit(w http.ResponseWriter, r *http.Request) {
	err := h.sched.Reinit(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]core.State{"state": h.sched.State()})
	case errors.Is(err, scan.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("Reinit failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}
