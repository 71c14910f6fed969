package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"geoscan/pkg/config"
	"geoscan/pkg/core"
	"geoscan/pkg/scan"
)

// ConfigHandler handles configuration API requests.
type ConfigHandler struct {
	cfgProv config.Provider
	sched   Scheduler
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(cfg config.Provider, s Scheduler) *ConfigHandler {
	return &ConfigHandler{
		cfgProv: cfg,
		sched:   s,
	}
}

// ConfigResponse represents the config API response.
type ConfigResponse struct {
	Period          string   `json:"period"`
	Mode            string   `json:"mode"`
	Order           []string `json:"order"`
	Region          string   `json:"region"`
	MobileMinPeriod string   `json:"mobile_min_period"`
	MobileDistanceM float64  `json:"mobile_distance_m"`
}

// ConfigRequest represents the config API request for updates.
type ConfigRequest struct {
	Period string `json:"period,omitempty"`
	Mode   string `json:"mode,omitempty"`
}

// HandleConfig is a unified handler for all config-related methods, facilitating CORS/OPTIONS.
func (h *ConfigHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.HandleGetConfig(w, r)
	case http.MethodPut, http.MethodPost:
		h.HandleSetConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGetConfig returns the effective group configuration.
func (h *ConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.getConfigResponse(r))
}

func (h *ConfigHandler) getConfigResponse(r *http.Request) ConfigResponse {
	app := h.cfgProv.AppConfig()
	gc := h.sched.Config()
	resp := ConfigResponse{
		Period:          gc.Period.String(),
		Mode:            string(gc.Mode),
		Order:           make([]string, 0, len(gc.Order)),
		Region:          h.cfgProv.Region(r.Context()),
		MobileMinPeriod: time.Duration(app.ScanGroup.Mobile.MinPeriod).String(),
		MobileDistanceM: app.ScanGroup.Mobile.Distance.Meters(),
	}
	for _, t := range gc.Order {
		resp.Order = append(resp.Order, string(t))
	}
	return resp
}

// HandleSetConfig changes the period and/or mode. The change is persisted and
// applies from the next scan group.
func (h *ConfigHandler) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	var req ConfigRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	next := h.sched.Config()
	if req.Period != "" {
		d, err := config.ParseDuration(req.Period)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		next.Period = d
	}
	if req.Mode != "" {
		next.Mode = core.Mode(strings.ToLower(req.Mode))
	}
	if err := next.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if req.Period != "" {
		if err := h.cfgProv.SetGroupPeriod(ctx, next.Period); err != nil {
			h.writeSetError(w, err)
			return
		}
	}
	if req.Mode != "" {
		if err := h.cfgProv.SetGroupMode(ctx, string(next.Mode)); err != nil {
			h.writeSetError(w, err)
			return
		}
	}
	if err := h.sched.Reconfigure(next); err != nil {
		h.writeSetError(w, err)
		return
	}

	slog.Info("Group configuration updated via API", "period", next.Period, "mode", next.Mode)
	writeJSON(w, http.StatusOK, h.getConfigResponse(r))
}

func (h *ConfigHandler) writeSetError(w http.ResponseWriter, err error) {
	if errors.Is(err, config.ErrInvalid) || errors.Is(err, scan.ErrConfig) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.Error("Failed to apply config", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}
