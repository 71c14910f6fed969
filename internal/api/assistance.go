package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"geoscan/pkg/assist"
	"geoscan/pkg/geo"
	"geoscan/pkg/model"
)

// AssistanceHandler exposes the GNSS assistance position.
type AssistanceHandler struct {
	mgr *assist.Manager
}

// NewAssistanceHandler creates a new AssistanceHandler.
func NewAssistanceHandler(m *assist.Manager) *AssistanceHandler {
	return &AssistanceHandler{mgr: m}
}

// AssistanceRequest selects auto mode or a manual coordinate. In auto mode the
// coordinates are optional and carry the solver's latest position estimate.
type AssistanceRequest struct {
	Mode      string   `json:"mode"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Label     string   `json:"label,omitempty"`
}

// HandleGet returns the current assistance snapshot.
func (h *AssistanceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.Current())
}

// HandleSet switches the assistance mode. Manual mode requires both coordinates.
// Auto mode with coordinates feeds an autonomous fix, which the mobile period policy follows.
func (h *AssistanceHandler) HandleSet(w http.ResponseWriter, r *http.Request) {
	var req AssistanceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var err error
	switch model.AssistanceMode(strings.ToLower(req.Mode)) {
	case model.AssistanceAuto:
		if (req.Latitude == nil) != (req.Longitude == nil) {
			writeError(w, http.StatusBadRequest, "an autonomous fix requires latitude and longitude")
			return
		}
		err = h.setAuto(r, req.Latitude, req.Longitude)
	case model.AssistanceManual:
		if req.Latitude == nil || req.Longitude == nil {
			writeError(w, http.StatusBadRequest, "manual mode requires latitude and longitude")
			return
		}
		err = h.mgr.SetManual(r.Context(), *req.Latitude, *req.Longitude, req.Label)
	default:
		writeError(w, http.StatusBadRequest, "mode must be auto or manual")
		return
	}

	if err != nil {
		if errors.Is(err, assist.ErrRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Failed to update assistance position", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.mgr.Current())
}

func (h *AssistanceHandler) setAuto(r *http.Request, lat, lon *float64) error {
	if lat == nil {
		return h.mgr.SetAuto(r.Context())
	}
	if err := assist.CheckRange(*lat, *lon); err != nil {
		return err
	}
	if h.mgr.Current().Mode != model.AssistanceAuto {
		if err := h.mgr.SetAuto(r.Context()); err != nil {
			return err
		}
	}
	return h.mgr.UpdateAutonomous(*lat, *lon)
}

// HandleGeoJSON returns the assistance position as a FeatureCollection.
func (h *AssistanceHandler) HandleGeoJSON(w http.ResponseWriter, r *http.Request) {
	fc := geo.AssistanceFeature(h.mgr.Current())
	data, err := fc.MarshalJSON()
	if err != nil {
		slog.Error("Failed to encode assistance GeoJSON", "error", err)
		writeError(w, http.StatusInternalServerError, "encoding failed")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write assistance GeoJSON", "error", err)
	}
}
