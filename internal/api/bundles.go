package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"geoscan/pkg/core"
	"geoscan/pkg/store"
)

const (
	defaultBundleHistory = 20
	maxBundleHistory     = 100
)

// BundleHandler serves completed scan groups.
type BundleHandler struct {
	latest *core.LatestBundle
	store  store.BundleStore
}

// NewBundleHandler creates a BundleHandler. The store may be nil; history is then unavailable.
func NewBundleHandler(latest *core.LatestBundle, st store.BundleStore) *BundleHandler {
	return &BundleHandler{latest: latest, store: st}
}

// HandleLatest returns the most recent bundle.
func (h *BundleHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	b := h.latest.Get()
	if b == nil {
		writeError(w, http.StatusNotFound, "no scan group completed yet")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// HandleList returns the newest persisted bundles, newest first. ?limit=n bounds the count.
func (h *BundleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	n := defaultBundleHistory
	if v := r.URL.Query().Get("limit"); v != "" {
		var err error
		n, err = strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}
	h.handleHistory(w, r, min(n, maxBundleHistory))
}

func (h *BundleHandler) handleHistory(w http.ResponseWriter, r *http.Request, n int) {
	if h.store == nil {
		writeError(w, http.StatusNotImplemented, "bundle history is not persisted")
		return
	}
	recs, err := h.store.LatestBundles(r.Context(), n)
	if err != nil {
		slog.Error("Failed to load bundle history", "error", err)
		writeError(w, http.StatusInternalServerError, "bundle history unavailable")
		return
	}
	out := make([]json.RawMessage, 0, len(recs))
	for _, rec := range recs {
		out = append(out, json.RawMessage(rec.Payload))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet returns one persisted bundle by ID.
func (h *BundleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotImplemented, "bundle history is not persisted")
		return
	}
	rec, err := h.store.GetBundle(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("Failed to load bundle", "error", err)
		writeError(w, http.StatusInternalServerError, "bundle unavailable")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "unknown bundle")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(rec.Payload); err != nil {
		slog.Error("Failed to write bundle", "error", err)
	}
}
