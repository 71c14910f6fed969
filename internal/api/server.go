package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"geoscan/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
// Optional handlers may be nil; their endpoints are then not registered.
func NewServer(addr string, status *StatusHandler, cfg *ConfigHandler, stats *StatsHandler, assistH *AssistanceHandler, bundles *BundleHandler, stream *StreamHandler, metricsPath string, metrics http.Handler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 3. Scheduler Endpoints
	mux.HandleFunc("GET /api/status", status.HandleStatus)
	mux.HandleFunc("GET /api/energy", status.HandleEnergy)
	mux.HandleFunc("POST /api/reinit", status.HandleReinit)

	// 4. Config Endpoint
	mux.HandleFunc("/api/config", cfg.HandleConfig)

	// 5. Stats Endpoint
	mux.Handle("GET /api/stats", stats)

	// 6. Logs Endpoints
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/events", handleEvents)

	// 7. Assistance Endpoints
	mux.HandleFunc("GET /api/assistance", assistH.HandleGet)
	mux.HandleFunc("POST /api/assistance", assistH.HandleSet)
	mux.HandleFunc("GET /api/assistance.geojson", assistH.HandleGeoJSON)

	// 8. Bundle Endpoints
	if bundles != nil {
		mux.HandleFunc("GET /api/bundles", bundles.HandleList)
		mux.HandleFunc("GET /api/bundles/latest", bundles.HandleLatest)
		mux.HandleFunc("GET /api/bundles/{id}", bundles.HandleGet)
	}
	if stream != nil {
		mux.Handle("GET /api/stream", stream)
	}

	// 9. Metrics Endpoint
	if metrics != nil && metricsPath != "" {
		mux.Handle("GET "+metricsPath, metrics)
	}

	// 10. Shutdown Endpoint
	if shutdown != nil {
		mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
			slog.Info("Graceful shutdown initiated via API")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("Shutting down...")); err != nil {
				slog.Error("Failed to write shutdown response", "error", err)
			}
			// Call shutdown in a goroutine to allow response to flush
			go func() {
				time.Sleep(100 * time.Millisecond)
				shutdown()
			}()
		})
	}

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError sends {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
