package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"nestling-tracker/internal/core/ports"
	"nestling-tracker/internal/identity"
)

// ReadinessCheck reports whether the service's storage backend is
// reachable. nil means there is nothing to check.
type ReadinessCheck func() error

// SetupRoutes wires the full API surface. Health probes stay outside the
// authenticated subrouter.
func SetupRoutes(
	tracking ports.TrackingService,
	stats ports.StatsService,
	exports ports.ExportService,
	schedules ports.ScheduleService,
	validator identity.TokenValidator,
	ready ReadinessCheck,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware)

	router.HandleFunc("/health", healthHandler).Methods("GET")
	router.HandleFunc("/ready", readyHandler(ready)).Methods("GET")

	tracker := NewTrackerHandler(tracking, stats)
	exportHandler := NewExportHandler(exports)
	scheduleHandler := NewScheduleHandler(schedules)

	// Apply token auth to all API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware(validator))

	// Children CRUD
	api.HandleFunc("/children", tracker.CreateChild).Methods("POST")
	api.HandleFunc("/children", tracker.ListChildren).Methods("GET")
	api.HandleFunc("/children/{id}", tracker.GetChild).Methods("GET")
	api.HandleFunc("/children/{id}", tracker.UpdateChild).Methods("PATCH")
	api.HandleFunc("/children/{id}", tracker.DeleteChild).Methods("DELETE")

	// Care events
	api.HandleFunc("/children/{childId}/events", tracker.RecordEvent).Methods("POST")
	api.HandleFunc("/children/{childId}/events", tracker.ListEvents).Methods("GET")
	api.HandleFunc("/children/{childId}/events/{id}", tracker.GetEvent).Methods("GET")
	api.HandleFunc("/children/{childId}/events/{id}", tracker.DeleteEvent).Methods("DELETE")
	api.HandleFunc("/children/{childId}/events/{id}/end", tracker.EndEvent).Methods("POST")

	// Daily stats
	api.HandleFunc("/children/{childId}/stats/daily", tracker.GetDailyStats).Methods("GET")

	// Exports
	api.HandleFunc("/exports", exportHandler.CreateExport).Methods("POST")
	api.HandleFunc("/exports", exportHandler.ListExports).Methods("GET")
	api.HandleFunc("/exports/{id}", exportHandler.GetExport).Methods("GET")
	api.HandleFunc("/exports/{id}", exportHandler.CancelExport).Methods("DELETE")
	api.HandleFunc("/exports/{id}/status", exportHandler.GetExportStatus).Methods("GET")
	api.HandleFunc("/exports/{id}/download", exportHandler.DownloadExport).Methods("GET")
	api.HandleFunc("/exports/{id}/watch", exportHandler.WatchExport).Methods("GET")

	// Export schedules
	api.HandleFunc("/schedules", scheduleHandler.CreateSchedule).Methods("POST")
	api.HandleFunc("/schedules", scheduleHandler.ListSchedules).Methods("GET")
	api.HandleFunc("/schedules/{id}", scheduleHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/schedules/{id}", scheduleHandler.DeleteSchedule).Methods("DELETE")
	api.HandleFunc("/schedules/{id}/enable", scheduleHandler.EnableSchedule).Methods("POST")
	api.HandleFunc("/schedules/{id}/disable", scheduleHandler.DisableSchedule).Methods("POST")

	return router
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func readyHandler(check ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				respondWithError(w, http.StatusServiceUnavailable, "Not Ready", "Storage backend is not reachable")
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}
