package api

import (
	"github.com/gorilla/mux"

	"CycleDCA/internal/metrics"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/prices", handler.UpsertPrice).Methods("POST")
	api.HandleFunc("/prices/history", handler.GetUpsertHistory).Methods("GET")
	api.HandleFunc("/simulations", handler.Simulate).Methods("POST")
	api.HandleFunc("/series", handler.GetSeries).Methods("GET")
	api.HandleFunc("/phases", handler.GetPhases).Methods("GET")
	api.HandleFunc("/cycles", handler.GetCycles).Methods("GET")

	return r
}
