package api

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/market-returns/internal/logger"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler, log *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(logger.Middleware(log))

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/catalog", handler.GetCatalog).Methods("GET")

	// Return analytics
	api.HandleFunc("/returns/summary", handler.GetSummary).Methods("GET")
	api.HandleFunc("/returns/performance", handler.GetPerformance).Methods("GET")
	api.HandleFunc("/returns/monthly/{symbol}", handler.GetMonthly).Methods("GET")

	return r
}
