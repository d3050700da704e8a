package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonhee/argus/backend/internal/api/handlers"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(
	strategies *handlers.StrategiesHandler,
	execute *handlers.ExecuteHandler,
	watchlists *handlers.WatchlistsHandler,
	feed *RunFeed,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Strategy registry
	api.HandleFunc("/strategies", strategies.List).Methods("GET")
	api.HandleFunc("/strategies/scan", strategies.Scan).Methods("POST")
	api.HandleFunc("/strategies/upload", strategies.Upload).Methods("POST")
	api.HandleFunc("/strategies/execute", execute.Execute).Methods("POST")
	api.HandleFunc("/strategies/{id}/download", strategies.Download).Methods("GET")
	api.HandleFunc("/strategies/{id}/active", strategies.SetActive).Methods("PUT")
	api.HandleFunc("/strategies/{id}", strategies.Delete).Methods("DELETE")

	// Results
	api.HandleFunc("/results/latest", execute.Latest).Methods("GET")
	api.HandleFunc("/runs", execute.Runs).Methods("GET")
	api.HandleFunc("/runs/live", feed.ServeWS).Methods("GET")

	// Watchlists
	api.HandleFunc("/watchlists", watchlists.Create).Methods("POST")
	api.HandleFunc("/watchlists", watchlists.List).Methods("GET")
	api.HandleFunc("/watchlists/{id}", watchlists.Get).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "argus-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
