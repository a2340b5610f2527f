package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"conversation-ai-core/pkg/config"
	"conversation-ai-core/pkg/escalation"
	"conversation-ai-core/pkg/handlers"
	"conversation-ai-core/pkg/pipeline"
)

func NewHTTPServer(cfg *config.Config, orchestrator *pipeline.Orchestrator, engine *escalation.Engine, logger *logrus.Logger) *http.Server {
	handler := handlers.NewHandler(orchestrator, engine, logger)

	router := mux.NewRouter()

	// API routes
	router.HandleFunc("/conversations/{id}/messages", handler.ProcessMessage).Methods("POST")
	router.HandleFunc("/conversations/{id}/prevention-actions", handler.ExecutePreventionAction).Methods("POST")
	router.HandleFunc("/conversations/{id}/escalation-outcome", handler.ReportEscalationOutcome).Methods("POST")
	router.HandleFunc("/escalations", handler.ActiveEscalations).Methods("GET")
	router.HandleFunc("/pipeline/metrics", handler.Metrics).Methods("GET")
	router.HandleFunc("/health", handler.Health).Methods("GET")

	// Prometheus endpoint
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Add logging middleware
	router.Use(loggingMiddleware(logger))

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Debug("HTTP request processed")
		})
	}
}
