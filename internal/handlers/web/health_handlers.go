// File: internal/handlers/web/health_handlers.go
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"badgehub/internal/services"

	"go.uber.org/zap"
)

// HealthReporter reports dependency health
type HealthReporter interface {
	HealthCheck(ctx context.Context) (*services.ServiceHealth, error)
}

// HealthHandler handles GET /health. Degraded still answers 200.
func HealthHandler(reporter HealthReporter, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		health, err := reporter.HealthCheck(ctx)
		if err != nil {
			logger.Error("Health check failed", zap.Error(err))
			health = &services.ServiceHealth{
				Status:    "unhealthy",
				Timestamp: time.Now(),
				Issues:    []string{"health check failed"},
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		switch health.Status {
		case "healthy", "degraded":
			w.WriteHeader(http.StatusOK)
		case "unhealthy":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}

		if err := json.NewEncoder(w).Encode(health); err != nil {
			logger.Error("Failed to encode health response", zap.Error(err))
		}
	}
}

// LivenessHandler answers as long as the process serves requests
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "alive",
			"timestamp": time.Now(),
		})
	}
}
