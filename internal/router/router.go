package router

import (
	"net/http"

	"badgehub/internal/handlers/web"
	"badgehub/internal/middleware"
	"badgehub/internal/response"
	"badgehub/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Options carries the pieces the router needs beyond the service collection
type Options struct {
	Hub            *web.Hub
	AllowedOrigins []string
}

// SetupRouter configures all HTTP routes and returns the main handler
func SetupRouter(
	serviceCollection *services.ServiceCollection,
	responseBuilder *response.Builder,
	opts Options,
	logger *zap.Logger,
) http.Handler {
	r := mux.NewRouter()

	r.NotFoundHandler = responseBuilder.NotFoundHandler()
	r.MethodNotAllowedHandler = responseBuilder.MethodNotAllowedHandler()

	// Health endpoints
	r.HandleFunc("/health", web.HealthHandler(serviceCollection, logger)).Methods(http.MethodGet)
	r.HandleFunc("/health/live", web.LivenessHandler()).Methods(http.MethodGet)

	// Live badge notifications
	if opts.Hub != nil {
		r.HandleFunc("/ws/notifications", opts.Hub.ServeWS).Methods(http.MethodGet)
	}

	AddAPIv1Routes(r, serviceCollection.GetBadgeService(), responseBuilder, logger)

	logger.Info("Router configured",
		zap.Bool("websocket_enabled", opts.Hub != nil),
		zap.Int("allowed_origins", len(opts.AllowedOrigins)),
	)

	return applyMiddleware(r, responseBuilder, opts.AllowedOrigins, logger)
}

// applyMiddleware wraps the router. The request ID runs first so every
// later layer logs with the request-scoped logger.
func applyMiddleware(h http.Handler, responseBuilder *response.Builder, allowedOrigins []string, logger *zap.Logger) http.Handler {
	h = middleware.CORS(allowedOrigins)(h)
	h = middleware.AccessLog(h)
	h = middleware.RecoverPanic(responseBuilder)(h)
	h = middleware.RequestID(logger)(h)
	return h
}
