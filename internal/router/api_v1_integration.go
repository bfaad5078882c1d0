package router

import (
	"net/http"

	"badgehub/internal/appinfo"
	"badgehub/internal/handlers/api/v1/badges"
	"badgehub/internal/response"
	"badgehub/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// APIPrefix is the mount point of the versioned JSON API
const APIPrefix = "/api/v1"

// AddAPIv1Routes mounts the versioned API on the router
func AddAPIv1Routes(
	r *mux.Router,
	badgeService services.BadgeService,
	responseBuilder *response.Builder,
	logger *zap.Logger,
) {
	api := r.PathPrefix(APIPrefix).Subrouter()
	api.NotFoundHandler = responseBuilder.NotFoundHandler()
	api.MethodNotAllowedHandler = responseBuilder.MethodNotAllowedHandler()

	badgeController := badges.NewBadgeController(badgeService, logger.Named("api.badges"), responseBuilder)
	badgeController.RegisterRoutes(api.PathPrefix("/badges").Subrouter())

	api.HandleFunc("/status", func(w http.ResponseWriter, req *http.Request) {
		responseBuilder.WriteSuccess(w, req, map[string]interface{}{
			"api":    "v1",
			"status": "operational",
			"build":  appinfo.Get(),
		})
	}).Methods(http.MethodGet)

	logger.Info("API v1 routes configured", zap.String("prefix", APIPrefix))
}
