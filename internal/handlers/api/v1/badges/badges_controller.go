// ===============================
// FILE: internal/handlers/api/v1/badges/badges_controller.go
// ===============================

package badges

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"badgehub/internal/contextutils"
	"badgehub/internal/response"
	"badgehub/internal/services"
	"badgehub/internal/validation"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxRequestBodyBytes = 1 << 16

// CheckBadgeRequest is the body of POST /api/v1/badges/check/{badgeID}
type CheckBadgeRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// BadgeController handles badge API endpoints
type BadgeController struct {
	badgeService    services.BadgeService
	logger          *zap.Logger
	responseBuilder *response.Builder
}

// NewBadgeController creates a new badge controller
func NewBadgeController(
	badgeService services.BadgeService,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *BadgeController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgeController{
		badgeService:    badgeService,
		logger:          logger,
		responseBuilder: responseBuilder,
	}
}

// RegisterRoutes mounts the badge endpoints on the given router
func (c *BadgeController) RegisterRoutes(r *mux.Router) {
	r.NotFoundHandler = c.responseBuilder.NotFoundHandler()
	r.MethodNotAllowedHandler = c.responseBuilder.MethodNotAllowedHandler()

	r.HandleFunc("", c.ListBadges).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard", c.GetLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/check/{badgeID:[0-9]+}", c.CheckBadge).Methods(http.MethodPost)
	r.HandleFunc("/check-all/{userID:[0-9]+}", c.CheckAllBadges).Methods(http.MethodPost)
	r.HandleFunc("/users/{userID:[0-9]+}", c.ListUserBadges).Methods(http.MethodGet)
	r.HandleFunc("/users/{userID:[0-9]+}/progress", c.GetProgress).Methods(http.MethodGet)
}

// ===============================
// AWARDING
// ===============================

// CheckBadge handles POST /api/v1/badges/check/{badgeID}
func (c *BadgeController) CheckBadge(w http.ResponseWriter, r *http.Request) {
	badgeID, err := pathID(r, "badgeID")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.InvalidInputError("badge_id", "must be a positive integer"))
		return
	}

	var req CheckBadgeRequest
	if err := decodeJSON(r, &req); err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("Invalid request body format", err))
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("Invalid check request", err))
		return
	}

	result, err := c.badgeService.CheckBadge(r.Context(), req.UserID, badgeID)
	if err != nil {
		c.handleServiceError(w, r, err, "check badge")
		return
	}

	if result.Awarded {
		contextutils.Logger(r.Context(), c.logger).Info("Badge awarded via API",
			zap.Int64("user_id", req.UserID),
			zap.Int64("badge_id", badgeID),
		)
	}

	c.responseBuilder.WriteSuccess(w, r, result)
}

// CheckAllBadges handles POST /api/v1/badges/check-all/{userID}
func (c *BadgeController) CheckAllBadges(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.InvalidInputError("user_id", "must be a positive integer"))
		return
	}

	awarded, err := c.badgeService.CheckAllBadges(r.Context(), userID)
	if err != nil {
		c.handleServiceError(w, r, err, "check all badges")
		return
	}

	c.responseBuilder.WriteList(w, r, awarded, len(awarded))
}

// ===============================
// QUERIES
// ===============================

// ListBadges handles GET /api/v1/badges
func (c *BadgeController) ListBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := c.badgeService.ListBadges(r.Context())
	if err != nil {
		c.handleServiceError(w, r, err, "list badges")
		return
	}
	c.responseBuilder.WriteList(w, r, badges, len(badges))
}

// ListUserBadges handles GET /api/v1/badges/users/{userID}
func (c *BadgeController) ListUserBadges(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.InvalidInputError("user_id", "must be a positive integer"))
		return
	}

	userBadges, err := c.badgeService.ListUserBadges(r.Context(), userID)
	if err != nil {
		c.handleServiceError(w, r, err, "list user badges")
		return
	}
	c.responseBuilder.WriteList(w, r, userBadges, len(userBadges))
}

// GetProgress handles GET /api/v1/badges/users/{userID}/progress
func (c *BadgeController) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.InvalidInputError("user_id", "must be a positive integer"))
		return
	}

	progress, err := c.badgeService.GetProgress(r.Context(), userID)
	if err != nil {
		c.handleServiceError(w, r, err, "get badge progress")
		return
	}
	c.responseBuilder.WriteList(w, r, progress, len(progress))
}

// GetLeaderboard handles GET /api/v1/badges/leaderboard?limit=N
func (c *BadgeController) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.responseBuilder.WriteError(w, r, services.InvalidInputError("limit", "must be a positive integer"))
			return
		}
		limit = parsed
	}

	entries, err := c.badgeService.GetLeaderboard(r.Context(), limit)
	if err != nil {
		c.handleServiceError(w, r, err, "get leaderboard")
		return
	}
	c.responseBuilder.WriteList(w, r, entries, len(entries))
}

// ===============================
// HELPERS
// ===============================

func (c *BadgeController) handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	contextutils.Logger(r.Context(), c.logger).Debug("Badge operation failed",
		zap.String("operation", operation),
		zap.Error(err),
	)
	c.responseBuilder.WriteError(w, r, err)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("id must be positive")
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}
