// file: internal/repositories/interfaces.go
package repositories

import (
	"context"
	"errors"

	"badgehub/internal/models"
)

// ErrDuplicate is returned when an insert hits a unique constraint
var ErrDuplicate = errors.New("duplicate record")

// ===============================
// BADGE REPOSITORY INTERFACES
// ===============================

// BadgeRepository defines the contract for badge catalog storage
type BadgeRepository interface {
	// List returns every badge, rarest first then by display order
	List(ctx context.Context) ([]*models.Badge, error)
	GetByID(ctx context.Context, id int64) (*models.Badge, error)
	GetByName(ctx context.Context, name string) (*models.Badge, error)

	// Upsert inserts or updates a badge keyed by name
	Upsert(ctx context.Context, badge *models.Badge) (created bool, err error)
	// UpsertAll applies Upsert for every badge in a single transaction
	UpsertAll(ctx context.Context, badges []*models.Badge) (*UpsertResult, error)
}

// UserBadgeRepository defines the contract for the award ledger
type UserBadgeRepository interface {
	Get(ctx context.Context, userID, badgeID int64) (*models.UserBadge, error)
	// Create inserts an award, returning ErrDuplicate if the pair already exists
	Create(ctx context.Context, award *models.UserBadge) error
	ListByUser(ctx context.Context, userID int64) ([]*models.UserBadge, error)
	MarkNotificationSent(ctx context.Context, userID, badgeID int64) error
	Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
}

// MetricsRepository computes the counters badge criteria are judged on
type MetricsRepository interface {
	// GetUserMetrics returns nil without error when the user does not exist
	GetUserMetrics(ctx context.Context, userID int64) (*models.UserMetrics, error)
}

// ActivityRepository appends to the activity feed
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
}

// ===============================
// RESULT TYPES
// ===============================

// UpsertResult summarizes a catalog seed
type UpsertResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}
