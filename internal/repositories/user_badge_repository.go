// internal/repositories/user_badge_repository.go
package repositories

import (
	"context"
	"fmt"

	"badgehub/internal/database"
	"badgehub/internal/models"

	"go.uber.org/zap"
)

// userBadgeRepository implements UserBadgeRepository
type userBadgeRepository struct {
	*BaseRepository
}

// NewUserBadgeRepository creates a new instance of UserBadgeRepository
func NewUserBadgeRepository(db *database.Manager, logger *zap.Logger) UserBadgeRepository {
	return &userBadgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Get returns the award for a pair or nil when the user does not hold the badge
func (r *userBadgeRepository) Get(ctx context.Context, userID, badgeID int64) (*models.UserBadge, error) {
	query := `
		SELECT id, user_id, badge_id, earned_at, progress, notification_sent
		FROM user_badges
		WHERE user_id = $1 AND badge_id = $2`

	var ub models.UserBadge
	err := r.QueryRowContext(ctx, query, userID, badgeID).Scan(
		&ub.ID, &ub.UserID, &ub.BadgeID, &ub.EarnedAt, &ub.Progress, &ub.NotificationSent,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user badge: %w", err)
	}
	return &ub, nil
}

// Create inserts an award. The unique (user_id, badge_id) constraint decides
// concurrent races; the loser gets ErrDuplicate.
func (r *userBadgeRepository) Create(ctx context.Context, award *models.UserBadge) error {
	query := `
		INSERT INTO user_badges (user_id, badge_id, progress)
		VALUES ($1, $2, $3)
		RETURNING id, earned_at, notification_sent`

	err := r.QueryRowContext(ctx, query, award.UserID, award.BadgeID, award.Progress).Scan(
		&award.ID, &award.EarnedAt, &award.NotificationSent,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.GetLogger().Error("Failed to create user badge",
			zap.Error(err),
			zap.Int64("user_id", award.UserID),
			zap.Int64("badge_id", award.BadgeID),
		)
		return fmt.Errorf("failed to create user badge: %w", err)
	}
	return nil
}

// ListByUser returns a user's badges with definitions, newest first
func (r *userBadgeRepository) ListByUser(ctx context.Context, userID int64) ([]*models.UserBadge, error) {
	query := `
		SELECT
			ub.id, ub.user_id, ub.badge_id, ub.earned_at, ub.progress, ub.notification_sent,` + badgeColumns + `
		FROM user_badges ub
		INNER JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY ub.earned_at DESC, ub.id DESC`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user badges: %w", err)
	}
	defer rows.Close()

	var awards []*models.UserBadge
	for rows.Next() {
		var ub models.UserBadge
		var b models.Badge
		err := rows.Scan(
			&ub.ID, &ub.UserID, &ub.BadgeID, &ub.EarnedAt, &ub.Progress, &ub.NotificationSent,
			&b.ID, &b.Name, &b.Description, &b.Icon, &b.Category, &b.Rarity, &b.Color,
			&b.DisplayOrder, &b.Criteria.Type, &b.Criteria.Value, &b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user badge: %w", err)
		}
		ub.Badge = &b
		awards = append(awards, &ub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user badges: %w", err)
	}

	return awards, nil
}

// MarkNotificationSent flags an award as delivered to the user
func (r *userBadgeRepository) MarkNotificationSent(ctx context.Context, userID, badgeID int64) error {
	query := `
		UPDATE user_badges SET notification_sent = true
		WHERE user_id = $1 AND badge_id = $2 AND notification_sent = false`

	if _, err := r.ExecContext(ctx, query, userID, badgeID); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// Leaderboard ranks users by number of badges held
func (r *userBadgeRepository) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT u.id, u.username, u.avatar, COUNT(ub.id) AS badge_count, MAX(ub.earned_at) AS last_earned_at
		FROM user_badges ub
		INNER JOIN users u ON u.id = ub.user_id
		GROUP BY u.id, u.username, u.avatar
		ORDER BY badge_count DESC, last_earned_at ASC, u.id ASC
		LIMIT $1`

	rows, err := r.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get badge leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Avatar, &e.BadgeCount, &e.LastEarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leaderboard: %w", err)
	}

	return entries, nil
}
