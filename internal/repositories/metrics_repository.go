// internal/repositories/metrics_repository.go
package repositories

import (
	"context"
	"fmt"

	"badgehub/internal/database"
	"badgehub/internal/models"

	"go.uber.org/zap"
)

// metricsRepository implements MetricsRepository over the platform tables
type metricsRepository struct {
	*BaseRepository
}

// NewMetricsRepository creates a new instance of MetricsRepository
func NewMetricsRepository(db *database.Manager, logger *zap.Logger) MetricsRepository {
	return &metricsRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// GetUserMetrics computes every counter in one round trip
func (r *metricsRepository) GetUserMetrics(ctx context.Context, userID int64) (*models.UserMetrics, error) {
	query := `
		SELECT
			u.id, u.username, u.avatar, u.created_at,
			(SELECT COUNT(*) FROM follows f WHERE f.following_id = u.id) AS follower_count,
			(SELECT COUNT(*) FROM comments c WHERE c.user_id = u.id) AS comment_count,
			(SELECT COUNT(*) FROM favorites fa WHERE fa.user_id = u.id) AS favorite_count,
			(SELECT COUNT(*) FROM articles a WHERE a.created_by = u.id) AS article_count,
			(SELECT COUNT(*) FROM articles a WHERE a.created_by = u.id AND a.is_featured) AS featured_count,
			(SELECT COUNT(*) FROM comment_likes cl
				INNER JOIN comments c ON c.id = cl.comment_id
				WHERE c.user_id = u.id) AS comment_likes,
			(SELECT COUNT(*) FROM activities ac
				WHERE ac.user_id = u.id AND ac.type = $2) AS views
		FROM users u
		WHERE u.id = $1`

	var m models.UserMetrics
	err := r.QueryRowContext(ctx, query, userID, models.ActivityArticleViewed).Scan(
		&m.UserID, &m.Username, &m.Avatar, &m.CreatedAt,
		&m.FollowerCount, &m.CommentCount, &m.FavoriteCount,
		&m.ArticleCount, &m.FeaturedCount, &m.CommentLikes, &m.Views,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user metrics: %w", err)
	}

	return &m, nil
}
