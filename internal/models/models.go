// file: internal/models/models.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ===============================
// USER STATE
// ===============================

// UserMetrics is a point-in-time view of the counters badges are judged on.
// It is derived on every evaluation and never stored.
type UserMetrics struct {
	UserID    int64     `json:"user_id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Avatar    string    `json:"avatar" db:"avatar"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	FollowerCount int64 `json:"follower_count" db:"follower_count"`
	CommentCount  int64 `json:"comment_count" db:"comment_count"`
	FavoriteCount int64 `json:"favorite_count" db:"favorite_count"`
	ArticleCount  int64 `json:"article_count" db:"article_count"`
	FeaturedCount int64 `json:"featured_count" db:"featured_count"`
	CommentLikes  int64 `json:"comment_likes" db:"comment_likes"`
	Views         int64 `json:"views" db:"views"`
}

// ===============================
// ACTIVITY FEED
// ===============================

const (
	ActivityBadgeEarned   = "badge_earned"
	ActivityArticleViewed = "article_viewed"

	TargetTypeBadge = "Badge"
)

// Activity is an append-only feed entry
type Activity struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	Type       string    `json:"type" db:"type"`
	TargetID   *int64    `json:"target_id,omitempty" db:"target_id"`
	TargetType string    `json:"target_type,omitempty" db:"target_type"`
	Metadata   JSONMap   `json:"metadata" db:"metadata"`
	IsPublic   bool      `json:"is_public" db:"is_public"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ===============================
// CUSTOM TYPES
// ===============================

// JSONMap handles PostgreSQL jsonb columns
type JSONMap map[string]interface{}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
}

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
