package events

import (
	"context"
	"time"

	"badgehub/internal/models"

	"go.uber.org/zap"
)

const (
	EventTypeBadgeEarned   = "badge.earned"
	EventTypeCatalogSeeded = "badge.catalog_seeded"

	// BadgeEventPattern matches every badge event type
	BadgeEventPattern = "badge.*"
)

// BadgeEarnedEvent is published after a new award row is committed
type BadgeEarnedEvent struct {
	BaseEvent
	BadgeID   int64         `json:"badge_id"`
	BadgeName string        `json:"badge_name"`
	BadgeIcon string        `json:"badge_icon"`
	Rarity    models.Rarity `json:"rarity"`
	Color     string        `json:"color"`
	EarnedAt  time.Time     `json:"earned_at"`
}

// CatalogSeededEvent is published after badge definitions are upserted
type CatalogSeededEvent struct {
	BaseEvent
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// NewBadgeEarnedEvent creates a badge earned event
func NewBadgeEarnedEvent(userID int64, badge *models.Badge, earnedAt time.Time) *BadgeEarnedEvent {
	return &BadgeEarnedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventTypeBadgeEarned,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		BadgeID:   badge.ID,
		BadgeName: badge.Name,
		BadgeIcon: badge.Icon,
		Rarity:    badge.Rarity,
		Color:     badge.Color,
		EarnedAt:  earnedAt,
	}
}

// NewCatalogSeededEvent creates a catalog seeded event
func NewCatalogSeededEvent(created, updated int) *CatalogSeededEvent {
	return &CatalogSeededEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventTypeCatalogSeeded,
			Timestamp: time.Now(),
		},
		Created: created,
		Updated: updated,
	}
}

// NewAuditHandler logs every event it receives
func NewAuditHandler(id string, logger *zap.Logger) EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewEventHandlerFunc(id, func(ctx context.Context, event Event) error {
		fields := []zap.Field{
			zap.String("event_id", event.GetEventID()),
			zap.String("event_type", event.GetEventType()),
			zap.Time("timestamp", event.GetTimestamp()),
		}
		if userID := event.GetUserID(); userID != nil {
			fields = append(fields, zap.Int64("user_id", *userID))
		}
		logger.Info("Badge event", fields...)
		return nil
	})
}
