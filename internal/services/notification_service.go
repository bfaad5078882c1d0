package services

import (
	"context"
	"fmt"
	"time"

	"badgehub/internal/events"

	"go.uber.org/zap"
)

// Notifier pushes a message to a user's live connections. It reports whether
// at least one connection accepted the message.
type Notifier interface {
	SendToUser(userID int64, message interface{}) bool
}

// BadgeNotification is the payload pushed to clients when a badge is earned
type BadgeNotification struct {
	Type      string    `json:"type"`
	BadgeID   int64     `json:"badge_id"`
	BadgeName string    `json:"badge_name"`
	BadgeIcon string    `json:"badge_icon"`
	Rarity    string    `json:"rarity"`
	Color     string    `json:"color"`
	EarnedAt  time.Time `json:"earned_at"`
}

// NotificationService forwards badge awards to connected users
type NotificationService struct {
	notifier Notifier
	badges   BadgeService
	logger   *zap.Logger
	handler  events.EventHandler
}

// NewNotificationService creates a notification service
func NewNotificationService(notifier Notifier, badges BadgeService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &NotificationService{notifier: notifier, badges: badges, logger: logger}
	n.handler = events.NewTypedEventHandler("notification_service.badge_earned", n.HandleBadgeEarned)
	return n
}

// Register subscribes the service to badge earned events
func (n *NotificationService) Register(bus events.EventBus) error {
	if err := bus.Subscribe(events.EventTypeBadgeEarned, n.handler); err != nil {
		return fmt.Errorf("failed to subscribe notification service: %w", err)
	}
	return nil
}

// Unregister stops pushing badge earned events to the notifier
func (n *NotificationService) Unregister(bus events.EventBus) error {
	if err := bus.Unsubscribe(events.EventTypeBadgeEarned, n.handler); err != nil {
		return fmt.Errorf("failed to unsubscribe notification service: %w", err)
	}
	return nil
}

// HandleBadgeEarned pushes the award to the user. The award is flagged as
// notified only when a live connection took the message; otherwise it stays
// pending for the next time the client lists its badges.
func (n *NotificationService) HandleBadgeEarned(ctx context.Context, event *events.BadgeEarnedEvent) error {
	userID := event.GetUserID()
	if userID == nil {
		return fmt.Errorf("badge earned event %s has no user", event.GetEventID())
	}

	delivered := n.notifier.SendToUser(*userID, &BadgeNotification{
		Type:      events.EventTypeBadgeEarned,
		BadgeID:   event.BadgeID,
		BadgeName: event.BadgeName,
		BadgeIcon: event.BadgeIcon,
		Rarity:    string(event.Rarity),
		Color:     event.Color,
		EarnedAt:  event.EarnedAt,
	})
	if !delivered {
		n.logger.Debug("No live connection for badge notification",
			zap.Int64("user_id", *userID),
			zap.Int64("badge_id", event.BadgeID),
		)
		return nil
	}

	return n.badges.MarkNotified(ctx, *userID, event.BadgeID)
}
