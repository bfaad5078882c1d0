package services

import (
	"context"
	"sync"
	"testing"

	"badgehub/internal/events"
	"badgehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu       sync.Mutex
	online   map[int64]bool
	messages map[int64][]interface{}
}

func (n *recordingNotifier) SendToUser(userID int64, message interface{}) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.online[userID] {
		return false
	}
	if n.messages == nil {
		n.messages = make(map[int64][]interface{})
	}
	n.messages[userID] = append(n.messages[userID], message)
	return true
}

func TestNotificationService_DeliversAndMarksSent(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, []*models.Badge{badge(1, "b1", models.CriterionArticleCount, 0)}, user(1), user(2))

	_, err := f.service.CheckBadge(ctx, 1, 1)
	require.NoError(t, err)
	_, err = f.service.CheckBadge(ctx, 2, 1)
	require.NoError(t, err)

	notifier := &recordingNotifier{online: map[int64]bool{1: true}}
	service := NewNotificationService(notifier, f.service, zap.NewNop())

	b1 := badge(1, "b1", models.CriterionArticleCount, 0)
	require.NoError(t, service.HandleBadgeEarned(ctx, events.NewBadgeEarnedEvent(1, b1, testNow)))
	require.NoError(t, service.HandleBadgeEarned(ctx, events.NewBadgeEarnedEvent(2, b1, testNow)))

	require.Len(t, notifier.messages[1], 1)
	msg := notifier.messages[1][0].(*BadgeNotification)
	assert.Equal(t, events.EventTypeBadgeEarned, msg.Type)
	assert.Equal(t, "b1", msg.BadgeName)
	assert.Equal(t, testNow, msg.EarnedAt)

	assert.Equal(t, []awardKey{{1, 1}}, f.userBadges.notified, "offline users stay pending")
}

func TestNotificationService_RejectsEventWithoutUser(t *testing.T) {
	service := NewNotificationService(&recordingNotifier{}, nil, nil)
	event := &events.BadgeEarnedEvent{BaseEvent: events.BaseEvent{EventID: "evt_1", EventType: events.EventTypeBadgeEarned}}

	assert.ErrorContains(t, service.HandleBadgeEarned(context.Background(), event), "has no user")
}

func TestNotificationService_RegisterAndUnregister(t *testing.T) {
	ctx := context.Background()
	b1 := badge(1, "b1", models.CriterionArticleCount, 0)
	f := newServiceFixture(t, []*models.Badge{b1}, user(1))
	_, err := f.service.CheckBadge(ctx, 1, 1)
	require.NoError(t, err)

	bus := events.NewInMemoryEventBus(events.DefaultEventBusConfig(), zap.NewNop())
	notifier := &recordingNotifier{online: map[int64]bool{1: true}}
	service := NewNotificationService(notifier, f.service, zap.NewNop())

	require.NoError(t, service.Register(bus))
	require.NoError(t, bus.Publish(ctx, events.NewBadgeEarnedEvent(1, b1, testNow)))
	require.Len(t, notifier.messages[1], 1)

	require.NoError(t, service.Unregister(bus))
	require.NoError(t, bus.Publish(ctx, events.NewBadgeEarnedEvent(1, b1, testNow)))
	assert.Len(t, notifier.messages[1], 1, "no delivery after unregister")

	assert.ErrorContains(t, service.Unregister(bus), "handler not found")
}
