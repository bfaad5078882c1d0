package events

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"badgehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestBus(t *testing.T) EventBus {
	t.Helper()
	bus := NewInMemoryEventBus(&EventBusConfig{BufferSize: 10, WorkerCount: 2, HandlerTimeout: time.Second}, zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Stop(ctx)
	})
	return bus
}

func testBadge() *models.Badge {
	return &models.Badge{ID: 3, Name: "Wordsmith", Icon: "pen", Rarity: models.RarityRare, Color: "#0070DD"}
}

func TestPublishDeliversTypedEvent(t *testing.T) {
	bus := newTestBus(t)

	var got *BadgeEarnedEvent
	handler := NewTypedEventHandler("capture", func(ctx context.Context, e *BadgeEarnedEvent) error {
		got = e
		return nil
	})
	require.NoError(t, bus.Subscribe(EventTypeBadgeEarned, handler))

	earned := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, bus.Publish(context.Background(), NewBadgeEarnedEvent(7, testBadge(), earned)))

	require.NotNil(t, got)
	assert.Equal(t, int64(7), *got.GetUserID())
	assert.Equal(t, "Wordsmith", got.BadgeName)
	assert.Equal(t, earned, got.EarnedAt)
	assert.True(t, strings.HasPrefix(got.GetEventID(), "evt_"))

	stats := bus.Stats()
	assert.Equal(t, int64(1), stats.EventsPublished)
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, 1, stats.HandlersCount)
}

func TestPublishReportsHandlerFailures(t *testing.T) {
	bus := newTestBus(t)

	require.NoError(t, bus.Subscribe(EventTypeBadgeEarned, NewEventHandlerFunc("fails", func(ctx context.Context, e Event) error {
		return errors.New("socket closed")
	})))
	require.NoError(t, bus.SubscribePattern("badge.*", NewEventHandlerFunc("panics", func(ctx context.Context, e Event) error {
		panic("boom")
	})))

	err := bus.Publish(context.Background(), NewBadgeEarnedEvent(7, testBadge(), time.Now()))
	assert.EqualError(t, err, "failed to execute 2 out of 2 handlers")
	assert.Equal(t, int64(1), bus.Stats().EventsFailed)
}

func TestTypedHandlerRejectsOtherEvents(t *testing.T) {
	handler := NewTypedEventHandler("typed", func(ctx context.Context, e *BadgeEarnedEvent) error {
		return nil
	})
	err := handler.Handle(context.Background(), NewCatalogSeededEvent(1, 0))
	assert.ErrorContains(t, err, "event type mismatch")
}

func TestPublishAsyncProcessedByWorkers(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.Start(context.Background()))

	var count int64
	require.NoError(t, bus.Subscribe(EventTypeCatalogSeeded, NewEventHandlerFunc("count", func(ctx context.Context, e Event) error {
		atomic.AddInt64(&count, 1)
		return nil
	})))

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.PublishAsync(ctx, NewCatalogSeededEvent(i, 0)))
	}
	cancel()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&count) == 5
	}, time.Second, 10*time.Millisecond, "handlers run even after the publisher's context ends")
}

func TestPublishAsyncAfterStop(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Stop(context.Background()))

	err := bus.PublishAsync(context.Background(), NewCatalogSeededEvent(1, 0))
	assert.ErrorIs(t, err, ErrBusStopped)
	assert.ErrorIs(t, bus.Health(), ErrBusStopped)
}

func TestUnsubscribe(t *testing.T) {
	bus := newTestBus(t)
	handler := NewEventHandlerFunc("h", func(ctx context.Context, e Event) error { return nil })

	require.NoError(t, bus.Subscribe(EventTypeBadgeEarned, handler))
	require.NoError(t, bus.Unsubscribe(EventTypeBadgeEarned, handler))
	assert.Error(t, bus.Unsubscribe(EventTypeBadgeEarned, handler))
	assert.Equal(t, 0, bus.Stats().HandlersCount)
}

func TestMatchesPattern(t *testing.T) {
	assert.True(t, matchesPattern("badge.earned", "*"))
	assert.True(t, matchesPattern("badge.earned", "badge.*"))
	assert.False(t, matchesPattern("user.created", "badge.*"))
	assert.True(t, matchesPattern("badge.earned", "badge.earned"))
}

func TestAuditHandlerLogsBadgeEvents(t *testing.T) {
	bus := newTestBus(t)
	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, bus.SubscribePattern(BadgeEventPattern, NewAuditHandler("audit", zap.New(core))))

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, NewBadgeEarnedEvent(7, testBadge(), time.Now())))
	require.NoError(t, bus.Publish(ctx, NewCatalogSeededEvent(2, 1)))

	entries := logs.FilterMessage("Badge event").All()
	require.Len(t, entries, 2)

	earned := entries[0].ContextMap()
	assert.Equal(t, EventTypeBadgeEarned, earned["event_type"])
	assert.Equal(t, int64(7), earned["user_id"])

	seeded := entries[1].ContextMap()
	assert.Equal(t, EventTypeCatalogSeeded, seeded["event_type"])
	assert.NotContains(t, seeded, "user_id")
}
