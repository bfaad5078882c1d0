package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"badgehub/internal/cache"
	"badgehub/internal/models"
	"badgehub/internal/repositories"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// ===============================
// IN-MEMORY REPOSITORIES
// ===============================

type fakeBadgeRepo struct {
	mu     sync.Mutex
	badges []*models.Badge
	nextID int64
	err    error
}

func newFakeBadgeRepo(badges ...*models.Badge) *fakeBadgeRepo {
	r := &fakeBadgeRepo{}
	for _, b := range badges {
		if b.ID > r.nextID {
			r.nextID = b.ID
		}
		r.badges = append(r.badges, b)
	}
	return r
}

func (r *fakeBadgeRepo) List(ctx context.Context) ([]*models.Badge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*models.Badge, len(r.badges))
	copy(out, r.badges)
	return out, nil
}

func (r *fakeBadgeRepo) GetByID(ctx context.Context, id int64) (*models.Badge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, b := range r.badges {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, nil
}

func (r *fakeBadgeRepo) GetByName(ctx context.Context, name string) (*models.Badge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.badges {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, nil
}

func (r *fakeBadgeRepo) Upsert(ctx context.Context, badge *models.Badge) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	badge.ApplyDefaults()
	for i, b := range r.badges {
		if b.Name == badge.Name {
			badge.ID = b.ID
			r.badges[i] = badge
			return false, nil
		}
	}
	r.nextID++
	badge.ID = r.nextID
	r.badges = append(r.badges, badge)
	return true, nil
}

func (r *fakeBadgeRepo) UpsertAll(ctx context.Context, badges []*models.Badge) (*repositories.UpsertResult, error) {
	result := &repositories.UpsertResult{}
	for _, b := range badges {
		created, err := r.Upsert(ctx, b)
		if err != nil {
			return nil, err
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	return result, nil
}

type awardKey struct{ userID, badgeID int64 }

type fakeUserBadgeRepo struct {
	mu        sync.Mutex
	rows      map[awardKey]*models.UserBadge
	nextID    int64
	createErr error
	getErr    error
	creates   int
	notified  []awardKey
}

func newFakeUserBadgeRepo() *fakeUserBadgeRepo {
	return &fakeUserBadgeRepo{rows: make(map[awardKey]*models.UserBadge)}
}

func (r *fakeUserBadgeRepo) Get(ctx context.Context, userID, badgeID int64) (*models.UserBadge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	if row, ok := r.rows[awardKey{userID, badgeID}]; ok {
		clone := *row
		return &clone, nil
	}
	return nil, nil
}

// Create enforces the (user, badge) uniqueness the database constraint provides
func (r *fakeUserBadgeRepo) Create(ctx context.Context, award *models.UserBadge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	key := awardKey{award.UserID, award.BadgeID}
	if _, exists := r.rows[key]; exists {
		return repositories.ErrDuplicate
	}
	r.nextID++
	award.ID = r.nextID
	award.EarnedAt = testNow
	clone := *award
	r.rows[key] = &clone
	return nil
}

func (r *fakeUserBadgeRepo) ListByUser(ctx context.Context, userID int64) ([]*models.UserBadge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.UserBadge, 0)
	for key, row := range r.rows {
		if key.userID == userID {
			clone := *row
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BadgeID < out[j].BadgeID })
	return out, nil
}

func (r *fakeUserBadgeRepo) MarkNotificationSent(ctx context.Context, userID, badgeID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := awardKey{userID, badgeID}
	if row, ok := r.rows[key]; ok {
		row.NotificationSent = true
	}
	r.notified = append(r.notified, key)
	return nil
}

func (r *fakeUserBadgeRepo) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[int64]int)
	for key := range r.rows {
		counts[key.userID]++
	}
	entries := make([]*models.LeaderboardEntry, 0, len(counts))
	for userID, count := range counts {
		entries = append(entries, &models.LeaderboardEntry{UserID: userID, BadgeCount: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].BadgeCount != entries[j].BadgeCount {
			return entries[i].BadgeCount > entries[j].BadgeCount
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i, e := range entries {
		e.Rank = i + 1
	}
	return entries, nil
}

func (r *fakeUserBadgeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeMetricsRepo struct {
	mu    sync.Mutex
	users map[int64]*models.UserMetrics
	err   error
	calls int
}

func newFakeMetricsRepo(users ...*models.UserMetrics) *fakeMetricsRepo {
	r := &fakeMetricsRepo{users: make(map[int64]*models.UserMetrics)}
	for _, u := range users {
		r.users[u.UserID] = u
	}
	return r
}

func (r *fakeMetricsRepo) GetUserMetrics(ctx context.Context, userID int64) (*models.UserMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if m, ok := r.users[userID]; ok {
		clone := *m
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeMetricsRepo) set(m *models.UserMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[m.UserID] = m
}

type fakeActivityRepo struct {
	mu    sync.Mutex
	items []*models.Activity
	err   error
}

func (r *fakeActivityRepo) Create(ctx context.Context, activity *models.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.items = append(r.items, activity)
	return nil
}

func (r *fakeActivityRepo) all() []*models.Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Activity, len(r.items))
	copy(out, r.items)
	return out
}

// ===============================
// FIXTURES
// ===============================

type serviceFixture struct {
	service    BadgeService
	badges     *fakeBadgeRepo
	userBadges *fakeUserBadgeRepo
	metrics    *fakeMetricsRepo
	activities *fakeActivityRepo
	cache      cache.Cache
}

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c := cache.NewMemoryCache(&cache.Config{TTL: time.Minute, MaxKeys: 100, CleanupInterval: time.Hour}, zap.NewNop())
	t.Cleanup(func() { c.Close() })
	return c
}

func newServiceFixture(t *testing.T, badges []*models.Badge, users ...*models.UserMetrics) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		badges:     newFakeBadgeRepo(badges...),
		userBadges: newFakeUserBadgeRepo(),
		metrics:    newFakeMetricsRepo(users...),
		activities: &fakeActivityRepo{},
		cache:      newTestCache(t),
	}

	evaluator := NewEvaluator(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	evaluator.now = func() time.Time { return testNow }

	service, err := NewBadgeService(BadgeServiceDeps{
		Badges:     f.badges,
		UserBadges: f.userBadges,
		Metrics:    f.metrics,
		Activities: f.activities,
		Cache:      f.cache,
		Evaluator:  evaluator,
	}, &BadgeServiceConfig{EvalConcurrency: 3}, zap.NewNop())
	require.NoError(t, err)

	f.service = service
	return f
}

func badge(id int64, name string, t models.CriterionType, value int) *models.Badge {
	return &models.Badge{
		ID:          id,
		Name:        name,
		Description: name + " badge",
		Icon:        "star",
		Category:    models.CategoryMilestone,
		Rarity:      models.RarityCommon,
		Color:       models.RarityCommon.DefaultColor(),
		Criteria:    models.Criterion{Type: t, Value: value},
	}
}

func user(id int64) *models.UserMetrics {
	return &models.UserMetrics{
		UserID:    id,
		Username:  "user",
		CreatedAt: testNow.Add(-30 * day),
	}
}

var errStorage = errors.New("connection refused")
