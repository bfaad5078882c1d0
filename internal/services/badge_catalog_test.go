package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"badgehub/internal/events"
	"badgehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validCatalog = `
badges:
  - name: First Steps
    description: Publish your first article
    icon: feather
    category: contributor
    criteria:
      type: articleCount
      value: 1
  - name: Pioneer
    description: Joined in the first month
    icon: rocket
    category: milestone
    rarity: legendary
    order: 2
    criteria:
      type: earlyUser
      value: 30
  - name: Crowd Favorite
    description: Get 100 comment likes
    icon: heart
    category: community
    rarity: rare
    color: "#AA00FF"
    order: 1
    criteria:
      type: commentLikes
      value: 100
`

func TestLoadCatalog(t *testing.T) {
	badges, err := LoadCatalog(strings.NewReader(validCatalog))
	require.NoError(t, err)
	require.Len(t, badges, 3)

	first := badges[0]
	assert.Equal(t, "First Steps", first.Name)
	assert.Equal(t, models.RarityCommon, first.Rarity, "rarity defaults to common")
	assert.Equal(t, "#A0A0A0", first.Color)
	assert.Equal(t, models.Criterion{Type: models.CriterionArticleCount, Value: 1}, first.Criteria)

	assert.Equal(t, "#FF8000", badges[1].Color)
	assert.Equal(t, "#AA00FF", badges[2].Color, "explicit colors are kept")
	assert.Equal(t, 1, badges[2].DisplayOrder)
}

func TestLoadCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"empty", "", "badge catalog is empty"},
		{"no badges", "badges: []\n", "badge catalog is empty"},
		{"unknown field", "badges:\n  - name: A\n    points: 3\n", "failed to decode"},
		{
			"duplicate names",
			`badges:
  - {name: A, description: d, icon: i, category: milestone, criteria: {type: views, value: 1}}
  - {name: A, description: d, icon: i, category: milestone, criteria: {type: views, value: 2}}
`,
			`name "A" already used by badge #1`,
		},
		{
			"bad category",
			`badges:
  - {name: A, description: d, icon: i, category: gaming, criteria: {type: views, value: 1}}
`,
			"category",
		},
		{
			"negative threshold",
			`badges:
  - {name: A, description: d, icon: i, category: milestone, criteria: {type: views, value: -1}}
`,
			"criteria.value",
		},
		{
			"missing description",
			`badges:
  - {name: A, icon: i, category: milestone, criteria: {type: views, value: 1}}
`,
			"Description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadCatalog_AcceptsUnknownCriterionTypes(t *testing.T) {
	input := `badges:
  - {name: Streak, description: d, icon: i, category: engagement, criteria: {type: streakDays, value: 7}}
`
	badges, err := LoadCatalog(strings.NewReader(input))
	require.NoError(t, err)
	assert.False(t, badges[0].Criteria.Type.IsKnown())
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badges.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validCatalog), 0o600))

	badges, err := LoadCatalogFile(path)
	require.NoError(t, err)
	assert.Len(t, badges, 3)

	_, err = LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read badge catalog")
}

func TestSortCatalog(t *testing.T) {
	badges, err := LoadCatalog(strings.NewReader(validCatalog))
	require.NoError(t, err)

	SortCatalog(badges)

	names := make([]string, len(badges))
	for i, b := range badges {
		names[i] = b.Name
	}
	assert.Equal(t, []string{"Pioneer", "Crowd Favorite", "First Steps"}, names)
}

func TestCatalogSeeder_SeedIsIdempotentAndRefreshesCache(t *testing.T) {
	ctx := context.Background()

	bus := events.NewInMemoryEventBus(&events.EventBusConfig{BufferSize: 10, WorkerCount: 1, HandlerTimeout: time.Second}, zap.NewNop())
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	repo := newFakeBadgeRepo()
	service, err := NewBadgeService(BadgeServiceDeps{
		Badges:     repo,
		UserBadges: newFakeUserBadgeRepo(),
		Metrics:    newFakeMetricsRepo(),
		Cache:      newTestCache(t),
		EventBus:   bus,
	}, nil, zap.NewNop())
	require.NoError(t, err)

	listed, err := service.ListBadges(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)

	seeder := NewCatalogSeeder(repo, bus, zap.NewNop())

	badges, err := LoadCatalog(strings.NewReader(validCatalog))
	require.NoError(t, err)
	result, err := seeder.Seed(ctx, badges)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 0, result.Updated)

	listed, err = service.ListBadges(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 3, "seeding invalidates the cached catalog")

	badges, err = LoadCatalog(strings.NewReader(validCatalog))
	require.NoError(t, err)
	result, err = seeder.Seed(ctx, badges)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 3, result.Updated)

	listed, err = service.ListBadges(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestCatalogSeeder_StorageFailure(t *testing.T) {
	repo := newFakeBadgeRepo()
	repo.err = errStorage

	_, err := NewCatalogSeeder(repo, nil, nil).Seed(context.Background(), []*models.Badge{badge(0, "a", models.CriterionViews, 1)})
	assert.ErrorIs(t, err, errStorage)
}
