package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRarityDefaults(t *testing.T) {
	tests := []struct {
		rarity Rarity
		color  string
		rank   int
	}{
		{RarityCommon, "#A0A0A0", 1},
		{RarityUncommon, "#1EFF00", 2},
		{RarityRare, "#0070DD", 3},
		{RarityLegendary, "#FF8000", 4},
		{Rarity("mythic"), "#FFD700", 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.rarity), func(t *testing.T) {
			assert.Equal(t, tt.color, tt.rarity.DefaultColor())
			assert.Equal(t, tt.rank, tt.rarity.Rank())
		})
	}
}

func TestBadgeApplyDefaults(t *testing.T) {
	b := &Badge{Name: "Commentator"}
	b.ApplyDefaults()
	assert.Equal(t, RarityCommon, b.Rarity)
	assert.Equal(t, "#A0A0A0", b.Color)

	custom := &Badge{Rarity: RarityRare, Color: "#123456"}
	custom.ApplyDefaults()
	assert.Equal(t, "#123456", custom.Color)
}

func TestBadgeValidate(t *testing.T) {
	valid := Badge{
		Name:        "Wordsmith",
		Description: "Publish five articles",
		Icon:        "pen",
		Category:    CategoryContributor,
		Criteria:    Criterion{Type: CriterionArticleCount, Value: 5},
	}
	assert.False(t, valid.Validate().HasErrors())

	future := valid
	future.Criteria.Type = "podcastCount"
	assert.False(t, future.Validate().HasErrors(), "unknown criterion types stay loadable")

	invalid := Badge{
		Category: "fun",
		Rarity:   "mythic",
		Color:    "red",
		Criteria: Criterion{Value: -1},
	}
	errs := invalid.Validate()
	require.True(t, errs.HasErrors())
	for _, field := range []string{"name", "category", "rarity", "color", "criteria.type", "criteria.value"} {
		assert.Len(t, errs.GetField(field), 1, field)
	}
	assert.Contains(t, errs.Error(), "validation failed with 6 errors")
}

func TestCriterionTypeIsKnown(t *testing.T) {
	for _, ct := range CriterionTypes {
		assert.True(t, ct.IsKnown(), ct)
	}
	assert.False(t, CriterionType("karma").IsKnown())
}

func TestJSONMap(t *testing.T) {
	m := JSONMap{"badgeName": "Wordsmith"}
	v, err := m.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"badgeName":"Wordsmith"}`, string(v.([]byte)))

	var scanned JSONMap
	require.NoError(t, scanned.Scan([]byte(`{"badgeIcon":"pen"}`)))
	assert.Equal(t, "pen", scanned["badgeIcon"])

	var empty JSONMap
	require.NoError(t, empty.Scan(nil))
	assert.NotNil(t, empty)

	assert.Error(t, empty.Scan(42))
}
