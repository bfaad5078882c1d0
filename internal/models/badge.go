package models

import "time"

// CriterionType identifies the user metric a badge is judged on
type CriterionType string

const (
	CriterionFollowerCount CriterionType = "followerCount"
	CriterionCommentCount  CriterionType = "commentCount"
	CriterionFavoriteCount CriterionType = "favoriteCount"
	CriterionArticleCount  CriterionType = "articleCount"
	CriterionDaysActive    CriterionType = "daysActive"
	CriterionCommentLikes  CriterionType = "commentLikes"
	CriterionFeatured      CriterionType = "featured"
	CriterionEarlyUser     CriterionType = "earlyUser"
	CriterionViews         CriterionType = "views"
)

// CriterionTypes lists every criterion type the evaluator understands
var CriterionTypes = []CriterionType{
	CriterionFollowerCount,
	CriterionCommentCount,
	CriterionFavoriteCount,
	CriterionArticleCount,
	CriterionDaysActive,
	CriterionCommentLikes,
	CriterionFeatured,
	CriterionEarlyUser,
	CriterionViews,
}

// IsKnown reports whether the evaluator has a rule for this type
func (t CriterionType) IsKnown() bool {
	for _, known := range CriterionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// BadgeCategory groups badges for display
type BadgeCategory string

const (
	CategoryEngagement  BadgeCategory = "engagement"
	CategoryContributor BadgeCategory = "contributor"
	CategoryCommunity   BadgeCategory = "community"
	CategoryMilestone   BadgeCategory = "milestone"
)

// IsValid reports whether the category is one of the defined groups
func (c BadgeCategory) IsValid() bool {
	switch c {
	case CategoryEngagement, CategoryContributor, CategoryCommunity, CategoryMilestone:
		return true
	}
	return false
}

// Rarity ranks how hard a badge is to earn
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

// Rank orders rarities from common (1) to legendary (4); unknown is 0
func (r Rarity) Rank() int {
	switch r {
	case RarityCommon:
		return 1
	case RarityUncommon:
		return 2
	case RarityRare:
		return 3
	case RarityLegendary:
		return 4
	}
	return 0
}

// IsValid reports whether the rarity is one of the defined tiers
func (r Rarity) IsValid() bool {
	return r.Rank() > 0
}

// DefaultColor returns the display color used when a badge sets none
func (r Rarity) DefaultColor() string {
	switch r {
	case RarityCommon:
		return "#A0A0A0"
	case RarityUncommon:
		return "#1EFF00"
	case RarityRare:
		return "#0070DD"
	case RarityLegendary:
		return "#FF8000"
	}
	return "#FFD700"
}

// Criterion is the rule a user must meet to earn a badge
type Criterion struct {
	Type  CriterionType `json:"type" yaml:"type" db:"criteria_type"`
	Value int           `json:"value" yaml:"value" db:"criteria_value"`
}

// Badge represents an achievement badge that users can earn
// by reaching certain milestones.
type Badge struct {
	ID           int64         `json:"id" yaml:"-" db:"id"`
	Name         string        `json:"name" yaml:"name" db:"name" validate:"required,max=100"`
	Description  string        `json:"description" yaml:"description" db:"description" validate:"required"`
	Icon         string        `json:"icon" yaml:"icon" db:"icon" validate:"required,max=100"`
	Category     BadgeCategory `json:"category" yaml:"category" db:"category" validate:"required"`
	Rarity       Rarity        `json:"rarity" yaml:"rarity" db:"rarity"`
	Color        string        `json:"color" yaml:"color" db:"color" validate:"omitempty,hexcolor"`
	DisplayOrder int           `json:"display_order" yaml:"order" db:"display_order"`
	Criteria     Criterion     `json:"criteria" yaml:"criteria"`
	CreatedAt    time.Time     `json:"created_at" yaml:"-" db:"created_at"`
}

// ApplyDefaults fills rarity and color when the definition leaves them empty
func (b *Badge) ApplyDefaults() {
	if b.Rarity == "" {
		b.Rarity = RarityCommon
	}
	if b.Color == "" {
		b.Color = b.Rarity.DefaultColor()
	}
}
