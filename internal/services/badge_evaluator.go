package services

import (
	"time"

	"badgehub/internal/models"
)

const day = 24 * time.Hour

// Evaluator decides whether a metrics snapshot satisfies a badge criterion.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	launch time.Time
	now    func() time.Time
}

// NewEvaluator creates an evaluator. launch anchors the earlyUser criterion;
// a zero launch means nobody qualifies as an early user.
func NewEvaluator(launch time.Time) *Evaluator {
	return &Evaluator{launch: launch, now: time.Now}
}

// Evaluate reports whether the user qualifies for the badge.
// Unrecognized criterion types never qualify.
func (e *Evaluator) Evaluate(metrics *models.UserMetrics, badge *models.Badge) bool {
	if metrics == nil || badge == nil {
		return false
	}

	threshold := int64(badge.Criteria.Value)

	switch badge.Criteria.Type {
	case models.CriterionFollowerCount,
		models.CriterionCommentCount,
		models.CriterionFavoriteCount,
		models.CriterionArticleCount,
		models.CriterionCommentLikes,
		models.CriterionViews:
		current, _ := countFor(metrics, badge.Criteria.Type)
		return current >= threshold
	case models.CriterionDaysActive:
		return e.daysSinceJoined(metrics) >= threshold
	case models.CriterionFeatured:
		return metrics.FeaturedCount >= max(threshold, 1)
	case models.CriterionEarlyUser:
		return e.joinedEarly(metrics, badge.Criteria.Value)
	default:
		return false
	}
}

// Progress returns the user's current value toward the badge, the target it
// is measured against and the completion percentage capped at 100.
func (e *Evaluator) Progress(metrics *models.UserMetrics, badge *models.Badge) (current int64, target int64, percent int) {
	if metrics == nil || badge == nil {
		return 0, 0, 0
	}

	target = int64(badge.Criteria.Value)

	switch badge.Criteria.Type {
	case models.CriterionDaysActive:
		current = e.daysSinceJoined(metrics)
	case models.CriterionFeatured:
		current = metrics.FeaturedCount
		target = max(target, 1)
	case models.CriterionEarlyUser:
		// Either the user joined in the window or they never will.
		if e.joinedEarly(metrics, badge.Criteria.Value) {
			return 1, 1, 100
		}
		return 0, 1, 0
	default:
		var ok bool
		current, ok = countFor(metrics, badge.Criteria.Type)
		if !ok {
			return 0, target, 0
		}
	}

	return current, target, percentOf(current, target)
}

func (e *Evaluator) daysSinceJoined(metrics *models.UserMetrics) int64 {
	if metrics.CreatedAt.IsZero() {
		return 0
	}
	elapsed := e.now().Sub(metrics.CreatedAt)
	if elapsed < 0 {
		return 0
	}
	return int64(elapsed / day)
}

func (e *Evaluator) joinedEarly(metrics *models.UserMetrics, days int) bool {
	if e.launch.IsZero() || metrics.CreatedAt.IsZero() {
		return false
	}
	cutoff := e.launch.AddDate(0, 0, days)
	return metrics.CreatedAt.Before(cutoff)
}

// countFor maps a count criterion to its metric
func countFor(metrics *models.UserMetrics, t models.CriterionType) (int64, bool) {
	switch t {
	case models.CriterionFollowerCount:
		return metrics.FollowerCount, true
	case models.CriterionCommentCount:
		return metrics.CommentCount, true
	case models.CriterionFavoriteCount:
		return metrics.FavoriteCount, true
	case models.CriterionArticleCount:
		return metrics.ArticleCount, true
	case models.CriterionCommentLikes:
		return metrics.CommentLikes, true
	case models.CriterionViews:
		return metrics.Views, true
	}
	return 0, false
}

func percentOf(current, target int64) int {
	if target <= 0 {
		return 100
	}
	if current >= target {
		return 100
	}
	if current <= 0 {
		return 0
	}
	return int(current * 100 / target)
}
