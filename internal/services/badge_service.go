package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"badgehub/internal/cache"
	"badgehub/internal/events"
	"badgehub/internal/models"
	"badgehub/internal/repositories"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	cacheKeyCatalog           = "badges:catalog"
	cacheKeyUserBadges        = "badges:user:%d"
	cacheKeyLeaderboard       = "badges:leaderboard:%d"
	cacheKeyLeaderboardPrefix = "badges:leaderboard:*"

	maxLeaderboardLimit = 100
)

// BadgeService evaluates badge criteria and maintains the award ledger
type BadgeService interface {
	// CheckBadge attempts to award one badge to a user
	CheckBadge(ctx context.Context, userID, badgeID int64) (*models.AwardResult, error)
	// CheckAllBadges attempts every catalog badge and returns only new awards
	CheckAllBadges(ctx context.Context, userID int64) ([]*models.AwardResult, error)

	ListBadges(ctx context.Context) ([]*models.Badge, error)
	ListUserBadges(ctx context.Context, userID int64) ([]*models.UserBadge, error)
	GetProgress(ctx context.Context, userID int64) ([]*models.BadgeProgress, error)
	GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)

	// MarkNotified records that the user was told about an award
	MarkNotified(ctx context.Context, userID, badgeID int64) error
}

// BadgeServiceConfig tunes evaluation and caching
type BadgeServiceConfig struct {
	EvalConcurrency  int
	CacheTTL         time.Duration
	LeaderboardLimit int
}

// DefaultBadgeServiceConfig returns defaults used when fields are unset
func DefaultBadgeServiceConfig() *BadgeServiceConfig {
	return &BadgeServiceConfig{
		EvalConcurrency:  4,
		CacheTTL:         5 * time.Minute,
		LeaderboardLimit: 50,
	}
}

// BadgeServiceDeps groups the collaborators a badge service needs
type BadgeServiceDeps struct {
	Badges     repositories.BadgeRepository
	UserBadges repositories.UserBadgeRepository
	Metrics    repositories.MetricsRepository
	Activities repositories.ActivityRepository
	Cache      cache.Cache
	EventBus   events.EventBus
	Evaluator  *Evaluator
}

type badgeService struct {
	badges     repositories.BadgeRepository
	userBadges repositories.UserBadgeRepository
	metrics    repositories.MetricsRepository
	activities repositories.ActivityRepository
	cache      cache.Cache
	eventBus   events.EventBus
	evaluator  *Evaluator
	config     *BadgeServiceConfig
	logger     *zap.Logger
}

// NewBadgeService creates a badge service. EventBus and Activities may be nil.
func NewBadgeService(deps BadgeServiceDeps, config *BadgeServiceConfig, logger *zap.Logger) (BadgeService, error) {
	if deps.Badges == nil || deps.UserBadges == nil || deps.Metrics == nil {
		return nil, fmt.Errorf("badge, user badge and metrics repositories are required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	defaults := DefaultBadgeServiceConfig()
	if config == nil {
		config = defaults
	}
	if config.EvalConcurrency <= 0 {
		config.EvalConcurrency = defaults.EvalConcurrency
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.LeaderboardLimit <= 0 || config.LeaderboardLimit > maxLeaderboardLimit {
		config.LeaderboardLimit = defaults.LeaderboardLimit
	}

	evaluator := deps.Evaluator
	if evaluator == nil {
		evaluator = NewEvaluator(time.Time{})
	}

	s := &badgeService{
		badges:     deps.Badges,
		userBadges: deps.UserBadges,
		metrics:    deps.Metrics,
		activities: deps.Activities,
		cache:      deps.Cache,
		eventBus:   deps.EventBus,
		evaluator:  evaluator,
		config:     config,
		logger:     logger,
	}

	if s.eventBus != nil {
		handler := events.NewTypedEventHandler("badge_service.catalog_cache", func(ctx context.Context, e *events.CatalogSeededEvent) error {
			return s.cache.Delete(ctx, cacheKeyCatalog)
		})
		if err := s.eventBus.Subscribe(events.EventTypeCatalogSeeded, handler); err != nil {
			return nil, fmt.Errorf("failed to subscribe to catalog events: %w", err)
		}
	}

	return s, nil
}

// ===============================
// AWARDING
// ===============================

// CheckBadge attempts to award one badge to a user
func (s *badgeService) CheckBadge(ctx context.Context, userID, badgeID int64) (*models.AwardResult, error) {
	if userID <= 0 {
		return nil, InvalidInputError("user_id", "must be a positive integer")
	}
	if badgeID <= 0 {
		return nil, InvalidInputError("badge_id", "must be a positive integer")
	}

	badge, err := s.badges.GetByID(ctx, badgeID)
	if err != nil {
		return nil, NewStorageError("load badge", err)
	}
	if badge == nil {
		return nil, EntityNotFoundError("badge", badgeID)
	}

	existing, err := s.userBadges.Get(ctx, userID, badge.ID)
	if err != nil {
		return nil, NewStorageError("load award", err)
	}
	if existing != nil {
		existing.Badge = badge
		return alreadyEarned(badge, existing), nil
	}

	metrics, err := s.loadMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.award(ctx, metrics, badge)
}

// CheckAllBadges attempts every catalog badge for a user. Metrics are read
// once, badges are evaluated concurrently and the new awards come back in
// catalog order.
func (s *badgeService) CheckAllBadges(ctx context.Context, userID int64) ([]*models.AwardResult, error) {
	if userID <= 0 {
		return nil, InvalidInputError("user_id", "must be a positive integer")
	}

	catalog, err := s.ListBadges(ctx)
	if err != nil {
		return nil, err
	}

	metrics, err := s.loadMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]*models.AwardResult, len(catalog))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.EvalConcurrency)

	for i, badge := range catalog {
		i, badge := i, badge
		g.Go(func() error {
			existing, err := s.userBadges.Get(gctx, userID, badge.ID)
			if err != nil {
				return NewStorageError("load award", err)
			}
			if existing != nil {
				results[i] = alreadyEarned(badge, existing)
				return nil
			}

			result, err := s.award(gctx, metrics, badge)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	awarded := make([]*models.AwardResult, 0)
	for _, result := range results {
		if result != nil && result.Awarded {
			awarded = append(awarded, result)
		}
	}

	s.logger.Info("Evaluated all badges",
		zap.Int64("user_id", userID),
		zap.Int("catalog_size", len(catalog)),
		zap.Int("awarded", len(awarded)),
	)

	return awarded, nil
}

// award evaluates the criterion and inserts the ledger row. A unique
// constraint hit means a concurrent caller won and counts as already earned.
func (s *badgeService) award(ctx context.Context, metrics *models.UserMetrics, badge *models.Badge) (*models.AwardResult, error) {
	if !s.evaluator.Evaluate(metrics, badge) {
		return &models.AwardResult{Awarded: false, Reason: models.ReasonCriteriaNotMet, Badge: badge}, nil
	}

	userBadge := &models.UserBadge{
		UserID:   metrics.UserID,
		BadgeID:  badge.ID,
		Progress: 100,
	}

	if err := s.userBadges.Create(ctx, userBadge); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			s.logger.Debug("Badge awarded concurrently",
				zap.Int64("user_id", metrics.UserID),
				zap.Int64("badge_id", badge.ID),
			)
			return &models.AwardResult{Awarded: false, Reason: models.ReasonAlreadyEarned, Badge: badge}, nil
		}
		return nil, NewStorageError("record award", err)
	}
	userBadge.Badge = badge

	s.logger.Info("Badge awarded",
		zap.Int64("user_id", metrics.UserID),
		zap.Int64("badge_id", badge.ID),
		zap.String("badge_name", badge.Name),
	)

	s.afterAward(ctx, metrics, userBadge)

	return &models.AwardResult{Awarded: true, Reason: models.ReasonAwarded, Badge: badge, UserBadge: userBadge}, nil
}

// afterAward runs the best-effort side effects of a new award. Failures are
// logged and never undo the award.
func (s *badgeService) afterAward(ctx context.Context, metrics *models.UserMetrics, userBadge *models.UserBadge) {
	badge := userBadge.Badge

	if s.activities != nil {
		targetID := badge.ID
		activity := &models.Activity{
			UserID:     metrics.UserID,
			Type:       models.ActivityBadgeEarned,
			TargetID:   &targetID,
			TargetType: models.TargetTypeBadge,
			Metadata: models.JSONMap{
				"badgeName": badge.Name,
				"badgeIcon": badge.Icon,
				"rarity":    string(badge.Rarity),
				"userName":  metrics.Username,
			},
			IsPublic: true,
		}
		if err := s.activities.Create(ctx, activity); err != nil {
			s.logger.Warn("Failed to record badge activity",
				zap.Int64("user_id", metrics.UserID),
				zap.Int64("badge_id", badge.ID),
				zap.Error(err),
			)
		}
	}

	s.invalidateUser(ctx, metrics.UserID)

	if s.eventBus != nil {
		event := events.NewBadgeEarnedEvent(metrics.UserID, badge, userBadge.EarnedAt)
		if err := s.eventBus.PublishAsync(ctx, event); err != nil {
			s.logger.Warn("Failed to publish badge earned event",
				zap.Int64("user_id", metrics.UserID),
				zap.Int64("badge_id", badge.ID),
				zap.Error(err),
			)
		}
	}
}

func alreadyEarned(badge *models.Badge, existing *models.UserBadge) *models.AwardResult {
	return &models.AwardResult{Awarded: false, Reason: models.ReasonAlreadyEarned, Badge: badge, UserBadge: existing}
}

func (s *badgeService) loadMetrics(ctx context.Context, userID int64) (*models.UserMetrics, error) {
	metrics, err := s.metrics.GetUserMetrics(ctx, userID)
	if err != nil {
		return nil, NewStorageError("load user metrics", err)
	}
	if metrics == nil {
		return nil, EntityNotFoundError("user", userID)
	}
	return metrics, nil
}

// ===============================
// QUERIES
// ===============================

// ListBadges returns the catalog, rarest first
func (s *badgeService) ListBadges(ctx context.Context) ([]*models.Badge, error) {
	badges, err := cache.GetOrLoad(ctx, s.cache, s.logger, cacheKeyCatalog, s.config.CacheTTL, func() ([]*models.Badge, error) {
		return s.badges.List(ctx)
	})
	if err != nil {
		return nil, NewStorageError("list badges", err)
	}
	if badges == nil {
		badges = []*models.Badge{}
	}
	return badges, nil
}

// ListUserBadges returns a user's awards with badge details, newest first
func (s *badgeService) ListUserBadges(ctx context.Context, userID int64) ([]*models.UserBadge, error) {
	if userID <= 0 {
		return nil, InvalidInputError("user_id", "must be a positive integer")
	}

	key := fmt.Sprintf(cacheKeyUserBadges, userID)
	userBadges, err := cache.GetOrLoad(ctx, s.cache, s.logger, key, s.config.CacheTTL, func() ([]*models.UserBadge, error) {
		return s.userBadges.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, NewStorageError("list user badges", err)
	}
	if userBadges == nil {
		userBadges = []*models.UserBadge{}
	}
	return userBadges, nil
}

// GetProgress reports the user's standing against every catalog badge
func (s *badgeService) GetProgress(ctx context.Context, userID int64) ([]*models.BadgeProgress, error) {
	if userID <= 0 {
		return nil, InvalidInputError("user_id", "must be a positive integer")
	}

	catalog, err := s.ListBadges(ctx)
	if err != nil {
		return nil, err
	}

	metrics, err := s.loadMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}

	held, err := s.ListUserBadges(ctx, userID)
	if err != nil {
		return nil, err
	}

	earned := make(map[int64]*models.UserBadge, len(held))
	for _, ub := range held {
		earned[ub.BadgeID] = ub
	}

	progress := make([]*models.BadgeProgress, 0, len(catalog))
	for _, badge := range catalog {
		current, target, percent := s.evaluator.Progress(metrics, badge)
		entry := &models.BadgeProgress{
			Badge:    badge,
			Current:  current,
			Target:   int(target),
			Progress: percent,
		}
		if ub, ok := earned[badge.ID]; ok {
			earnedAt := ub.EarnedAt
			entry.Earned = true
			entry.EarnedAt = &earnedAt
			entry.Progress = 100
		}
		progress = append(progress, entry)
	}

	return progress, nil
}

// GetLeaderboard ranks users by badges held
func (s *badgeService) GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	if limit <= 0 || limit > maxLeaderboardLimit {
		limit = s.config.LeaderboardLimit
	}

	key := fmt.Sprintf(cacheKeyLeaderboard, limit)
	entries, err := cache.GetOrLoad(ctx, s.cache, s.logger, key, s.config.CacheTTL, func() ([]*models.LeaderboardEntry, error) {
		return s.userBadges.Leaderboard(ctx, limit)
	})
	if err != nil {
		return nil, NewStorageError("load leaderboard", err)
	}
	if entries == nil {
		entries = []*models.LeaderboardEntry{}
	}
	return entries, nil
}

// MarkNotified records that the user was told about an award
func (s *badgeService) MarkNotified(ctx context.Context, userID, badgeID int64) error {
	if err := s.userBadges.MarkNotificationSent(ctx, userID, badgeID); err != nil {
		return NewStorageError("mark notification sent", err)
	}
	if err := s.cache.Delete(ctx, fmt.Sprintf(cacheKeyUserBadges, userID)); err != nil {
		s.logger.Warn("Failed to invalidate user badges cache", zap.Int64("user_id", userID), zap.Error(err))
	}
	return nil
}

func (s *badgeService) invalidateUser(ctx context.Context, userID int64) {
	if err := s.cache.Delete(ctx, fmt.Sprintf(cacheKeyUserBadges, userID)); err != nil {
		s.logger.Warn("Failed to invalidate user badges cache", zap.Int64("user_id", userID), zap.Error(err))
	}
	if err := s.cache.DeletePattern(ctx, cacheKeyLeaderboardPrefix); err != nil {
		s.logger.Warn("Failed to invalidate leaderboard cache", zap.Error(err))
	}
}
