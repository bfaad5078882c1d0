package models

import "time"

// AwardReason explains the outcome of an award attempt
type AwardReason string

const (
	ReasonAwarded        AwardReason = "awarded"
	ReasonAlreadyEarned  AwardReason = "already earned"
	ReasonCriteriaNotMet AwardReason = "criteria not met"
)

// UserBadge is the persisted fact that a user holds a badge
type UserBadge struct {
	ID               int64     `json:"id" db:"id"`
	UserID           int64     `json:"user_id" db:"user_id"`
	BadgeID          int64     `json:"badge_id" db:"badge_id"`
	EarnedAt         time.Time `json:"earned_at" db:"earned_at"`
	Progress         int       `json:"progress" db:"progress"`
	NotificationSent bool      `json:"notification_sent" db:"notification_sent"`

	Badge *Badge `json:"badge,omitempty"`
}

// AwardResult is returned by every award attempt
type AwardResult struct {
	Awarded   bool        `json:"awarded"`
	Reason    AwardReason `json:"reason"`
	Badge     *Badge      `json:"badge,omitempty"`
	UserBadge *UserBadge  `json:"user_badge,omitempty"`
}

// BadgeProgress reports how close a user is to a badge
type BadgeProgress struct {
	Badge    *Badge     `json:"badge"`
	Current  int64      `json:"current"`
	Target   int        `json:"target"`
	Progress int        `json:"progress"`
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earned_at,omitempty"`
}

// LeaderboardEntry ranks a user by number of badges held
type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	UserID       int64     `json:"user_id" db:"user_id"`
	Username     string    `json:"username" db:"username"`
	Avatar       string    `json:"avatar" db:"avatar"`
	BadgeCount   int       `json:"badge_count" db:"badge_count"`
	LastEarnedAt time.Time `json:"last_earned_at" db:"last_earned_at"`
}
