package gamification

import (
	"time"

	"github.com/google/uuid"
)

type BadgeRule string

const (
	RuleQuestsCompleted     BadgeRule = "quests_completed"
	RuleStreakDays          BadgeRule = "streak_days"
	RuleMilestoneAmount     BadgeRule = "milestone_amount"
	RuleChallengesCompleted BadgeRule = "challenges_completed"
	RuleQuestCompleted      BadgeRule = "quest_completed"
)

type Badge struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Icon        string    `json:"icon" db:"icon"`
	RuleType    BadgeRule `json:"ruleType" db:"rule_type"`
	RuleValue   int       `json:"ruleValue" db:"rule_value"`
	BonusXP     int       `json:"bonusXp" db:"bonus_xp"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

type BadgeWithStatus struct {
	Badge
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}

// State is the per-user gamification document. Level is always derived from
// XPTotal and never stored.
type State struct {
	UserID           uuid.UUID         `json:"userId" db:"user_id"`
	XPTotal          int               `json:"xpTotal" db:"xp_total"`
	Level            int               `json:"level"`
	Badges           []string          `json:"badges"`
	Milestones       map[int]time.Time `json:"milestones"`
	CurrentStreak    int               `json:"currentStreak" db:"current_streak"`
	LongestStreak    int               `json:"longestStreak" db:"longest_streak"`
	LastActivityDate *time.Time        `json:"lastActivityDate,omitempty" db:"last_activity_date"`
	UpdatedAt        time.Time         `json:"updatedAt" db:"updated_at"`
}

type XPResult struct {
	XPTotal   int  `json:"xpTotal"`
	OldLevel  int  `json:"oldLevel"`
	NewLevel  int  `json:"newLevel"`
	LeveledUp bool `json:"leveledUp"`
}

// MilestoneThresholds are the fixed savings amounts that get recorded once
// each when a user's total annual savings crosses them.
var MilestoneThresholds = []int{100, 500, 1000, 5000}
