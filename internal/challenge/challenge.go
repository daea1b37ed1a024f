package challenge

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeQuizMaster       Type = "quiz_master"
	TypeSpeedRunner      Type = "speed_runner"
	TypePerfectionist    Type = "perfectionist"
	TypeStreakKeeper     Type = "streak_keeper"
	TypeCategoryExplorer Type = "category_explorer"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

type TargetMetric string

const (
	MetricStepsCompleted TargetMetric = "steps_completed"
	MetricCompletionTime TargetMetric = "completion_time"
	MetricPerfectScore   TargetMetric = "perfect_score"
	MetricStreakDays     TargetMetric = "streak_days"
	MetricCategories     TargetMetric = "categories_explored"
)

type Requirement struct {
	Metric TargetMetric `json:"metric" db:"target_metric"`
	Value  int          `json:"value" db:"target_value"`
}

type Rewards struct {
	XP     int    `json:"xp" db:"reward_xp"`
	Streak int    `json:"streak" db:"reward_streak"`
	Badge  string `json:"badge,omitempty" db:"reward_badge"`
}

type DailyChallenge struct {
	ID            string      `json:"id" db:"id"`
	UserID        uuid.UUID   `json:"userId" db:"user_id"`
	ChallengeDate string      `json:"challengeDate" db:"challenge_date"`
	QuestID       string      `json:"questId" db:"quest_id"`
	Type          Type        `json:"type" db:"challenge_type"`
	Requirement   Requirement `json:"requirement"`
	Rewards       Rewards     `json:"rewards"`
	Status        Status      `json:"status" db:"status"`
	ExpiresAt     time.Time   `json:"expiresAt" db:"expires_at"`
	CompletedAt   *time.Time  `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
}

// CompletionData is what the client submits when claiming a challenge.
type CompletionData struct {
	QuestID         string `json:"questId"`
	StepsCompleted  int    `json:"stepsCompleted"`
	Mistakes        int    `json:"mistakes"`
	DurationSeconds int    `json:"durationSeconds"`
	StreakDays      int    `json:"streakDays"`
	Categories      int    `json:"categories"`
}

type CompleteResponse struct {
	Challenge *DailyChallenge `json:"challenge"`
	XPAwarded int             `json:"xpAwarded"`
	LeveledUp bool            `json:"leveledUp"`
	NewLevel  int             `json:"newLevel,omitempty"`
}
