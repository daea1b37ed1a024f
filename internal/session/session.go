package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusActive     Status = "active"
	StatusCompleted  Status = "completed"
)

// StepRecord is what gets stored per submitted step. Resubmitting a step
// overwrites its record; earned XP is tracked separately in the award ledger.
type StepRecord struct {
	Answer      json.RawMessage `json:"answer"`
	IsCorrect   bool            `json:"isCorrect"`
	XPAwarded   int             `json:"xpAwarded"`
	Feedback    string          `json:"feedback,omitempty"`
	Skipped     bool            `json:"skipped,omitempty"`
	SubmittedAt time.Time       `json:"submittedAt"`
}

type QuestSession struct {
	ID               uuid.UUID             `json:"id" db:"id"`
	UserID           uuid.UUID             `json:"userId" db:"user_id"`
	QuestID          string                `json:"questId" db:"quest_id"`
	Status           Status                `json:"status" db:"status"`
	CurrentStepIndex int                   `json:"currentStepIndex" db:"current_step_index"`
	StepAnswers      map[string]StepRecord `json:"stepAnswers" db:"step_answers"`
	ProgressPercent  int                   `json:"progressPercent" db:"progress_percent"`
	Mistakes         int                   `json:"mistakes" db:"mistakes"`
	StartedAt        time.Time             `json:"startedAt" db:"started_at"`
	LastActivityAt   time.Time             `json:"lastActivityAt" db:"last_activity_at"`
	CompletedAt      *time.Time            `json:"completedAt,omitempty" db:"completed_at"`
}

type SubmitStepResponse struct {
	Session     *QuestSession `json:"session"`
	IsCorrect   bool          `json:"isCorrect"`
	XPAwarded   int           `json:"xpAwarded"`
	Feedback    string        `json:"feedback,omitempty"`
	QuestDone   bool          `json:"questDone"`
	QuestXP     int           `json:"questXp,omitempty"`
	LeveledUp   bool          `json:"leveledUp"`
	NewLevel    int           `json:"newLevel,omitempty"`
	BadgeEarned string        `json:"badgeEarned,omitempty"`
}
