package events

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	QuestStarted       Type = "quest_started"
	StepCompleted      Type = "step_completed"
	QuestCompleted     Type = "quest_completed"
	BadgeUnlocked      Type = "badge_unlocked"
	LevelUp            Type = "level_up"
	StreakBroken       Type = "streak_broken"
	ChallengeCompleted Type = "challenge_completed"
)

// Event is the structured record handed to the notification/analytics sink.
// Delivery is best-effort; the engine never blocks on it.
type Event struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	UserID    uuid.UUID      `json:"userId" db:"user_id"`
	Type      Type           `json:"type" db:"event_type"`
	Payload   map[string]any `json:"payload" db:"payload"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
}

type DeviceToken struct {
	UserID   uuid.UUID `json:"userId" db:"user_id"`
	Token    string    `json:"token" db:"token"`
	Platform string    `json:"platform" db:"platform"`
}
