package savings

import (
	"time"

	"github.com/google/uuid"
)

type Period string

const (
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

type Source string

const (
	SourceQuest  Source = "quest"
	SourceManual Source = "manual"
)

type Event struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	QuestID   string    `json:"questId,omitempty" db:"quest_id"`
	Title     string    `json:"title" db:"title"`
	Amount    float64   `json:"amount" db:"amount"`
	Period    Period    `json:"period" db:"period"`
	Verified  bool      `json:"verified" db:"verified"`
	Proof     *string   `json:"proof,omitempty" db:"proof"`
	Source    Source    `json:"source" db:"source"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// CreateEventRequest deliberately has no verified field; verification is
// server-authoritative and never accepted from the client.
type CreateEventRequest struct {
	QuestID          string  `json:"questId,omitempty"`
	Title            string  `json:"title"`
	Amount           float64 `json:"amount"`
	Period           Period  `json:"period"`
	Proof            *string `json:"proof,omitempty"`
	Source           Source  `json:"source,omitempty"`
	ConfirmDuplicate bool    `json:"confirmDuplicate,omitempty"`
}

type Aggregate struct {
	UserID               uuid.UUID `json:"userId" db:"user_id"`
	ImpactAnnualEstimate float64   `json:"impactAnnualEstimated" db:"annual_estimated"`
	ImpactAnnualVerified float64   `json:"impactAnnualVerified" db:"annual_verified"`
	ProofsVerifiedCount  int       `json:"proofsVerifiedCount" db:"proofs_verified"`
	LastRecalcAt         time.Time `json:"lastRecalcAt" db:"last_recalc_at"`
}

type ImpactResponse struct {
	Aggregate *Aggregate `json:"aggregate"`
	Events    []*Event   `json:"events"`
}

// DuplicateCandidate is returned alongside a conflict so the client can ask
// "already logged today, add anyway?".
type DuplicateCandidate struct {
	Existing *Event `json:"existing"`
}
