package quest

import "time"

type StepKind string

const (
	StepInfo           StepKind = "info"
	StepQuiz           StepKind = "quiz"
	StepMultipleChoice StepKind = "multiple_choice"
	StepChecklist      StepKind = "checklist"
	StepReflection     StepKind = "reflection"
	StepInteractive    StepKind = "interactive"
	StepAction         StepKind = "action"
)

type ChecklistPolicy string

const (
	PolicyAllChecked ChecklistPolicy = "all_checked"
	PolicyMinChecked ChecklistPolicy = "min_checked"
	PolicyOptional   ChecklistPolicy = "optional"
)

type VerificationMethod string

const (
	VerifyManual     VerificationMethod = "manual"
	VerifyScreenshot VerificationMethod = "screenshot"
	VerifySelfReport VerificationMethod = "self_report"
)

type ChecklistItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	XP    int    `json:"xp"`
}

type SubAction struct {
	ID           string             `json:"id"`
	Label        string             `json:"label"`
	XP           int                `json:"xp"`
	Verification VerificationMethod `json:"verification"`
}

// Step carries the fields of every kind; only the fields matching Kind are set.
type Step struct {
	ID        string   `json:"id" db:"id"`
	QuestID   string   `json:"questId" db:"quest_id"`
	Position  int      `json:"position" db:"position"`
	Kind      StepKind `json:"kind" db:"kind"`
	Title     string   `json:"title" db:"title"`
	Body      string   `json:"body,omitempty" db:"body"`
	Skippable bool     `json:"skippable" db:"skippable"`
	XP        int      `json:"xp" db:"xp"`

	// quiz / multiple_choice
	Options         []string `json:"options,omitempty"`
	CorrectIndex    *int     `json:"correctIndex,omitempty"`
	AcceptedAnswers []string `json:"acceptedAnswers,omitempty"`
	Explanation     string   `json:"explanation,omitempty"`

	// reflection
	MinLength int `json:"minLength,omitempty"`

	// checklist
	Items      []ChecklistItem `json:"items,omitempty"`
	Policy     ChecklistPolicy `json:"policy,omitempty"`
	MinChecked int             `json:"minChecked,omitempty"`

	// action
	SubActions []SubAction `json:"subActions,omitempty"`

	// interactive
	ExpectedMin     *float64          `json:"expectedMin,omitempty"`
	ExpectedMax     *float64          `json:"expectedMax,omitempty"`
	ExpectedMapping map[string]string `json:"expectedMapping,omitempty"`
}

type RewardSchedule struct {
	BadgeID            string `json:"badgeId,omitempty" db:"badge_id"`
	CompletionXP       int    `json:"completionXp" db:"completion_xp"`
	FirstTimeBonusXP   int    `json:"firstTimeBonusXp" db:"first_time_bonus_xp"`
	SpeedBonusXP       int    `json:"speedBonusXp" db:"speed_bonus_xp"`
	SpeedThresholdSecs int    `json:"speedThresholdSecs" db:"speed_threshold_secs"`
	PerfectBonusXP     int    `json:"perfectBonusXp" db:"perfect_bonus_xp"`
}

type Definition struct {
	ID          string         `json:"id" db:"id"`
	Title       string         `json:"title" db:"title"`
	Description string         `json:"description" db:"description"`
	Category    string         `json:"category" db:"category"`
	PremiumOnly bool           `json:"premiumOnly" db:"premium_only"`
	IsActive    bool           `json:"isActive" db:"is_active"`
	Rewards     RewardSchedule `json:"rewards"`
	Steps       []Step         `json:"steps"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
}

type DefinitionWithAccess struct {
	Definition
	CanAccess bool `json:"canAccess"`
}
