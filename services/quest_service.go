package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"finquestAPI/internal/apperror"
	"finquestAPI/internal/engine/validator"
	"finquestAPI/internal/events"
	"finquestAPI/internal/quest"
	"finquestAPI/internal/session"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type QuestService struct {
	db           *pgxpool.Pool
	content      *ContentService
	gamification *GamificationService
	eventService *EventService
}

func NewQuestService(db *pgxpool.Pool, content *ContentService, gamification *GamificationService, eventService *EventService) *QuestService {
	return &QuestService{
		db:           db,
		content:      content,
		gamification: gamification,
		eventService: eventService,
	}
}

// StartQuest creates or restarts a session. Starting a quest that already
// has an active session just returns it; restarting a completed one
// requires the explicit restart flag.
func (s *QuestService) StartQuest(ctx context.Context, userID uuid.UUID, questID string, restart bool) (*session.QuestSession, error) {
	def, err := s.content.GetQuest(ctx, questID)
	if err != nil {
		return nil, err
	}
	if len(def.Steps) == 0 {
		return nil, fmt.Errorf("%w: quest %s has no steps", apperror.ErrState, questID)
	}

	canAccess, err := s.content.CanAccessQuest(ctx, userID.String(), def)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, fmt.Errorf("%w: quest %s requires a premium subscription", apperror.ErrState, questID)
	}

	existing, err := s.getSession(ctx, userID, questID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		switch existing.Status {
		case session.StatusActive:
			return existing, nil
		case session.StatusCompleted:
			if !restart {
				return nil, fmt.Errorf("%w: quest %s already completed, pass restart to redo it", apperror.ErrState, questID)
			}
		}
	}

	now := time.Now()
	sess := &session.QuestSession{
		ID:               uuid.New(),
		UserID:           userID,
		QuestID:          questID,
		Status:           session.StatusActive,
		CurrentStepIndex: 0,
		StepAnswers:      map[string]session.StepRecord{},
		ProgressPercent:  0,
		StartedAt:        now,
		LastActivityAt:   now,
	}

	query := `
	INSERT INTO quest_sessions (id, user_id, quest_id, status, current_step_index, step_answers, progress_percent, mistakes, started_at, last_activity_at, completed_at)
	VALUES ($1, $2, $3, $4, 0, '{}', 0, 0, $5, $5, NULL)
	ON CONFLICT (user_id, quest_id) DO UPDATE SET
		status = EXCLUDED.status,
		current_step_index = 0,
		step_answers = '{}',
		progress_percent = 0,
		mistakes = 0,
		started_at = EXCLUDED.started_at,
		last_activity_at = EXCLUDED.last_activity_at,
		completed_at = NULL
	`
	_, err = s.db.Exec(ctx, query, sess.ID, userID, questID, sess.Status, now)
	if err != nil {
		return nil, fmt.Errorf("failed to start quest: %w", err)
	}

	s.eventService.Emit(ctx, userID, events.QuestStarted, map[string]any{
		"questId": questID,
		"restart": restart,
	})

	return s.getSession(ctx, userID, questID)
}

func (s *QuestService) GetSession(ctx context.Context, userID uuid.UUID, questID string) (*session.QuestSession, error) {
	return s.getSession(ctx, userID, questID)
}

func (s *QuestService) getSession(ctx context.Context, userID uuid.UUID, questID string) (*session.QuestSession, error) {
	query := `
	SELECT id, user_id, quest_id, status, current_step_index, step_answers, progress_percent, mistakes, started_at, last_activity_at, completed_at
	FROM quest_sessions
	WHERE user_id = $1 AND quest_id = $2
	`

	sess := &session.QuestSession{}
	var answers []byte
	err := s.db.QueryRow(ctx, query, userID, questID).Scan(
		&sess.ID,
		&sess.UserID,
		&sess.QuestID,
		&sess.Status,
		&sess.CurrentStepIndex,
		&answers,
		&sess.ProgressPercent,
		&sess.Mistakes,
		&sess.StartedAt,
		&sess.LastActivityAt,
		&sess.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no session for quest %s", apperror.ErrNotFound, questID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	sess.StepAnswers = map[string]session.StepRecord{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &sess.StepAnswers); err != nil {
			return nil, fmt.Errorf("failed to decode step answers: %w", err)
		}
	}

	return sess, nil
}

// SubmitStep grades an answer for the step at the session cursor and
// advances on success. Resubmitting a step overwrites the stored answer but
// the XP ledger guarantees each (quest, step) pays out at most once.
func (s *QuestService) SubmitStep(ctx context.Context, userID uuid.UUID, questID, stepID string, answer json.RawMessage, skip bool) (*session.SubmitStepResponse, error) {
	def, err := s.content.GetQuest(ctx, questID)
	if err != nil {
		return nil, err
	}

	sess, err := s.getSession(ctx, userID, questID)
	if err != nil {
		return nil, err
	}

	if sess.Status != session.StatusActive {
		return nil, fmt.Errorf("%w: session is %s, not active", apperror.ErrState, sess.Status)
	}
	if sess.CurrentStepIndex >= len(def.Steps) {
		return nil, fmt.Errorf("%w: session cursor out of range", apperror.ErrState)
	}

	current := def.Steps[sess.CurrentStepIndex]
	if current.ID != stepID {
		if idx := stepIndex(def.Steps, stepID); idx < 0 {
			return nil, fmt.Errorf("%w: step %s in quest %s", apperror.ErrNotFound, stepID, questID)
		}
		return nil, fmt.Errorf("%w: expected step %s, got %s", apperror.ErrState, current.ID, stepID)
	}

	now := time.Now()
	record := session.StepRecord{Answer: answer, SubmittedAt: now}

	if skip {
		if !current.Skippable {
			return nil, fmt.Errorf("%w: step %s cannot be skipped", apperror.ErrState, stepID)
		}
		// A skipped step earns nothing and is not graded.
		record.Skipped = true
		record.IsCorrect = true
	} else {
		result, err := validator.Validate(&current, answer)
		if err != nil {
			// ErrValidation: surfaced to the caller, session untouched,
			// retryable at the same step.
			return nil, err
		}
		record.IsCorrect = result.IsCorrect
		record.XPAwarded = result.XPAwarded
		record.Feedback = result.Feedback
	}

	sess.StepAnswers[stepID] = record

	resp := &session.SubmitStepResponse{
		IsCorrect: record.IsCorrect,
		XPAwarded: 0,
		Feedback:  record.Feedback,
	}

	if !record.IsCorrect {
		// Wrong answer: store the attempt, count the mistake, stay put.
		if err := s.persistAttempt(ctx, sess, true); err != nil {
			return nil, err
		}
		resp.Session = sess
		return resp, nil
	}

	// At-most-once XP per (quest, step): the award ledger decides whether
	// this submission actually pays out.
	awarded := 0
	if record.XPAwarded > 0 {
		awarded, err = s.recordAward(ctx, userID, questID, stepID, record.XPAwarded)
		if err != nil {
			return nil, err
		}
	}

	sess.CurrentStepIndex++
	sess.ProgressPercent = progressPercent(sess.CurrentStepIndex, len(def.Steps))
	sess.LastActivityAt = now

	done := sess.CurrentStepIndex >= len(def.Steps)
	if done {
		sess.Status = session.StatusCompleted
		sess.CompletedAt = &now
		sess.ProgressPercent = 100
	}

	if err := s.persistAttempt(ctx, sess, false); err != nil {
		return nil, err
	}

	if awarded > 0 {
		xpResult, err := s.gamification.ApplyXP(ctx, userID, awarded)
		if err != nil {
			return nil, err
		}
		resp.XPAwarded = awarded
		resp.LeveledUp = xpResult.LeveledUp
		resp.NewLevel = xpResult.NewLevel
	}

	s.eventService.Emit(ctx, userID, events.StepCompleted, map[string]any{
		"questId": questID,
		"stepId":  stepID,
		"skipped": record.Skipped,
		"xp":      awarded,
	})

	if done {
		if err := s.completeQuest(ctx, userID, def, sess, resp); err != nil {
			return nil, err
		}
	}

	resp.Session = sess
	return resp, nil
}

// completeQuest applies the completion rewards: quest completion XP, the
// conditional bonuses, the reward badge, and the daily streak touch. Badge
// and milestone sweeps are best-effort.
func (s *QuestService) completeQuest(ctx context.Context, userID uuid.UUID, def *quest.Definition, sess *session.QuestSession, resp *session.SubmitStepResponse) error {
	bonus := def.Rewards.CompletionXP

	firstTime, err := s.isFirstCompletion(ctx, userID, def.ID)
	if err != nil {
		return err
	}
	if firstTime && def.Rewards.FirstTimeBonusXP > 0 {
		bonus += def.Rewards.FirstTimeBonusXP
	}

	if def.Rewards.SpeedBonusXP > 0 && def.Rewards.SpeedThresholdSecs > 0 {
		elapsed := sess.CompletedAt.Sub(sess.StartedAt)
		if elapsed <= time.Duration(def.Rewards.SpeedThresholdSecs)*time.Second {
			bonus += def.Rewards.SpeedBonusXP
		}
	}

	if def.Rewards.PerfectBonusXP > 0 && sess.Mistakes == 0 {
		bonus += def.Rewards.PerfectBonusXP
	}

	questXP := bonus
	for _, rec := range sess.StepAnswers {
		questXP += rec.XPAwarded
	}
	resp.QuestDone = true
	resp.QuestXP = questXP

	if bonus > 0 {
		// The completion bonus is keyed like a step award so a restart
		// cannot double-pay it.
		awarded, err := s.recordAward(ctx, userID, def.ID, "__completion__", bonus)
		if err != nil {
			return err
		}
		if awarded > 0 {
			xpResult, err := s.gamification.ApplyXP(ctx, userID, awarded)
			if err != nil {
				return err
			}
			resp.XPAwarded += awarded
			if xpResult.LeveledUp {
				resp.LeveledUp = true
				resp.NewLevel = xpResult.NewLevel
			}
		}
	}

	if err := s.gamification.TouchActivity(ctx, userID, *sess.CompletedAt); err != nil {
		log.Printf("completeQuest: streak update failed for %s: %v", userID, err)
	}

	if def.Rewards.BadgeID != "" {
		if err := s.gamification.UnlockBadge(ctx, userID, def.Rewards.BadgeID); err != nil {
			log.Printf("completeQuest: badge unlock failed for %s: %v", userID, err)
		} else {
			resp.BadgeEarned = def.Rewards.BadgeID
		}
	}

	s.eventService.Emit(ctx, userID, events.QuestCompleted, map[string]any{
		"questId":   def.ID,
		"questXp":   questXP,
		"firstTime": firstTime,
	})

	// Rule-based unlocks ride along after the fact; a failure here must
	// never undo a completed quest.
	s.gamification.CheckBadgeUnlocks(ctx, userID)

	return nil
}

func (s *QuestService) isFirstCompletion(ctx context.Context, userID uuid.UUID, questID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM xp_awards WHERE user_id = $1 AND quest_id = $2 AND step_id = '__completion__'
		)
	`, userID, questID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check prior completion: %w", err)
	}
	return !exists, nil
}

// recordAward inserts into the XP ledger. Returns the XP actually earned:
// zero when the (quest, step) pair was already paid.
func (s *QuestService) recordAward(ctx context.Context, userID uuid.UUID, questID, stepID string, xp int) (int, error) {
	result, err := s.db.Exec(ctx, `
		INSERT INTO xp_awards (user_id, quest_id, step_id, xp, awarded_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, quest_id, step_id) DO NOTHING
	`, userID, questID, stepID, xp)
	if err != nil {
		return 0, fmt.Errorf("failed to record xp award: %w", err)
	}
	if result.RowsAffected() == 0 {
		return 0, nil
	}
	return xp, nil
}

func (s *QuestService) persistAttempt(ctx context.Context, sess *session.QuestSession, mistake bool) error {
	answers, err := json.Marshal(sess.StepAnswers)
	if err != nil {
		return fmt.Errorf("failed to encode step answers: %w", err)
	}

	mistakeDelta := 0
	if mistake {
		mistakeDelta = 1
		sess.Mistakes++
	}

	_, err = s.db.Exec(ctx, `
		UPDATE quest_sessions
		SET status = $3, current_step_index = $4, step_answers = $5, progress_percent = $6,
		    mistakes = mistakes + $7, last_activity_at = NOW(), completed_at = $8
		WHERE user_id = $1 AND quest_id = $2
	`, sess.UserID, sess.QuestID, sess.Status, sess.CurrentStepIndex, answers, sess.ProgressPercent, mistakeDelta, sess.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

func stepIndex(steps []quest.Step, stepID string) int {
	for i := range steps {
		if steps[i].ID == stepID {
			return i
		}
	}
	return -1
}

func progressPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}
