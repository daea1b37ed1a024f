package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"finquestAPI/internal/apperror"
	"finquestAPI/internal/challenge"
	"finquestAPI/internal/engine/dailyseed"
	"finquestAPI/internal/events"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// challengeTemplate holds the requirement and reward shape per challenge
// type. The catalog is fixed; selection over it is seeded per user per day.
type challengeTemplate struct {
	Type         challenge.Type
	Metric       challenge.TargetMetric
	Value        int
	RewardXP     int
	RewardStreak int
	RewardBadge  string
}

var challengeCatalog = []challengeTemplate{
	{Type: challenge.TypeQuizMaster, Metric: challenge.MetricStepsCompleted, Value: 3, RewardXP: 50},
	{Type: challenge.TypeSpeedRunner, Metric: challenge.MetricCompletionTime, Value: 300, RewardXP: 75},
	{Type: challenge.TypePerfectionist, Metric: challenge.MetricPerfectScore, Value: 0, RewardXP: 100},
	{Type: challenge.TypeStreakKeeper, Metric: challenge.MetricStreakDays, Value: 3, RewardXP: 60, RewardStreak: 1},
	{Type: challenge.TypeCategoryExplorer, Metric: challenge.MetricCategories, Value: 2, RewardXP: 80},
}

type ChallengeService struct {
	db           *pgxpool.Pool
	gamification *GamificationService
	eventService *EventService
}

func NewChallengeService(db *pgxpool.Pool, gamification *GamificationService, eventService *EventService) *ChallengeService {
	return &ChallengeService{db: db, gamification: gamification, eventService: eventService}
}

// GetToday returns the user's challenge for the current date, generating it
// on first read. Generation is deterministic per (date, user), so a lost
// write or a double trigger converges on the same challenge.
func (s *ChallengeService) GetToday(ctx context.Context, userID uuid.UUID, now time.Time) (*challenge.DailyChallenge, error) {
	dateKey := dailyseed.DateKey(now)

	existing, err := s.getByDate(ctx, userID, dateKey)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return s.lazyExpire(ctx, existing, now)
	}

	generated, err := s.generateForDate(ctx, userID, dateKey, now)
	if err != nil {
		return nil, err
	}

	query := `
	INSERT INTO daily_challenges (id, user_id, challenge_date, quest_id, challenge_type, target_metric, target_value, reward_xp, reward_streak, reward_badge, status, expires_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
	ON CONFLICT (user_id, challenge_date) DO NOTHING
	`
	_, err = s.db.Exec(ctx, query,
		generated.ID,
		generated.UserID,
		generated.ChallengeDate,
		generated.QuestID,
		generated.Type,
		generated.Requirement.Metric,
		generated.Requirement.Value,
		generated.Rewards.XP,
		generated.Rewards.Streak,
		generated.Rewards.Badge,
		generated.Status,
		generated.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store daily challenge: %w", err)
	}

	// Re-read so a concurrent generator's row wins deterministically.
	return s.getByDate(ctx, userID, dateKey)
}

// generateForDate is the deterministic selection: the same (date, user)
// always picks the same quest and challenge type.
func (s *ChallengeService) generateForDate(ctx context.Context, userID uuid.UUID, dateKey string, now time.Time) (*challenge.DailyChallenge, error) {
	questIDs, err := s.activeQuestIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(questIDs) == 0 {
		return nil, fmt.Errorf("%w: no active quests to build a challenge from", apperror.ErrNotFound)
	}

	seed := dailyseed.Seed(dateKey, userID.String())
	tmpl := challengeCatalog[dailyseed.Pick(seed, 1, len(challengeCatalog))]
	questID := questIDs[dailyseed.Pick(seed, 2, len(questIDs))]

	return &challenge.DailyChallenge{
		ID:            fmt.Sprintf("dc_%s_%s", dateKey, userID),
		UserID:        userID,
		ChallengeDate: dateKey,
		QuestID:       questID,
		Type:          tmpl.Type,
		Requirement:   challenge.Requirement{Metric: tmpl.Metric, Value: tmpl.Value},
		Rewards:       challenge.Rewards{XP: tmpl.RewardXP, Streak: tmpl.RewardStreak, Badge: tmpl.RewardBadge},
		Status:        challenge.StatusActive,
		ExpiresAt:     dailyseed.EndOfDay(now),
	}, nil
}

func (s *ChallengeService) activeQuestIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM quests WHERE is_active = true ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan quest id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *ChallengeService) getByDate(ctx context.Context, userID uuid.UUID, dateKey string) (*challenge.DailyChallenge, error) {
	query := `
	SELECT id, user_id, challenge_date, quest_id, challenge_type, target_metric, target_value, reward_xp, reward_streak, reward_badge, status, expires_at, completed_at, created_at
	FROM daily_challenges
	WHERE user_id = $1 AND challenge_date = $2
	`

	c := &challenge.DailyChallenge{}
	err := s.db.QueryRow(ctx, query, userID, dateKey).Scan(
		&c.ID,
		&c.UserID,
		&c.ChallengeDate,
		&c.QuestID,
		&c.Type,
		&c.Requirement.Metric,
		&c.Requirement.Value,
		&c.Rewards.XP,
		&c.Rewards.Streak,
		&c.Rewards.Badge,
		&c.Status,
		&c.ExpiresAt,
		&c.CompletedAt,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no challenge for %s", apperror.ErrNotFound, dateKey)
		}
		return nil, fmt.Errorf("failed to get daily challenge: %w", err)
	}
	return c, nil
}

func (s *ChallengeService) getByID(ctx context.Context, userID uuid.UUID, challengeID string) (*challenge.DailyChallenge, error) {
	query := `
	SELECT id, user_id, challenge_date, quest_id, challenge_type, target_metric, target_value, reward_xp, reward_streak, reward_badge, status, expires_at, completed_at, created_at
	FROM daily_challenges
	WHERE user_id = $1 AND id = $2
	`

	c := &challenge.DailyChallenge{}
	err := s.db.QueryRow(ctx, query, userID, challengeID).Scan(
		&c.ID,
		&c.UserID,
		&c.ChallengeDate,
		&c.QuestID,
		&c.Type,
		&c.Requirement.Metric,
		&c.Requirement.Value,
		&c.Rewards.XP,
		&c.Rewards.Streak,
		&c.Rewards.Badge,
		&c.Status,
		&c.ExpiresAt,
		&c.CompletedAt,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: challenge %s", apperror.ErrNotFound, challengeID)
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return c, nil
}

// lazyExpire flips an overdue active challenge to expired at read time.
// The transition is one-way; a challenge never returns to active.
func (s *ChallengeService) lazyExpire(ctx context.Context, c *challenge.DailyChallenge, now time.Time) (*challenge.DailyChallenge, error) {
	if c.Status != challenge.StatusActive || !now.After(c.ExpiresAt) {
		return c, nil
	}

	_, err := s.db.Exec(ctx, `
		UPDATE daily_challenges SET status = 'expired' WHERE id = $1 AND status = 'active'
	`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to expire challenge: %w", err)
	}
	c.Status = challenge.StatusExpired
	return c, nil
}

// ExpireOverdue sweeps all overdue active challenges. Called by the
// background worker; the query-time path above covers reads in between.
func (s *ChallengeService) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.Exec(ctx, `
		UPDATE daily_challenges SET status = 'expired' WHERE status = 'active' AND expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire challenges: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// CompleteChallenge validates the completion data against the challenge
// requirement and pays out. Completing an expired or already-completed
// challenge is rejected.
func (s *ChallengeService) CompleteChallenge(ctx context.Context, userID uuid.UUID, challengeID string, data *challenge.CompletionData, now time.Time) (*challenge.CompleteResponse, error) {
	c, err := s.getByID(ctx, userID, challengeID)
	if err != nil {
		return nil, err
	}

	c, err = s.lazyExpire(ctx, c, now)
	if err != nil {
		return nil, err
	}

	if c.Status != challenge.StatusActive {
		return nil, fmt.Errorf("%w: challenge is %s", apperror.ErrState, c.Status)
	}

	if err := meetsRequirement(c, data); err != nil {
		return nil, err
	}

	// Guard the transition so two devices cannot both claim the reward.
	result, err := s.db.Exec(ctx, `
		UPDATE daily_challenges SET status = 'completed', completed_at = $2 WHERE id = $1 AND status = 'active'
	`, c.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete challenge: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: challenge was completed or expired concurrently", apperror.ErrConflict)
	}

	c.Status = challenge.StatusCompleted
	c.CompletedAt = &now

	resp := &challenge.CompleteResponse{Challenge: c, XPAwarded: c.Rewards.XP}

	if c.Rewards.XP > 0 {
		xpResult, err := s.gamification.ApplyXP(ctx, userID, c.Rewards.XP)
		if err != nil {
			return nil, err
		}
		resp.LeveledUp = xpResult.LeveledUp
		resp.NewLevel = xpResult.NewLevel
	}

	if c.Rewards.Streak > 0 {
		if err := s.gamification.BumpStreak(ctx, userID, c.Rewards.Streak, now); err != nil {
			log.Printf("CompleteChallenge: streak bump failed for %s: %v", userID, err)
		}
	}

	if c.Rewards.Badge != "" {
		if err := s.gamification.UnlockBadge(ctx, userID, c.Rewards.Badge); err != nil {
			log.Printf("CompleteChallenge: badge unlock failed for %s: %v", userID, err)
		}
	}

	s.eventService.Emit(ctx, userID, events.ChallengeCompleted, map[string]any{
		"challengeId": c.ID,
		"type":        string(c.Type),
		"xp":          c.Rewards.XP,
	})

	s.gamification.CheckBadgeUnlocks(ctx, userID)

	return resp, nil
}

// meetsRequirement checks completion data against the challenge target.
func meetsRequirement(c *challenge.DailyChallenge, data *challenge.CompletionData) error {
	if data == nil {
		return fmt.Errorf("%w: missing completion data", apperror.ErrValidation)
	}

	switch c.Requirement.Metric {
	case challenge.MetricStepsCompleted:
		if data.StepsCompleted < c.Requirement.Value {
			return fmt.Errorf("%w: %d steps completed, need %d", apperror.ErrValidation, data.StepsCompleted, c.Requirement.Value)
		}
	case challenge.MetricCompletionTime:
		if data.DurationSeconds <= 0 || data.DurationSeconds > c.Requirement.Value {
			return fmt.Errorf("%w: took %ds, limit is %ds", apperror.ErrValidation, data.DurationSeconds, c.Requirement.Value)
		}
	case challenge.MetricPerfectScore:
		if data.Mistakes > c.Requirement.Value {
			return fmt.Errorf("%w: %d mistakes, perfect score required", apperror.ErrValidation, data.Mistakes)
		}
	case challenge.MetricStreakDays:
		if data.StreakDays < c.Requirement.Value {
			return fmt.Errorf("%w: streak is %d days, need %d", apperror.ErrValidation, data.StreakDays, c.Requirement.Value)
		}
	case challenge.MetricCategories:
		if data.Categories < c.Requirement.Value {
			return fmt.Errorf("%w: %d categories explored, need %d", apperror.ErrValidation, data.Categories, c.Requirement.Value)
		}
	default:
		return fmt.Errorf("%w: unknown challenge metric %q", apperror.ErrValidation, c.Requirement.Metric)
	}

	return nil
}
