package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"finquestAPI/internal/apperror"
	"finquestAPI/internal/quest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContentService is the read-only quest content source. Definitions are
// authored elsewhere and schema-checked before they land in the quests
// tables; the engine never mutates them.
type ContentService struct {
	db          *pgxpool.Pool
	userService *UserService
}

func NewContentService(db *pgxpool.Pool, userService *UserService) *ContentService {
	return &ContentService{db: db, userService: userService}
}

func (s *ContentService) GetQuest(ctx context.Context, questID string) (*quest.Definition, error) {
	query := `
	SELECT id, title, description, category, premium_only, is_active,
	       badge_id, completion_xp, first_time_bonus_xp, speed_bonus_xp, speed_threshold_secs, perfect_bonus_xp,
	       created_at
	FROM quests
	WHERE id = $1
	`

	def := &quest.Definition{}
	err := s.db.QueryRow(ctx, query, questID).Scan(
		&def.ID,
		&def.Title,
		&def.Description,
		&def.Category,
		&def.PremiumOnly,
		&def.IsActive,
		&def.Rewards.BadgeID,
		&def.Rewards.CompletionXP,
		&def.Rewards.FirstTimeBonusXP,
		&def.Rewards.SpeedBonusXP,
		&def.Rewards.SpeedThresholdSecs,
		&def.Rewards.PerfectBonusXP,
		&def.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: quest %s", apperror.ErrNotFound, questID)
		}
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}

	def.Steps, err = s.getSteps(ctx, questID)
	if err != nil {
		return nil, err
	}

	return def, nil
}

// getSteps loads the ordered step list. Kind-specific fields live in a
// jsonb spec column and are unmarshaled onto the Step struct.
func (s *ContentService) getSteps(ctx context.Context, questID string) ([]quest.Step, error) {
	query := `
	SELECT id, quest_id, position, kind, title, skippable, xp, spec
	FROM quest_steps
	WHERE quest_id = $1
	ORDER BY position ASC
	`

	rows, err := s.db.Query(ctx, query, questID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quest steps: %w", err)
	}
	defer rows.Close()

	var steps []quest.Step
	for rows.Next() {
		var step quest.Step
		var spec []byte
		err := rows.Scan(
			&step.ID,
			&step.QuestID,
			&step.Position,
			&step.Kind,
			&step.Title,
			&step.Skippable,
			&step.XP,
			&spec,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest step: %w", err)
		}

		if len(spec) > 0 {
			if err := json.Unmarshal(spec, &step); err != nil {
				log.Printf("getSteps: bad spec payload for step %s: %v", step.ID, err)
			}
		}

		steps = append(steps, step)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return steps, nil
}

// ListQuests returns all active quests with a per-user access flag.
func (s *ContentService) ListQuests(ctx context.Context, clerkID string) ([]*quest.DefinitionWithAccess, error) {
	userID, err := s.userService.GetUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	isPremium, err := s.userService.IsPremiumUser(ctx, userID.String())
	if err != nil {
		log.Printf("ListQuests: premium check failed: %v", err)
		isPremium = false
	}

	query := `
	SELECT id, title, description, category, premium_only, is_active,
	       badge_id, completion_xp, first_time_bonus_xp, speed_bonus_xp, speed_threshold_secs, perfect_bonus_xp,
	       created_at
	FROM quests
	WHERE is_active = true
	ORDER BY category, id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	defer rows.Close()

	var quests []*quest.DefinitionWithAccess
	for rows.Next() {
		q := &quest.DefinitionWithAccess{}
		err := rows.Scan(
			&q.ID,
			&q.Title,
			&q.Description,
			&q.Category,
			&q.PremiumOnly,
			&q.IsActive,
			&q.Rewards.BadgeID,
			&q.Rewards.CompletionXP,
			&q.Rewards.FirstTimeBonusXP,
			&q.Rewards.SpeedBonusXP,
			&q.Rewards.SpeedThresholdSecs,
			&q.Rewards.PerfectBonusXP,
			&q.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		q.CanAccess = !q.PremiumOnly || isPremium
		quests = append(quests, q)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return quests, nil
}

// CanAccessQuest gates premium-only quests on the subscription flag.
func (s *ContentService) CanAccessQuest(ctx context.Context, userID string, def *quest.Definition) (bool, error) {
	if !def.PremiumOnly {
		return true, nil
	}
	return s.userService.IsPremiumUser(ctx, userID)
}
