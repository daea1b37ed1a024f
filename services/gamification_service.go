package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"finquestAPI/internal/engine/level"
	"finquestAPI/internal/engine/streak"
	"finquestAPI/internal/events"
	"finquestAPI/internal/gamification"
	"finquestAPI/internal/stats"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GamificationService struct {
	db           *pgxpool.Pool
	eventService *EventService
}

func NewGamificationService(db *pgxpool.Pool, eventService *EventService) *GamificationService {
	return &GamificationService{db: db, eventService: eventService}
}

// ensureState lazily creates the per-user gamification row on first touch.
func (s *GamificationService) ensureState(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO user_gamification (user_id, xp_total, current_streak, longest_streak, created_at, updated_at)
		VALUES ($1, 0, 0, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to ensure gamification state: %w", err)
	}
	return nil
}

func (s *GamificationService) GetState(ctx context.Context, userID uuid.UUID) (*gamification.State, error) {
	if err := s.ensureState(ctx, userID); err != nil {
		return nil, err
	}

	st := &gamification.State{UserID: userID}
	err := s.db.QueryRow(ctx, `
		SELECT xp_total, current_streak, longest_streak, last_activity_date, updated_at
		FROM user_gamification
		WHERE user_id = $1
	`, userID).Scan(
		&st.XPTotal,
		&st.CurrentStreak,
		&st.LongestStreak,
		&st.LastActivityDate,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get gamification state: %w", err)
	}

	// Level is never stored; it is always derived from the XP total.
	st.Level = level.ForXP(st.XPTotal)

	st.Badges, err = s.badgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	st.Milestones, err = s.milestones(ctx, userID)
	if err != nil {
		return nil, err
	}

	return st, nil
}

func (s *GamificationService) badgeIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT badge_id FROM user_badges WHERE user_id = $1 ORDER BY unlocked_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user badges: %w", err)
	}
	defer rows.Close()

	badges := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, id)
	}
	return badges, rows.Err()
}

func (s *GamificationService) milestones(ctx context.Context, userID uuid.UUID) (map[int]time.Time, error) {
	rows, err := s.db.Query(ctx, `SELECT threshold, unlocked_at FROM user_milestones WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch milestones: %w", err)
	}
	defer rows.Close()

	milestones := make(map[int]time.Time)
	for rows.Next() {
		var threshold int
		var at time.Time
		if err := rows.Scan(&threshold, &at); err != nil {
			return nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		milestones[threshold] = at
	}
	return milestones, rows.Err()
}

// ApplyXP adds a non-negative XP delta and reports the level change. XP is
// never subtracted; a negative delta is a programming error.
func (s *GamificationService) ApplyXP(ctx context.Context, userID uuid.UUID, delta int) (*gamification.XPResult, error) {
	if delta < 0 {
		return nil, fmt.Errorf("xp delta must be non-negative, got %d", delta)
	}

	if err := s.ensureState(ctx, userID); err != nil {
		return nil, err
	}

	var newTotal int
	err := s.db.QueryRow(ctx, `
		UPDATE user_gamification
		SET xp_total = xp_total + $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING xp_total
	`, userID, delta).Scan(&newTotal)
	if err != nil {
		return nil, fmt.Errorf("failed to apply xp: %w", err)
	}

	result := &gamification.XPResult{
		XPTotal:  newTotal,
		OldLevel: level.ForXP(newTotal - delta),
		NewLevel: level.ForXP(newTotal),
	}
	result.LeveledUp = result.NewLevel > result.OldLevel

	if result.LeveledUp {
		s.eventService.Emit(ctx, userID, events.LevelUp, map[string]any{
			"oldLevel": result.OldLevel,
			"newLevel": result.NewLevel,
			"xpTotal":  newTotal,
		})
	}

	return result, nil
}

// TouchActivity registers one qualifying activity for today and updates the
// streak. Calling it repeatedly on the same day is a no-op.
func (s *GamificationService) TouchActivity(ctx context.Context, userID uuid.UUID, now time.Time) error {
	if err := s.ensureState(ctx, userID); err != nil {
		return err
	}

	var last *time.Time
	var current, longest int
	err := s.db.QueryRow(ctx, `
		SELECT last_activity_date, current_streak, longest_streak
		FROM user_gamification
		WHERE user_id = $1
	`, userID).Scan(&last, &current, &longest)
	if err != nil {
		return fmt.Errorf("failed to read streak state: %w", err)
	}

	today := streak.Day(now)
	next, change := streak.Evaluate(last, today, current, longest)
	if change == streak.NoChange {
		return nil
	}

	_, err = s.db.Exec(ctx, `
		UPDATE user_gamification
		SET current_streak = $2, longest_streak = $3, last_activity_date = $4, updated_at = NOW()
		WHERE user_id = $1
	`, userID, next.Current, next.Longest, today)
	if err != nil {
		return fmt.Errorf("failed to update streak: %w", err)
	}

	if change == streak.Reset {
		s.eventService.Emit(ctx, userID, events.StreakBroken, map[string]any{
			"previousStreak": current,
			"longestStreak":  next.Longest,
		})
	}

	return nil
}

// BumpStreak force-extends the streak by a challenge reward delta. The
// longest streak follows along, and the bump counts as activity on the
// given day so a later streak evaluation cannot reset what it just paid.
func (s *GamificationService) BumpStreak(ctx context.Context, userID uuid.UUID, delta int, now time.Time) error {
	if delta <= 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		UPDATE user_gamification
		SET current_streak = current_streak + $2,
		    longest_streak = GREATEST(longest_streak, current_streak + $2),
		    last_activity_date = $3,
		    updated_at = NOW()
		WHERE user_id = $1
	`, userID, delta, streak.Day(now))
	if err != nil {
		return fmt.Errorf("failed to bump streak: %w", err)
	}
	return nil
}

// UnlockBadge inserts the badge if the user does not have it yet, awarding
// its bonus XP exactly once. The unlock set is append-only; badges are
// never revoked.
func (s *GamificationService) UnlockBadge(ctx context.Context, userID uuid.UUID, badgeID string) error {
	if badgeID == "" {
		return nil
	}

	var bonusXP int
	err := s.db.QueryRow(ctx, `SELECT bonus_xp FROM badges WHERE id = $1`, badgeID).Scan(&bonusXP)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("unknown badge %s", badgeID)
		}
		return fmt.Errorf("failed to load badge: %w", err)
	}

	result, err := s.db.Exec(ctx, `
		INSERT INTO user_badges (user_id, badge_id, unlocked_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`, userID, badgeID)
	if err != nil {
		return fmt.Errorf("failed to unlock badge: %w", err)
	}

	// Already unlocked: no re-award, no event.
	if result.RowsAffected() == 0 {
		return nil
	}

	s.eventService.Emit(ctx, userID, events.BadgeUnlocked, map[string]any{"badgeId": badgeID})

	if bonusXP > 0 {
		if _, err := s.ApplyXP(ctx, userID, bonusXP); err != nil {
			return fmt.Errorf("failed to award badge bonus xp: %w", err)
		}
	}

	return nil
}

// CheckBadgeUnlocks evaluates the badge rule set against current state and
// unlocks anything newly satisfied. Runs after quest/challenge completion;
// failures here log and continue, they never block the primary transition.
func (s *GamificationService) CheckBadgeUnlocks(ctx context.Context, userID uuid.UUID) {
	st, err := s.GetState(ctx, userID)
	if err != nil {
		log.Printf("CheckBadgeUnlocks: failed to load state for %s: %v", userID, err)
		return
	}

	var questsCompleted, challengesCompleted int
	err = s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM quest_sessions WHERE user_id = $1 AND status = 'completed'),
			(SELECT COUNT(*) FROM daily_challenges WHERE user_id = $1 AND status = 'completed')
	`, userID).Scan(&questsCompleted, &challengesCompleted)
	if err != nil {
		log.Printf("CheckBadgeUnlocks: failed to count completions for %s: %v", userID, err)
		return
	}

	maxMilestone := 0
	for threshold := range st.Milestones {
		if threshold > maxMilestone {
			maxMilestone = threshold
		}
	}

	rows, err := s.db.Query(ctx, `SELECT id, rule_type, rule_value FROM badges`)
	if err != nil {
		log.Printf("CheckBadgeUnlocks: failed to load badge catalog: %v", err)
		return
	}
	defer rows.Close()

	unlocked := make(map[string]bool, len(st.Badges))
	for _, id := range st.Badges {
		unlocked[id] = true
	}

	for rows.Next() {
		var id string
		var ruleType gamification.BadgeRule
		var ruleValue int
		if err := rows.Scan(&id, &ruleType, &ruleValue); err != nil {
			log.Printf("CheckBadgeUnlocks: scan failed: %v", err)
			return
		}

		if unlocked[id] {
			continue
		}

		satisfied := false
		switch ruleType {
		case gamification.RuleQuestsCompleted:
			satisfied = questsCompleted >= ruleValue
		case gamification.RuleStreakDays:
			satisfied = st.CurrentStreak >= ruleValue || st.LongestStreak >= ruleValue
		case gamification.RuleChallengesCompleted:
			satisfied = challengesCompleted >= ruleValue
		case gamification.RuleMilestoneAmount:
			satisfied = maxMilestone >= ruleValue
		case gamification.RuleQuestCompleted:
			// Granted directly by quest completion, not by this sweep.
		}

		if satisfied {
			if err := s.UnlockBadge(ctx, userID, id); err != nil {
				log.Printf("CheckBadgeUnlocks: unlock %s failed for %s: %v", id, userID, err)
			}
		}
	}
}

// ApplyMilestone records each fixed savings threshold at most once.
func (s *GamificationService) ApplyMilestone(ctx context.Context, userID uuid.UUID, totalSavingsAmount float64) error {
	for _, threshold := range gamification.MilestoneThresholds {
		if totalSavingsAmount < float64(threshold) {
			continue
		}
		_, err := s.db.Exec(ctx, `
			INSERT INTO user_milestones (user_id, threshold, unlocked_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (user_id, threshold) DO NOTHING
		`, userID, threshold)
		if err != nil {
			return fmt.Errorf("failed to record milestone %d: %w", threshold, err)
		}
	}
	return nil
}

// GetBadges returns the full catalog with per-user unlock status.
func (s *GamificationService) GetBadges(ctx context.Context, userID uuid.UUID) ([]*gamification.BadgeWithStatus, error) {
	query := `
	SELECT
		b.id,
		b.name,
		b.description,
		b.icon,
		b.rule_type,
		b.rule_value,
		b.bonus_xp,
		b.created_at,
		CASE WHEN ub.badge_id IS NOT NULL THEN true ELSE false END as unlocked,
		ub.unlocked_at
	FROM badges b
	LEFT JOIN user_badges ub ON b.id = ub.badge_id AND ub.user_id = $1
	ORDER BY unlocked DESC, b.rule_value ASC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch badges: %w", err)
	}
	defer rows.Close()

	var badges []*gamification.BadgeWithStatus
	for rows.Next() {
		b := &gamification.BadgeWithStatus{}
		err := rows.Scan(
			&b.ID,
			&b.Name,
			&b.Description,
			&b.Icon,
			&b.RuleType,
			&b.RuleValue,
			&b.BonusXP,
			&b.CreatedAt,
			&b.Unlocked,
			&b.UnlockedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, b)
	}

	return badges, rows.Err()
}

// GetStats assembles the dashboard numbers.
func (s *GamificationService) GetStats(ctx context.Context, userID uuid.UUID) (*stats.UserStats, error) {
	st, err := s.GetState(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &stats.UserStats{
		XPTotal:       st.XPTotal,
		Level:         st.Level,
		XPToNextLevel: level.ToNext(st.XPTotal),
		CurrentStreak: st.CurrentStreak,
		LongestStreak: st.LongestStreak,
		BadgesCount:   len(st.Badges),
	}

	err = s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM quest_sessions WHERE user_id = $1 AND status = 'completed'),
			(SELECT COUNT(*) FROM daily_challenges WHERE user_id = $1 AND status = 'completed'),
			(SELECT COALESCE(MAX(annual_estimated), 0) FROM impact_aggregates WHERE user_id = $1),
			(SELECT COALESCE(MAX(annual_verified), 0) FROM impact_aggregates WHERE user_id = $1)
	`, userID).Scan(&out.QuestsCompleted, &out.ChallengesCompleted, &out.AnnualImpact, &out.AnnualImpactProven)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	return out, nil
}
