package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finquestAPI/internal/apperror"
	"finquestAPI/internal/challenge"
	"finquestAPI/internal/user"
	"finquestAPI/services"
	"finquestAPI/tests/helpers"
)

// TestOverdueChallengeExpiresOnRead seeds an active challenge whose deadline
// already passed and checks that reading it flips the status one-way to
// expired, after which completing it is rejected as a state error.
func TestOverdueChallengeExpiresOnRead(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	eventService := services.NewEventService(pool)
	userService := services.NewUserService(pool)
	gamificationService := services.NewGamificationService(pool, eventService)
	challengeService := services.NewChallengeService(pool, gamificationService, eventService)

	ctx := context.Background()
	clerkID := "user_test_" + time.Now().Format("20060102150405.000")

	created, err := userService.CreateUser(ctx, &user.CreateUserRequest{
		ClerkID:   clerkID,
		Email:     "testchallenge@example.com",
		Username:  "testchallenge",
		FirstName: "Test",
		LastName:  "Challenge",
	})
	require.NoError(t, err)
	userID, err := userService.GetUserID(ctx, created.ClerkID)
	require.NoError(t, err)

	questID := "quest_test_" + time.Now().Format("20060102150405")
	helpers.SeedTestQuest(t, pool, questID)

	now := time.Now().UTC()
	challengeID := "dc_test_overdue"

	// An active challenge whose deadline has already passed.
	_, err = pool.Exec(ctx, `
		INSERT INTO daily_challenges (id, user_id, challenge_date, quest_id, challenge_type,
			target_metric, target_value, reward_xp, reward_streak, reward_badge,
			status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, 'quiz_master',
			'steps_completed', 3, 50, 0, '',
			'active', $5, NOW())
	`, challengeID, userID, now.Format("2006-01-02"), questID, now.Add(-1*time.Hour))
	require.NoError(t, err)

	c, err := challengeService.GetToday(ctx, userID, now)
	require.NoError(t, err)
	assert.Equal(t, challenge.StatusExpired, c.Status, "overdue challenge must read back expired")

	_, err = challengeService.CompleteChallenge(ctx, userID, challengeID,
		&challenge.CompletionData{StepsCompleted: 3}, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrState), "completing an expired challenge must be a state error, got %v", err)

	// The transition is one-way: a second read stays expired.
	c2, err := challengeService.GetToday(ctx, userID, now)
	require.NoError(t, err)
	assert.Equal(t, challenge.StatusExpired, c2.Status)
}

// TestBadgeUnlockPaysBonusOnce unlocks the same badge twice and checks the
// unlock set is append-only: the bonus XP lands exactly once.
func TestBadgeUnlockPaysBonusOnce(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	eventService := services.NewEventService(pool)
	userService := services.NewUserService(pool)
	gamificationService := services.NewGamificationService(pool, eventService)

	ctx := context.Background()
	clerkID := "user_test_" + time.Now().Format("20060102150405.000")

	created, err := userService.CreateUser(ctx, &user.CreateUserRequest{
		ClerkID:   clerkID,
		Email:     "testbadge@example.com",
		Username:  "testbadge",
		FirstName: "Test",
		LastName:  "Badge",
	})
	require.NoError(t, err)
	userID, err := userService.GetUserID(ctx, created.ClerkID)
	require.NoError(t, err)

	badgeID := "badge_test_once"
	_, err = pool.Exec(ctx, `
		INSERT INTO badges (id, name, description, icon, rule_type, rule_value, bonus_xp, created_at)
		VALUES ($1, 'First Steps', 'seeded by tests', 'star', 'quest_completed', 1, 40, NOW())
		ON CONFLICT (id) DO NOTHING
	`, badgeID)
	require.NoError(t, err)
	defer pool.Exec(ctx, "DELETE FROM badges WHERE id = $1", badgeID)

	require.NoError(t, gamificationService.UnlockBadge(ctx, userID, badgeID))

	state, err := gamificationService.GetState(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 40, state.XPTotal, "first unlock pays the bonus")
	assert.Contains(t, state.Badges, badgeID)

	// Second unlock of the same badge: no re-award, badge stays.
	require.NoError(t, gamificationService.UnlockBadge(ctx, userID, badgeID))

	state2, err := gamificationService.GetState(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 40, state2.XPTotal, "re-unlock must not pay the bonus again")
	assert.Contains(t, state2.Badges, badgeID)

	badges, err := gamificationService.GetBadges(ctx, userID)
	require.NoError(t, err)
	for _, b := range badges {
		if b.ID == badgeID {
			assert.True(t, b.Unlocked)
		}
	}
}

// TestStreakBumpCountsAsActivity force-bumps the streak the way a
// streak_keeper reward does and checks a same-day activity touch does not
// reset what the bump just paid.
func TestStreakBumpCountsAsActivity(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	eventService := services.NewEventService(pool)
	userService := services.NewUserService(pool)
	gamificationService := services.NewGamificationService(pool, eventService)

	ctx := context.Background()
	clerkID := "user_test_" + time.Now().Format("20060102150405.000")

	created, err := userService.CreateUser(ctx, &user.CreateUserRequest{
		ClerkID:   clerkID,
		Email:     "teststreakbump@example.com",
		Username:  "teststreakbump",
		FirstName: "Test",
		LastName:  "Streak",
	})
	require.NoError(t, err)
	userID, err := userService.GetUserID(ctx, created.ClerkID)
	require.NoError(t, err)

	// Materialize the state row, then bump.
	_, err = gamificationService.GetState(ctx, userID)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, gamificationService.BumpStreak(ctx, userID, 2, now))

	state, err := gamificationService.GetState(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 2, state.CurrentStreak)

	// A later same-day activity must see the bump day as today's activity
	// and leave the streak alone instead of starting over at 1.
	require.NoError(t, gamificationService.TouchActivity(ctx, userID, now))

	state2, err := gamificationService.GetState(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, state2.CurrentStreak, "same-day touch must not reset a bumped streak")
	assert.Equal(t, 2, state2.LongestStreak)
}
