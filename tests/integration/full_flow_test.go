package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finquestAPI/handlers"
	"finquestAPI/internal/session"
	"finquestAPI/middleware"
	"finquestAPI/services"
	"finquestAPI/tests/helpers"
)

// TestFullQuestFlow simulates the complete journey: signup via webhook,
// start a quest, answer a step wrong, recover, and finish with XP banked.
func TestFullQuestFlow(t *testing.T) {
	// Setup
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	eventService := services.NewEventService(pool)
	userService := services.NewUserService(pool)
	contentService := services.NewContentService(pool, userService)
	gamificationService := services.NewGamificationService(pool, eventService)
	questService := services.NewQuestService(pool, contentService, gamificationService, eventService)

	questHandler := handlers.NewQuestHandler(questService, contentService, userService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_" + time.Now().Format("20060102150405")
	questID := "quest_test_" + time.Now().Format("20060102150405")
	helpers.SeedTestQuest(t, pool, questID)

	// Step 1: User signs up via Clerk webhook
	t.Log("Step 1: User signs up")

	createPayload := helpers.MockClerkWebhookPayload("user.created", clerkID)
	req1 := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/clerk", bytes.NewReader(createPayload))
	rr1 := httptest.NewRecorder()

	webhookHandler.HandleClerkWebhook(rr1, req1)
	require.Equal(t, http.StatusOK, rr1.Code, "Webhook should succeed")

	ctx := context.Background()
	dbUser, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	userID, err := userService.GetUserID(ctx, clerkID)
	require.NoError(t, err)

	// Step 2: Start the quest
	t.Log("Step 2: Start quest")

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/quests/"+questID+"/start", strings.NewReader(`{}`))
	req2.Header.Set("Content-Type", "application/json")
	req2 = mux.SetURLVars(req2, map[string]string{"questId": questID})
	req2 = req2.WithContext(context.WithValue(req2.Context(), middleware.ClerkIDKey, clerkID))
	rr2 := httptest.NewRecorder()

	questHandler.StartQuest(rr2, req2)
	require.Equal(t, http.StatusCreated, rr2.Code, rr2.Body.String())

	var sess session.QuestSession
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &sess))
	assert.Equal(t, session.StatusActive, sess.Status)
	assert.Equal(t, 0, sess.CurrentStepIndex)
	assert.Equal(t, dbUser.ClerkID, clerkID)

	submit := func(stepID, body string) (*session.SubmitStepResponse, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/quests/"+questID+"/steps/"+stepID, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req = mux.SetURLVars(req, map[string]string{"questId": questID, "stepId": stepID})
		req = req.WithContext(context.WithValue(req.Context(), middleware.ClerkIDKey, clerkID))
		rr := httptest.NewRecorder()

		questHandler.SubmitStep(rr, req)
		if rr.Code != http.StatusOK {
			return nil, rr
		}

		var resp session.SubmitStepResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		return &resp, rr
	}

	// Step 3: Complete the info step
	t.Log("Step 3: Info step")

	resp3, rr3 := submit("step_intro", `{"answer": {}}`)
	require.Equal(t, http.StatusOK, rr3.Code, rr3.Body.String())
	assert.True(t, resp3.IsCorrect)
	assert.Equal(t, 10, resp3.XPAwarded)
	assert.False(t, resp3.QuestDone)

	// Step 4: Answer the quiz wrong; the cursor must not advance
	t.Log("Step 4: Wrong quiz answer")

	resp4, rr4 := submit("step_quiz", `{"answer": {"selectedIndex": 0}}`)
	require.Equal(t, http.StatusOK, rr4.Code, rr4.Body.String())
	assert.False(t, resp4.IsCorrect)
	assert.Equal(t, 0, resp4.XPAwarded)
	assert.False(t, resp4.QuestDone)
	assert.Equal(t, 1, resp4.Session.CurrentStepIndex)

	// Step 5: Answer correctly, which completes the quest
	t.Log("Step 5: Correct quiz answer completes the quest")

	resp5, rr5 := submit("step_quiz", `{"answer": {"selectedIndex": 1}}`)
	require.Equal(t, http.StatusOK, rr5.Code, rr5.Body.String())
	assert.True(t, resp5.IsCorrect)
	// 20 step XP plus 100 completion plus 50 first-time bonus. The wrong
	// answer in step 4 forfeits the perfect bonus.
	assert.Equal(t, 170, resp5.XPAwarded)
	assert.True(t, resp5.QuestDone)
	assert.Equal(t, 180, resp5.QuestXP)
	assert.Equal(t, session.StatusCompleted, resp5.Session.Status)

	// Step 6: XP banked: 10 + 20 step XP, 100 completion, 50 first-time.
	// No perfect bonus because of the wrong answer in step 4.
	t.Log("Step 6: Verify gamification state")

	state, err := gamificationService.GetState(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 180, state.XPTotal)
	assert.Equal(t, 1, state.Level)
	assert.Equal(t, 1, state.CurrentStreak)

	// The run also left a trail in the event sink.
	var eventCount int
	var questCompletions int
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM activity_events WHERE user_id = $1", userID).Scan(&eventCount))
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM activity_events WHERE user_id = $1 AND event_type = 'quest_completed'", userID).Scan(&questCompletions))
	assert.GreaterOrEqual(t, eventCount, 4, "start, steps and completion all emit events")
	assert.Equal(t, 1, questCompletions)

	// Step 7: Restarting and re-finishing must not double-pay
	t.Log("Step 7: Restart pays no duplicate XP")

	req7 := httptest.NewRequest(http.MethodPost, "/api/v1/quests/"+questID+"/start", strings.NewReader(`{"restart": true}`))
	req7.Header.Set("Content-Type", "application/json")
	req7 = mux.SetURLVars(req7, map[string]string{"questId": questID})
	req7 = req7.WithContext(context.WithValue(req7.Context(), middleware.ClerkIDKey, clerkID))
	rr7 := httptest.NewRecorder()

	questHandler.StartQuest(rr7, req7)
	require.Equal(t, http.StatusCreated, rr7.Code, rr7.Body.String())

	respA, rrA := submit("step_intro", `{"answer": {}}`)
	require.Equal(t, http.StatusOK, rrA.Code)
	assert.Equal(t, 0, respA.XPAwarded, "step XP was already earned in the first run")

	respB, rrB := submit("step_quiz", `{"answer": {"selectedIndex": 1}}`)
	require.Equal(t, http.StatusOK, rrB.Code)
	assert.True(t, respB.QuestDone)

	state2, err := gamificationService.GetState(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 180, state2.XPTotal, "re-completion must not double-pay")
}
