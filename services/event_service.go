package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"finquestAPI/internal/events"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PushProvider delivers a notification to a set of device tokens. FCM in
// production, a mock in tests.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []events.DeviceToken, title, body string, data map[string]any) error
}

// EventService is the notification/analytics sink. Everything here is
// fire-and-forget: a failed insert or push is logged and never propagates
// into the state transition that emitted the event.
type EventService struct {
	db           *pgxpool.Pool
	pushProvider PushProvider
}

func NewEventService(db *pgxpool.Pool) *EventService {
	return &EventService{db: db}
}

func (s *EventService) SetPushProvider(p PushProvider) {
	s.pushProvider = p
}

// Emit records a structured event and pushes the user-facing ones.
func (s *EventService) Emit(ctx context.Context, userID uuid.UUID, typ events.Type, payload map[string]any) {
	ev := events.Event{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      typ,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	raw, err := json.Marshal(ev.Payload)
	if err != nil {
		log.Printf("Emit: cannot marshal payload for %s: %v", typ, err)
		raw = []byte(`{}`)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO activity_events (id, user_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ev.ID, ev.UserID, string(ev.Type), raw, ev.CreatedAt)
	if err != nil {
		log.Printf("Emit: failed to record %s for user %s: %v", typ, userID, err)
	}

	if title, body, ok := pushContent(typ, payload); ok {
		s.sendPush(ctx, userID, title, body, payload)
	}
}

// pushContent decides which event types reach the user's device and how.
func pushContent(typ events.Type, payload map[string]any) (string, string, bool) {
	switch typ {
	case events.LevelUp:
		return "Level up!", fmt.Sprintf("You reached level %v. Keep going!", payload["newLevel"]), true
	case events.BadgeUnlocked:
		return "Badge unlocked", fmt.Sprintf("You earned the %v badge.", payload["badgeId"]), true
	case events.StreakBroken:
		return "Streak reset", "Your streak reset. Complete a lesson today to start a new one.", true
	case events.ChallengeCompleted:
		return "Challenge done", "Today's challenge is complete. Nice work!", true
	}
	return "", "", false
}

func (s *EventService) sendPush(ctx context.Context, userID uuid.UUID, title, body string, data map[string]any) {
	if s.pushProvider == nil {
		return
	}

	tokens, err := s.getDeviceTokens(ctx, userID)
	if err != nil {
		log.Printf("sendPush: failed to load tokens for %s: %v", userID, err)
		return
	}

	if err := s.pushProvider.SendPush(ctx, tokens, title, body, data); err != nil {
		log.Printf("sendPush: delivery failed for %s: %v", userID, err)
	}
}

func (s *EventService) getDeviceTokens(ctx context.Context, userID uuid.UUID) ([]events.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id, token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []events.DeviceToken
	for rows.Next() {
		var t events.DeviceToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.Platform); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
