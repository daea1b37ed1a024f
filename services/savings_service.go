package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"finquestAPI/internal/apperror"
	"finquestAPI/internal/engine/dailyseed"
	"finquestAPI/internal/engine/impact"
	"finquestAPI/internal/savings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SavingsService struct {
	db           *pgxpool.Pool
	gamification *GamificationService
}

func NewSavingsService(db *pgxpool.Pool, gamification *GamificationService) *SavingsService {
	return &SavingsService{db: db, gamification: gamification}
}

// CreateEvent inserts a savings event and recomputes the aggregate. The
// duplicate check runs first; a likely duplicate surfaces as a conflict the
// caller can override with confirmDuplicate.
func (s *SavingsService) CreateEvent(ctx context.Context, userID uuid.UUID, req *savings.CreateEventRequest) (*savings.Event, *savings.DuplicateCandidate, error) {
	if req.Title == "" {
		return nil, nil, fmt.Errorf("%w: title is required", apperror.ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, nil, fmt.Errorf("%w: amount must be positive", apperror.ErrValidation)
	}
	if req.Period != savings.PeriodMonth && req.Period != savings.PeriodYear {
		return nil, nil, fmt.Errorf("%w: period must be month or year", apperror.ErrValidation)
	}

	source := req.Source
	if source == "" {
		source = savings.SourceManual
	}
	if source != savings.SourceQuest && source != savings.SourceManual {
		return nil, nil, fmt.Errorf("%w: source must be quest or manual", apperror.ErrValidation)
	}

	now := time.Now()

	if !req.ConfirmDuplicate {
		dup, err := s.findDuplicate(ctx, userID, req, now)
		if err != nil {
			return nil, nil, err
		}
		if dup != nil {
			return nil, &savings.DuplicateCandidate{Existing: dup},
				fmt.Errorf("%w: a similar savings event was logged today", apperror.ErrConflict)
		}
	}

	// verified is always false at insert; only the trusted verification
	// path may flip it.
	ev := &savings.Event{
		ID:        uuid.New(),
		UserID:    userID,
		QuestID:   req.QuestID,
		Title:     req.Title,
		Amount:    req.Amount,
		Period:    req.Period,
		Verified:  false,
		Proof:     req.Proof,
		Source:    source,
		CreatedAt: now,
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO savings_events (id, user_id, quest_id, title, amount, period, verified, proof, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8, $9)
	`, ev.ID, ev.UserID, ev.QuestID, ev.Title, ev.Amount, ev.Period, ev.Proof, ev.Source, ev.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert savings event: %w", err)
	}

	if err := s.RecomputeImpact(ctx, userID); err != nil {
		return nil, nil, err
	}

	return ev, nil, nil
}

// findDuplicate looks for a same-day event on the same quest whose title
// shares a service token and whose amount is within ±20%.
func (s *SavingsService) findDuplicate(ctx context.Context, userID uuid.UUID, req *savings.CreateEventRequest, now time.Time) (*savings.Event, error) {
	dateKey := dailyseed.DateKey(now)

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, quest_id, title, amount, period, verified, proof, source, created_at
		FROM savings_events
		WHERE user_id = $1 AND quest_id = $2 AND to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') = $3
	`, userID, req.QuestID, dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query same-day events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ev := &savings.Event{}
		err := rows.Scan(
			&ev.ID,
			&ev.UserID,
			&ev.QuestID,
			&ev.Title,
			&ev.Amount,
			&ev.Period,
			&ev.Verified,
			&ev.Proof,
			&ev.Source,
			&ev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan savings event: %w", err)
		}

		if titlesShareToken(ev.Title, req.Title) && amountWithinTolerance(ev.Amount, req.Amount, 0.20) {
			return ev, nil
		}
	}

	return nil, rows.Err()
}

// titlesShareToken reports whether two titles name the same service or
// category. Tokens shorter than three characters are too generic to match.
func titlesShareToken(a, b string) bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(a)) {
		if len(tok) >= 3 {
			tokens[tok] = true
		}
	}
	for _, tok := range strings.Fields(strings.ToLower(b)) {
		if len(tok) >= 3 && tokens[tok] {
			return true
		}
	}
	return false
}

func amountWithinTolerance(existing, candidate, tolerance float64) bool {
	if existing <= 0 {
		return false
	}
	diff := candidate - existing
	if diff < 0 {
		diff = -diff
	}
	return diff <= existing*tolerance
}

func (s *SavingsService) ListEvents(ctx context.Context, userID uuid.UUID) ([]*savings.Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, quest_id, title, amount, period, verified, proof, source, created_at
		FROM savings_events
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list savings events: %w", err)
	}
	defer rows.Close()

	var list []*savings.Event
	for rows.Next() {
		ev := &savings.Event{}
		err := rows.Scan(
			&ev.ID,
			&ev.UserID,
			&ev.QuestID,
			&ev.Title,
			&ev.Amount,
			&ev.Period,
			&ev.Verified,
			&ev.Proof,
			&ev.Source,
			&ev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan savings event: %w", err)
		}
		list = append(list, ev)
	}

	return list, rows.Err()
}

// DeleteEvent removes an unverified event and recomputes. Verified events
// are immutable apart from proof metadata.
func (s *SavingsService) DeleteEvent(ctx context.Context, userID uuid.UUID, eventID uuid.UUID) error {
	var verified bool
	err := s.db.QueryRow(ctx, `SELECT verified FROM savings_events WHERE id = $1 AND user_id = $2`, eventID, userID).Scan(&verified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: savings event %s", apperror.ErrNotFound, eventID)
		}
		return fmt.Errorf("failed to load savings event: %w", err)
	}
	if verified {
		return fmt.Errorf("%w: verified events cannot be deleted", apperror.ErrState)
	}

	_, err = s.db.Exec(ctx, `DELETE FROM savings_events WHERE id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete savings event: %w", err)
	}

	return s.RecomputeImpact(ctx, userID)
}

// VerifyEvent is the trusted path that marks an event verified. It is never
// reachable from a client-supplied field; the handler guards it with the
// internal verification secret.
func (s *SavingsService) VerifyEvent(ctx context.Context, userID uuid.UUID, eventID uuid.UUID, proof *string) error {
	result, err := s.db.Exec(ctx, `
		UPDATE savings_events
		SET verified = true, proof = COALESCE($3, proof)
		WHERE id = $1 AND user_id = $2
	`, eventID, userID, proof)
	if err != nil {
		return fmt.Errorf("failed to verify savings event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: savings event %s", apperror.ErrNotFound, eventID)
	}

	return s.RecomputeImpact(ctx, userID)
}

// RecomputeImpact rebuilds the aggregate from the complete current event
// set and overwrites the row. Never an incremental patch: a stale overwrite
// from a racing writer is corrected by the next trigger, whereas a wrong
// increment would persist.
func (s *SavingsService) RecomputeImpact(ctx context.Context, userID uuid.UUID) error {
	all, err := s.ListEvents(ctx, userID)
	if err != nil {
		return err
	}

	totals := impact.Recompute(all)

	_, err = s.db.Exec(ctx, `
		INSERT INTO impact_aggregates (user_id, annual_estimated, annual_verified, proofs_verified, last_recalc_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			annual_estimated = EXCLUDED.annual_estimated,
			annual_verified = EXCLUDED.annual_verified,
			proofs_verified = EXCLUDED.proofs_verified,
			last_recalc_at = NOW()
	`, userID, totals.AnnualEstimated, totals.AnnualVerified, totals.ProofsVerifiedCount)
	if err != nil {
		return fmt.Errorf("failed to write impact aggregate: %w", err)
	}

	// Milestones ride on the estimated annual total; failures log and
	// continue so a milestone hiccup never loses the savings write.
	if err := s.gamification.ApplyMilestone(ctx, userID, totals.AnnualEstimated); err != nil {
		log.Printf("RecomputeImpact: milestone update failed for %s: %v", userID, err)
	}

	return nil
}

func (s *SavingsService) GetImpact(ctx context.Context, userID uuid.UUID) (*savings.ImpactResponse, error) {
	events, err := s.ListEvents(ctx, userID)
	if err != nil {
		return nil, err
	}

	agg := &savings.Aggregate{UserID: userID}
	err = s.db.QueryRow(ctx, `
		SELECT annual_estimated, annual_verified, proofs_verified, last_recalc_at
		FROM impact_aggregates
		WHERE user_id = $1
	`, userID).Scan(
		&agg.ImpactAnnualEstimate,
		&agg.ImpactAnnualVerified,
		&agg.ProofsVerifiedCount,
		&agg.LastRecalcAt,
	)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to get impact aggregate: %w", err)
		}
		agg.LastRecalcAt = time.Now()
	}

	if events == nil {
		events = []*savings.Event{}
	}
	return &savings.ImpactResponse{Aggregate: agg, Events: events}, nil
}
