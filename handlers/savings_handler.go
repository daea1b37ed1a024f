package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"finquestAPI/internal/savings"
	"finquestAPI/middleware"
	"finquestAPI/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type SavingsHandler struct {
	savingsService *services.SavingsService
	userService    *services.UserService
}

func NewSavingsHandler(savingsService *services.SavingsService, userService *services.UserService) *SavingsHandler {
	return &SavingsHandler{
		savingsService: savingsService,
		userService:    userService,
	}
}

func (h *SavingsHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	userID, err := h.userService.GetUserID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	var req savings.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ev, dup, err := h.savingsService.CreateEvent(ctx, userID, &req)
	if err != nil {
		var extra map[string]any
		if dup != nil {
			extra = map[string]any{"duplicateCandidate": dup}
		}
		respondWithAppError(w, err, extra)
		return
	}

	respondWithJSON(w, http.StatusCreated, ev)
}

func (h *SavingsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	userID, err := h.userService.GetUserID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	events, err := h.savingsService.ListEvents(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list savings events")
		return
	}

	if events == nil {
		events = []*savings.Event{}
	}
	respondWithJSON(w, http.StatusOK, events)
}

func (h *SavingsHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	userID, err := h.userService.GetUserID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	eventID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid event id")
		return
	}

	if err := h.savingsService.DeleteEvent(ctx, userID, eventID); err != nil {
		respondWithAppError(w, err, nil)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Savings event deleted"})
}

func (h *SavingsHandler) GetImpact(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	userID, err := h.userService.GetUserID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	impact, err := h.savingsService.GetImpact(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load impact")
		return
	}

	respondWithJSON(w, http.StatusOK, impact)
}

// VerifyEvent is the trusted verification path. It is gated on a shared
// internal secret, not on the user's own auth: verified is never
// client-settable.
func (h *SavingsHandler) VerifyEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	secret := os.Getenv("VERIFICATION_SECRET")
	if secret == "" || r.Header.Get("X-Verification-Secret") != secret {
		respondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}

	var req struct {
		UserID string  `json:"userId"`
		Proof  *string `json:"proof,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	eventID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid event id")
		return
	}

	if err := h.savingsService.VerifyEvent(ctx, userID, eventID, req.Proof); err != nil {
		respondWithAppError(w, err, nil)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Savings event verified"})
}
