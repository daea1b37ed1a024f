package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"finquestAPI/middleware"
	"finquestAPI/services"

	"github.com/gorilla/mux"
)

type QuestHandler struct {
	questService   *services.QuestService
	contentService *services.ContentService
	userService    *services.UserService
}

func NewQuestHandler(questService *services.QuestService, contentService *services.ContentService, userService *services.UserService) *QuestHandler {
	return &QuestHandler{
		questService:   questService,
		contentService: contentService,
		userService:    userService,
	}
}

func (h *QuestHandler) ListQuests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	quests, err := h.contentService.ListQuests(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list quests")
		return
	}

	respondWithJSON(w, http.StatusOK, quests)
}

func (h *QuestHandler) GetQuest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	questID := mux.Vars(r)["questId"]
	def, err := h.contentService.GetQuest(ctx, questID)
	if err != nil {
		respondWithAppError(w, err, nil)
		return
	}

	respondWithJSON(w, http.StatusOK, def)
}

func (h *QuestHandler) StartQuest(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		Restart bool `json:"restart"`
	}
	if r.Body != nil {
		// Empty body means a plain start.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	questID := mux.Vars(r)["questId"]
	sess, err := h.questService.StartQuest(ctx, userID, questID, req.Restart)
	if err != nil {
		respondWithAppError(w, err, nil)
		return
	}

	respondWithJSON(w, http.StatusCreated, sess)
}

func (h *QuestHandler) SubmitStep(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		Answer json.RawMessage `json:"answer"`
		Skip   bool            `json:"skip"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	vars := mux.Vars(r)
	resp, err := h.questService.SubmitStep(ctx, userID, vars["questId"], vars["stepId"], req.Answer, req.Skip)
	if err != nil {
		respondWithAppError(w, err, nil)
		return
	}
	if resp.QuestDone {
		middleware.CountQuestCompletion()
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *QuestHandler) GetSession(w http.ResponseWriter, r *http.Request) {
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

	sess, err := h.questService.GetSession(ctx, userID, mux.Vars(r)["questId"])
	if err != nil {
		respondWithAppError(w, err, nil)
		return
	}

	respondWithJSON(w, http.StatusOK, sess)
}
