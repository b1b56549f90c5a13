package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/mindbreaker/mindbreaker/internal/auth"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/mindbreaker/mindbreaker/internal/profile"
)

// ProfileHandler handles the caller's profile and quest completion
type ProfileHandler struct {
	svc *profile.Service
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(svc *profile.Service) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

// Get handles GET /api/v1/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Get(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, view)
}

// Complete handles POST /api/v1/quests/{id}/complete
func (h *ProfileHandler) Complete(w http.ResponseWriter, r *http.Request) {
	actor := auth.FromContext(r.Context())
	questID, err := questIDFrom(r, actor)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	change, err := h.svc.CompleteQuest(r.Context(), actor, questID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, change)
}

// Undo handles DELETE /api/v1/quests/{id}/complete
func (h *ProfileHandler) Undo(w http.ResponseWriter, r *http.Request) {
	actor := auth.FromContext(r.Context())
	questID, err := questIDFrom(r, actor)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	change, err := h.svc.UndoCompletion(r.Context(), actor, questID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, change)
}

// questIDFrom checks the caller before the path so guests get 401
func questIDFrom(r *http.Request, actor auth.Capability) (uuid.UUID, error) {
	if err := actor.RequireUser(); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, domain.ErrQuestNotFound
	}
	return id, nil
}
