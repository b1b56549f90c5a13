package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/mindbreaker/mindbreaker/internal/auth"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/mindbreaker/mindbreaker/internal/validation"
)

// Validation actions accepted in request bodies
const (
	ActionApprove = "approve"
	ActionUpdate  = "update"
	ActionReject  = "reject"
	ActionMerge   = "merge"
)

// ValidationHandler handles the admin moderation endpoints
type ValidationHandler struct {
	svc *validation.Service
}

// NewValidationHandler creates a new validation handler
func NewValidationHandler(svc *validation.Service) *ValidationHandler {
	return &ValidationHandler{svc: svc}
}

// ValidationRequest is the body of PATCH and POST validation requests
type ValidationRequest struct {
	Action          string  `json:"action"`
	Name            *string `json:"name"`
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	WebsiteURL      *string `json:"website_url"`
	Summary         *string `json:"summary"`
	RejectionReason string  `json:"rejection_reason"`
	Reason          string  `json:"reason"`
	TargetID        string  `json:"targetId"`
}

func (req ValidationRequest) corrections() domain.Corrections {
	return domain.Corrections{
		Name:        req.Name,
		Title:       req.Title,
		Description: req.Description,
		WebsiteURL:  req.WebsiteURL,
		Summary:     req.Summary,
	}
}

func (req ValidationRequest) reason() string {
	if req.RejectionReason != "" {
		return req.RejectionReason
	}
	return req.Reason
}

// target resolves ids; a malformed id cannot name an existing record
func (h *ValidationHandler) target(r *http.Request) (auth.Capability, domain.EntityType, uuid.UUID, error) {
	actor := auth.FromContext(r.Context())
	if err := actor.RequireAdmin(); err != nil {
		return actor, "", uuid.Nil, err
	}

	t, ok := domain.ParseEntityType(r.PathValue("type"))
	if !ok {
		return actor, "", uuid.Nil, domain.NewInputError(validation.MsgInvalidType)
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return actor, t, uuid.Nil, domain.NotFoundFor(t)
	}
	return actor, t, id, nil
}

func decodeRequest(r *http.Request) (ValidationRequest, error) {
	var req ValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, domain.NewInputError(MsgInvalidBody)
	}
	return req, nil
}

// Patch handles PATCH /api/v1/validations/{type}/{id}
func (h *ValidationHandler) Patch(w http.ResponseWriter, r *http.Request) {
	actor, t, id, err := h.target(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	req, err := decodeRequest(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	switch req.Action {
	case ActionApprove:
		err = h.svc.Approve(r.Context(), actor, t, id)
	case ActionUpdate:
		err = h.svc.Update(r.Context(), actor, t, id, req.corrections())
	case ActionReject:
		err = h.svc.Reject(r.Context(), actor, t, id, req.reason())
	default:
		err = domain.NewInputError(validation.MsgInvalidAction)
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w)
}

// Post handles POST /api/v1/validations/{type}/{id}
func (h *ValidationHandler) Post(w http.ResponseWriter, r *http.Request) {
	actor, t, id, err := h.target(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	req, err := decodeRequest(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if req.Action != ActionMerge {
		WriteError(w, r, domain.NewInputError(validation.MsgInvalidAction))
		return
	}

	target := uuid.Nil
	if req.TargetID != "" {
		if target, err = uuid.Parse(req.TargetID); err != nil {
			WriteError(w, r, domain.NewInputError(validation.MsgInvalidTarget))
			return
		}
	}

	if err := h.svc.Merge(r.Context(), actor, t, id, target); err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w)
}

// Delete handles DELETE /api/v1/validations/{type}/{id}
func (h *ValidationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, t, id, err := h.target(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), actor, t, id); err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w)
}

// PendingResponse lists records awaiting validation
type PendingResponse struct {
	Items []domain.Entity `json:"items"`
}

// Pending handles GET /api/v1/validations
func (h *ValidationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Pending(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Entity{}
	}

	WriteJSON(w, http.StatusOK, PendingResponse{Items: items})
}
