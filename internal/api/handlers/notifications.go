package handlers

import (
	"net/http"
	"strconv"

	"github.com/mindbreaker/mindbreaker/internal/auth"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/mindbreaker/mindbreaker/internal/notify"
)

// NotificationHandler serves the caller's notifications
type NotificationHandler struct {
	svc *notify.Service
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(svc *notify.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List handles GET /api/v1/notifications?limit=
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := notify.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, r, domain.NewInputError(MsgInvalidLimit))
			return
		}
		limit = n
	}

	items, err := h.svc.List(r.Context(), auth.FromContext(r.Context()), limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Notification{}
	}
	WriteJSON(w, http.StatusOK, items)
}
