package handlers

import (
	"net/http"

	"github.com/mindbreaker/mindbreaker/internal/catalog"
	"github.com/mindbreaker/mindbreaker/internal/domain"
)

// CatalogHandler serves the public content listings
type CatalogHandler struct {
	svc *catalog.Service
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(svc *catalog.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// Quests handles GET /api/v1/quests
func (h *CatalogHandler) Quests(w http.ResponseWriter, r *http.Request) {
	quests, err := h.svc.ListQuests(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if quests == nil {
		quests = []domain.Quest{}
	}
	WriteJSON(w, http.StatusOK, quests)
}

// Expeditions handles GET /api/v1/expeditions
func (h *CatalogHandler) Expeditions(w http.ResponseWriter, r *http.Request) {
	expeditions, err := h.svc.ListExpeditions(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if expeditions == nil {
		expeditions = []domain.Expedition{}
	}
	WriteJSON(w, http.StatusOK, expeditions)
}

// Organizations handles GET /api/v1/organizations
func (h *CatalogHandler) Organizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.svc.ListOrganizations(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if orgs == nil {
		orgs = []domain.Organization{}
	}
	WriteJSON(w, http.StatusOK, orgs)
}

// Search handles GET /api/v1/search?q=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, results)
}

// Similar handles GET /api/v1/similar/{type}?q=
func (h *CatalogHandler) Similar(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Similar(r.Context(), domain.EntityType(r.PathValue("type")), r.URL.Query().Get("q"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
