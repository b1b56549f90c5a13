package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EntityType names a validatable content table
type EntityType string

const (
	EntityOrganization EntityType = "organizations"
	EntityQuest        EntityType = "quests"
	EntityExpedition   EntityType = "expeditions"
)

// EntityTypes lists every validatable type in display order
var EntityTypes = []EntityType{EntityOrganization, EntityQuest, EntityExpedition}

// ParseEntityType converts a path segment into an EntityType
func ParseEntityType(s string) (EntityType, bool) {
	switch EntityType(s) {
	case EntityOrganization, EntityQuest, EntityExpedition:
		return EntityType(s), true
	}
	return "", false
}

// Table returns the SQL table backing the type
func (t EntityType) Table() string {
	return string(t)
}

// NameColumn returns the column holding the human-readable name
func (t EntityType) NameColumn() string {
	if t == EntityOrganization {
		return "name"
	}
	return "title"
}

// SupportsRejectionReason reports whether records of this type can be
// rejected with a stored reason. Only quests carry rejection_reason and
// archived_at columns today.
func (t EntityType) SupportsRejectionReason() bool {
	return t == EntityQuest
}

// Status is the publication state of a content record
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// ValidationState is the derived workflow state of a record
type ValidationState string

const (
	StateDraft     ValidationState = "draft"
	StatePending   ValidationState = "pending"
	StateValidated ValidationState = "validated"
	StateArchived  ValidationState = "archived"
)

// StateOf derives the workflow state from status and the validated flag.
func StateOf(status Status, validated bool) ValidationState {
	switch {
	case status == StatusArchived:
		return StateArchived
	case status == StatusDraft:
		return StateDraft
	case validated:
		return StateValidated
	default:
		return StatePending
	}
}

// Quest is a course; the only type that supports shadow drafts
type Quest struct {
	ID               uuid.UUID      `json:"id"`
	Title            string         `json:"title"`
	Summary          string         `json:"summary"`
	Description      string         `json:"description"`
	Difficulty       string         `json:"difficulty"`
	XPReward         int            `json:"xp_reward"`
	EstimatedMinutes int            `json:"estimated_minutes"`
	OrganizationID   *uuid.UUID     `json:"organization_id,omitempty"`
	ExpeditionID     *uuid.UUID     `json:"expedition_id,omitempty"`
	AuthorID         *uuid.UUID     `json:"author_id,omitempty"`
	Status           Status         `json:"status"`
	IsValidated      bool           `json:"is_validated"`
	DraftData        map[string]any `json:"draft_data,omitempty"`
	EditReason       string         `json:"edit_reason,omitempty"`
	RejectionReason  string         `json:"rejection_reason,omitempty"`
	ArchivedAt       *time.Time     `json:"archived_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// HasDraft reports whether the quest carries a pending shadow edit
func (q *Quest) HasDraft() bool {
	return q.DraftData != nil
}

// State returns the derived workflow state
func (q *Quest) State() ValidationState {
	return StateOf(q.Status, q.IsValidated)
}

// Organization groups quests and expeditions under a publisher
type Organization struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	WebsiteURL  string    `json:"website_url"`
	Status      Status    `json:"status"`
	IsValidated bool      `json:"is_validated"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Expedition is an ordered learning path of quests
type Expedition struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Summary        string     `json:"summary"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	AuthorID       *uuid.UUID `json:"author_id,omitempty"`
	Status         Status     `json:"status"`
	IsValidated    bool       `json:"is_validated"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Entity is the type-independent view of a validatable record
type Entity struct {
	Type        EntityType `json:"type"`
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	AuthorID    *uuid.UUID `json:"author_id,omitempty"`
	Status      Status     `json:"status"`
	IsValidated bool       `json:"is_validated"`
	HasDraft    bool       `json:"has_draft"`
	CreatedAt   time.Time  `json:"created_at"`
}

// State returns the derived workflow state
func (e *Entity) State() ValidationState {
	return StateOf(e.Status, e.IsValidated)
}

// Corrections are admin edits applied together with approval.
// Nil fields are left unchanged.
type Corrections struct {
	Name        *string
	Title       *string
	Description *string
	WebsiteURL  *string
	Summary     *string
}

// Columns returns the column updates that apply to the given type.
// name and title are interchangeable; the type decides the column.
func (c Corrections) Columns(t EntityType) map[string]any {
	cols := make(map[string]any)

	primary, fallback := c.Title, c.Name
	if t == EntityOrganization {
		primary, fallback = c.Name, c.Title
	}
	label := primary
	if label == nil {
		label = fallback
	}
	if label != nil {
		cols[t.NameColumn()] = *label
	}

	switch t {
	case EntityOrganization:
		if c.Description != nil {
			cols["description"] = *c.Description
		}
		if c.WebsiteURL != nil {
			cols["website_url"] = *c.WebsiteURL
		}
	case EntityQuest, EntityExpedition:
		if c.Summary != nil {
			cols["summary"] = *c.Summary
		}
	}
	return cols
}

// DecodeDraft parses a stored draft_data payload; empty input yields nil.
func DecodeDraft(raw []byte) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var draft map[string]any
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, err
	}
	return draft, nil
}
