package domain

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a user's gamification state.
// Level is persisted for listing queries but is always derived from TotalXP;
// only the profile service writes either field.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	TotalXP   int       `json:"total_xp"`
	Level     int       `json:"level"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Completion records that a user finished a quest.
type Completion struct {
	UserID      uuid.UUID `json:"user_id"`
	QuestID     uuid.UUID `json:"quest_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Notification is a message addressed to a single user
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Kind      string     `json:"kind"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// Notification kinds
const (
	NotificationQuestApproved = "quest_approved"
	NotificationQuestRejected = "quest_rejected"
	NotificationLevelUp       = "level_up"
)
