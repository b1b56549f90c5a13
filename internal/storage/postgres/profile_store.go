package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/mindbreaker/mindbreaker/internal/leveling"
	"github.com/mindbreaker/mindbreaker/internal/profile"
)

// ProfileStore implements profile persistence backed by PostgreSQL.
type ProfileStore struct {
	db *DB
}

// NewProfileStore creates a new PostgreSQL-backed profile store.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// CreateProfile inserts a profile. Level is derived from TotalXP.
func (s *ProfileStore) CreateProfile(ctx context.Context, p *domain.Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.TotalXP < 0 {
		p.TotalXP = 0
	}
	p.Level = leveling.LevelFromXP(p.TotalXP)
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt

	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO profiles (id, username, total_xp, level, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Username, p.TotalXP, p.Level, p.IsAdmin, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by ID.
func (s *ProfileStore) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return getProfile(ctx, s.db.Pool, id)
}

// ListCompletions returns a user's completed quests, most recent first.
func (s *ProfileStore) ListCompletions(ctx context.Context, userID uuid.UUID) ([]domain.Completion, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT user_id, quest_id, completed_at FROM quest_progress
		WHERE user_id = $1 ORDER BY completed_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	completions := []domain.Completion{}
	for rows.Next() {
		var c domain.Completion
		if err := rows.Scan(&c.UserID, &c.QuestID, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

// InTx runs fn against a transaction-scoped view of profiles and progress.
func (s *ProfileStore) InTx(ctx context.Context, fn func(tx profile.Tx) error) error {
	return s.db.InTx(ctx, func(tx pgx.Tx) error {
		return fn(&profileTx{q: tx})
	})
}

// profileTx implements profile.Tx over a pgx.Tx.
type profileTx struct {
	q querier
}

func (tx *profileTx) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return getProfile(ctx, tx.q, id)
}

func (tx *profileTx) GetQuest(ctx context.Context, id uuid.UUID) (*domain.Quest, error) {
	return getQuest(ctx, tx.q, id)
}

func (tx *profileTx) InsertCompletion(ctx context.Context, userID, questID uuid.UUID, at time.Time) (bool, error) {
	res, err := tx.q.Exec(ctx, `
		INSERT INTO quest_progress (user_id, quest_id, completed_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, quest_id) DO NOTHING`, userID, questID, at)
	if err != nil {
		return false, fmt.Errorf("insert completion: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

func (tx *profileTx) DeleteCompletion(ctx context.Context, userID, questID uuid.UUID) (bool, error) {
	res, err := tx.q.Exec(ctx,
		`DELETE FROM quest_progress WHERE user_id = $1 AND quest_id = $2`, userID, questID)
	if err != nil {
		return false, fmt.Errorf("delete completion: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

func (tx *profileTx) SetXP(ctx context.Context, userID uuid.UUID, change leveling.Change) error {
	res, err := tx.q.Exec(ctx, `
		UPDATE profiles SET total_xp = $1, level = $2, updated_at = $3
		WHERE id = $4 AND total_xp = $5`,
		change.TotalXP, change.Level, time.Now().UTC(), userID, change.PreviousXP)
	if err != nil {
		return fmt.Errorf("update xp: %w", err)
	}
	if res.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func getProfile(ctx context.Context, q querier, id uuid.UUID) (*domain.Profile, error) {
	var p domain.Profile
	err := q.QueryRow(ctx, `
		SELECT id, username, total_xp, level, is_admin, created_at, updated_at
		FROM profiles WHERE id = $1`, id).
		Scan(&p.ID, &p.Username, &p.TotalXP, &p.Level, &p.IsAdmin, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}
