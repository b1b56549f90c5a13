package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/mindbreaker/mindbreaker/internal/storage"
	"github.com/mindbreaker/mindbreaker/internal/validation"
)

// ContentStore implements content persistence backed by PostgreSQL.
type ContentStore struct {
	db *DB
}

// NewContentStore creates a new PostgreSQL-backed content store.
func NewContentStore(db *DB) *ContentStore {
	return &ContentStore{db: db}
}

// InTx runs fn against a transaction-scoped view of the content tables.
func (s *ContentStore) InTx(ctx context.Context, fn func(tx validation.Tx) error) error {
	return s.db.InTx(ctx, func(tx pgx.Tx) error {
		return fn(&contentTx{q: tx})
	})
}

// Pending lists records awaiting review across all types, newest first.
func (s *ContentStore) Pending(ctx context.Context) ([]domain.Entity, error) {
	out := []domain.Entity{}
	for _, t := range domain.EntityTypes {
		rows, err := s.db.Pool.Query(ctx, entitySelect(t)+" WHERE "+storage.PendingFilter(t))
		if err != nil {
			return nil, fmt.Errorf("query pending %s: %w", t, err)
		}
		entities, err := scanEntities(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending %s: %w", t, err)
		}
		out = append(out, entities...)
	}
	slices.SortStableFunc(out, func(a, b domain.Entity) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// ListQuests returns published, validated quests ordered by title.
func (s *ContentStore) ListQuests(ctx context.Context) ([]domain.Quest, error) {
	rows, err := s.db.Pool.Query(ctx, questSelect+` WHERE status = 'published' AND is_validated ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("query quests: %w", err)
	}
	defer rows.Close()

	quests := []domain.Quest{}
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quest: %w", err)
		}
		quests = append(quests, *q)
	}
	return quests, rows.Err()
}

// ListExpeditions returns published, validated expeditions ordered by title.
func (s *ContentStore) ListExpeditions(ctx context.Context) ([]domain.Expedition, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, title, summary, organization_id, author_id, status, is_validated, created_at, updated_at
		FROM expeditions WHERE status = 'published' AND is_validated ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("query expeditions: %w", err)
	}
	defer rows.Close()

	expeditions := []domain.Expedition{}
	for rows.Next() {
		var e domain.Expedition
		if err := rows.Scan(&e.ID, &e.Title, &e.Summary, &e.OrganizationID, &e.AuthorID,
			&e.Status, &e.IsValidated, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan expedition: %w", err)
		}
		expeditions = append(expeditions, e)
	}
	return expeditions, rows.Err()
}

// ListOrganizations returns validated, non-archived organizations ordered by name.
func (s *ContentStore) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, name, description, website_url, status, is_validated, created_at, updated_at
		FROM organizations WHERE status <> 'archived' AND is_validated ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query organizations: %w", err)
	}
	defer rows.Close()

	orgs := []domain.Organization{}
	for rows.Next() {
		var o domain.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.WebsiteURL,
			&o.Status, &o.IsValidated, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

// ListNames returns every non-archived record of type t with its display name.
func (s *ContentStore) ListNames(ctx context.Context, t domain.EntityType) ([]domain.Entity, error) {
	query := fmt.Sprintf(`SELECT id, %[1]s FROM %[2]s WHERE status <> 'archived' ORDER BY %[1]s`,
		t.NameColumn(), t.Table())
	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s names: %w", t, err)
	}
	defer rows.Close()

	out := []domain.Entity{}
	for rows.Next() {
		e := domain.Entity{Type: t}
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, fmt.Errorf("scan %s name: %w", t, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetQuest loads a single quest outside any transaction.
func (s *ContentStore) GetQuest(ctx context.Context, id uuid.UUID) (*domain.Quest, error) {
	return getQuest(ctx, s.db.Pool, id)
}

// CreateOrganization inserts an organization, filling ID and timestamps when unset.
func (s *ContentStore) CreateOrganization(ctx context.Context, o *domain.Organization) error {
	fillIdentity(&o.ID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO organizations (id, name, description, website_url, status, is_validated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.Name, o.Description, o.WebsiteURL, string(o.Status), o.IsValidated, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

// CreateExpedition inserts an expedition, filling ID and timestamps when unset.
func (s *ContentStore) CreateExpedition(ctx context.Context, e *domain.Expedition) error {
	fillIdentity(&e.ID, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO expeditions (id, title, summary, organization_id, author_id, status, is_validated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Title, e.Summary, e.OrganizationID, e.AuthorID, string(e.Status), e.IsValidated, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert expedition: %w", err)
	}
	return nil
}

// CreateQuest inserts a quest, filling ID and timestamps when unset.
func (s *ContentStore) CreateQuest(ctx context.Context, q *domain.Quest) error {
	fillIdentity(&q.ID, &q.Status, &q.CreatedAt, &q.UpdatedAt)
	if q.Difficulty == "" {
		q.Difficulty = "beginner"
	}

	var draft []byte
	if q.DraftData != nil {
		data, err := json.Marshal(q.DraftData)
		if err != nil {
			return fmt.Errorf("marshal draft_data: %w", err)
		}
		draft = data
	}

	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO quests (id, title, summary, description, difficulty, xp_reward, estimated_minutes,
			organization_id, expedition_id, author_id, status, is_validated, draft_data,
			edit_reason, rejection_reason, archived_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULLIF($14, ''), NULLIF($15, ''), $16, $17, $18)`,
		q.ID, q.Title, q.Summary, q.Description, q.Difficulty, q.XPReward, q.EstimatedMinutes,
		q.OrganizationID, q.ExpeditionID, q.AuthorID, string(q.Status), q.IsValidated, draft,
		q.EditReason, q.RejectionReason, q.ArchivedAt, q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert quest: %w", err)
	}
	return nil
}

// AddExercise attaches an exercise to a quest.
func (s *ContentStore) AddExercise(ctx context.Context, questID uuid.UUID, title string, position int) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO quest_exercises (id, quest_id, title, position) VALUES ($1, $2, $3, $4)`,
		id, questID, title, position)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert exercise: %w", err)
	}
	return id, nil
}

// SaveQuest bookmarks a quest for a user.
func (s *ContentStore) SaveQuest(ctx context.Context, userID, questID uuid.UUID) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO saved_quests (user_id, quest_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, questID)
	if err != nil {
		return fmt.Errorf("save quest: %w", err)
	}
	return nil
}

// SaveExpedition bookmarks an expedition for a user.
func (s *ContentStore) SaveExpedition(ctx context.Context, userID, expeditionID uuid.UUID) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO saved_expeditions (user_id, expedition_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, expeditionID)
	if err != nil {
		return fmt.Errorf("save expedition: %w", err)
	}
	return nil
}

// contentTx implements validation.Tx over a pgx.Tx.
type contentTx struct {
	q querier
}

func (tx *contentTx) GetEntity(ctx context.Context, t domain.EntityType, id uuid.UUID) (*domain.Entity, error) {
	rows, err := tx.q.Query(ctx, entitySelect(t)+" WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t, err)
	}
	entities, err := scanEntities(rows)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", t, err)
	}
	if len(entities) == 0 {
		return nil, domain.NotFoundFor(t)
	}
	return &entities[0], nil
}

func (tx *contentTx) GetQuest(ctx context.Context, id uuid.UUID) (*domain.Quest, error) {
	return getQuest(ctx, tx.q, id)
}

func (tx *contentTx) UpdateEntity(ctx context.Context, t domain.EntityType, id uuid.UUID, expect validation.Expect, set map[string]any) error {
	query, args, err := storage.UpdateEntity(storage.Dollar, t, id, expect, set, time.Now().UTC())
	if err != nil {
		return err
	}
	tag, err := tx.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", t, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (tx *contentTx) ReassignReferences(ctx context.Context, ref domain.Reference, from, to uuid.UUID) (int64, error) {
	if ref.UserScoped {
		if _, err := tx.q.Exec(ctx, storage.DropCollisions(storage.Dollar, ref), from, to); err != nil {
			return 0, fmt.Errorf("drop colliding %s rows: %w", ref.Table, err)
		}
	}
	tag, err := tx.q.Exec(ctx, storage.Reassign(storage.Dollar, ref), to, from)
	if err != nil {
		return 0, fmt.Errorf("reassign %s.%s: %w", ref.Table, ref.Column, err)
	}
	return tag.RowsAffected(), nil
}

func (tx *contentTx) DeleteEntity(ctx context.Context, t domain.EntityType, id uuid.UUID) error {
	tag, err := tx.q.Exec(ctx, "DELETE FROM "+t.Table()+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundFor(t)
	}
	return nil
}

func entitySelect(t domain.EntityType) string {
	switch t {
	case domain.EntityOrganization:
		return `SELECT 'organizations'::text, id, name, NULL::uuid, status, is_validated, FALSE, created_at FROM organizations`
	case domain.EntityExpedition:
		return `SELECT 'expeditions'::text, id, title, author_id, status, is_validated, FALSE, created_at FROM expeditions`
	default:
		return `SELECT 'quests'::text, id, title, author_id, status, is_validated, draft_data IS NOT NULL, created_at FROM quests`
	}
}

func scanEntities(rows pgx.Rows) ([]domain.Entity, error) {
	defer rows.Close()

	var out []domain.Entity
	for rows.Next() {
		var e domain.Entity
		if err := rows.Scan(&e.Type, &e.ID, &e.Name, &e.AuthorID, &e.Status,
			&e.IsValidated, &e.HasDraft, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const questSelect = `
	SELECT id, title, summary, description, difficulty, xp_reward, estimated_minutes,
		organization_id, expedition_id, author_id, status, is_validated, draft_data,
		COALESCE(edit_reason, ''), COALESCE(rejection_reason, ''), archived_at, created_at, updated_at
	FROM quests`

func getQuest(ctx context.Context, q querier, id uuid.UUID) (*domain.Quest, error) {
	quest, err := scanQuest(q.QueryRow(ctx, questSelect+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quest: %w", err)
	}
	return quest, nil
}

func scanQuest(row pgx.Row) (*domain.Quest, error) {
	var (
		q     domain.Quest
		draft []byte
	)
	if err := row.Scan(&q.ID, &q.Title, &q.Summary, &q.Description, &q.Difficulty,
		&q.XPReward, &q.EstimatedMinutes, &q.OrganizationID, &q.ExpeditionID, &q.AuthorID,
		&q.Status, &q.IsValidated, &draft, &q.EditReason, &q.RejectionReason,
		&q.ArchivedAt, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}

	data, err := domain.DecodeDraft(draft)
	if err != nil {
		return nil, fmt.Errorf("decode draft_data: %w", err)
	}
	q.DraftData = data
	return &q, nil
}

func fillIdentity(id *uuid.UUID, status *domain.Status, createdAt, updatedAt *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if *status == "" {
		*status = domain.StatusPublished
	}
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		*updatedAt = *createdAt
	}
}
