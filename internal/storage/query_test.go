package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/mindbreaker/mindbreaker/internal/validation"
)

func TestUpdateEntity(t *testing.T) {
	id := uuid.New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expect := validation.Expect{Status: domain.StatusPublished, IsValidated: true, HasDraft: true}

	query, args, err := UpdateEntity(Dollar, domain.EntityQuest, id, expect,
		map[string]any{"title": "New", "draft_data": nil}, now)
	if err != nil {
		t.Fatalf("UpdateEntity() error = %v", err)
	}

	want := "UPDATE quests SET draft_data = $1, title = $2, updated_at = $3 " +
		"WHERE id = $4 AND status = $5 AND is_validated = $6 AND draft_data IS NOT NULL"
	if query != want {
		t.Errorf("query = %q\nwant  %q", query, want)
	}
	if len(args) != 6 {
		t.Fatalf("args = %d; want 6", len(args))
	}
	if args[0] != nil {
		t.Errorf("draft_data arg = %v; want nil", args[0])
	}
	if args[3] != id || args[4] != "published" || args[5] != true {
		t.Errorf("where args = %v", args[3:])
	}
}

func TestUpdateEntity_EncodesJSON(t *testing.T) {
	_, args, err := UpdateEntity(Question, domain.EntityQuest, uuid.New(), validation.Expect{},
		map[string]any{"draft_data": map[string]any{"title": "x"}}, time.Now())
	if err != nil {
		t.Fatalf("UpdateEntity() error = %v", err)
	}
	data, ok := args[0].([]byte)
	if !ok || string(data) != `{"title":"x"}` {
		t.Errorf("draft_data arg = %v; want encoded JSON", args[0])
	}
}

func TestUpdateEntity_NoDraftClauseForOtherTypes(t *testing.T) {
	query, _, err := UpdateEntity(Question, domain.EntityOrganization, uuid.New(),
		validation.Expect{Status: domain.StatusPublished}, map[string]any{"is_validated": true}, time.Now())
	if err != nil {
		t.Fatalf("UpdateEntity() error = %v", err)
	}
	if strings.Contains(query, "draft_data") {
		t.Errorf("query = %q; organizations have no draft_data", query)
	}
}

func TestUpdateEntity_RejectsColumns(t *testing.T) {
	tests := []struct {
		name string
		t    domain.EntityType
		col  string
	}{
		{"id", domain.EntityQuest, "id"},
		{"updated_at", domain.EntityQuest, "updated_at"},
		{"unknown", domain.EntityQuest, "password"},
		{"other type", domain.EntityOrganization, "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := UpdateEntity(Question, tt.t, uuid.New(), validation.Expect{},
				map[string]any{tt.col: "x"}, time.Now())
			if err == nil {
				t.Errorf("UpdateEntity(%s.%s) error = nil; want error", tt.t, tt.col)
			}
		})
	}
}

func TestReferenceQueries(t *testing.T) {
	ref := domain.Reference{Table: "saved_quests", Column: "quest_id", UserScoped: true}

	got := DropCollisions(Dollar, ref)
	want := "DELETE FROM saved_quests WHERE quest_id = $1 AND user_id IN (SELECT user_id FROM saved_quests WHERE quest_id = $2)"
	if got != want {
		t.Errorf("DropCollisions() = %q\nwant %q", got, want)
	}

	got = Reassign(Question, ref)
	want = "UPDATE saved_quests SET quest_id = ? WHERE quest_id = ?"
	if got != want {
		t.Errorf("Reassign() = %q\nwant %q", got, want)
	}
}

func TestPendingFilter(t *testing.T) {
	if !strings.Contains(PendingFilter(domain.EntityQuest), "draft_data IS NOT NULL") {
		t.Error("quest filter should include shadow drafts")
	}
	if strings.Contains(PendingFilter(domain.EntityExpedition), "draft_data") {
		t.Error("expedition filter should not mention draft_data")
	}
}
