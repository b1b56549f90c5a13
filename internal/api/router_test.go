package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mindbreaker/mindbreaker/internal/api"
	"github.com/mindbreaker/mindbreaker/internal/api/handlers"
	"github.com/mindbreaker/mindbreaker/internal/auth"
	"github.com/mindbreaker/mindbreaker/internal/config"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/mindbreaker/mindbreaker/internal/similarity"
	"github.com/mindbreaker/mindbreaker/internal/storage/sqlite"
	"github.com/mindbreaker/mindbreaker/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler  http.Handler
	content  *sqlite.ContentStore
	profiles *sqlite.ProfileStore
	secret   []byte
	admin    *domain.Profile
	learner  *domain.Profile
}

func newTestServer(t *testing.T, ping func(context.Context) error) *testServer {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	cfg := config.Default()
	cfg.Debug = true
	cfg.JWTSecret = "test-secret"

	content := sqlite.NewContentStore(db)
	profiles := sqlite.NewProfileStore(db)

	app, err := api.NewApp(api.AppConfig{
		Config:        cfg,
		Content:       content,
		Profiles:      profiles,
		Notifications: sqlite.NewNotificationStore(db),
		Ping:          ping,
	})
	require.NoError(t, err)
	app.DeliverInline()

	router := api.NewRouter(app)
	t.Cleanup(func() { router.Close() })

	ctx := context.Background()
	adminProfile := &domain.Profile{Username: "admin", IsAdmin: true}
	require.NoError(t, profiles.CreateProfile(ctx, adminProfile))
	learner := &domain.Profile{Username: "learner", TotalXP: 950}
	require.NoError(t, profiles.CreateProfile(ctx, learner))

	return &testServer{
		handler:  router.Handler(),
		content:  content,
		profiles: profiles,
		secret:   cfg.Secret(),
		admin:    adminProfile,
		learner:  learner,
	}
}

func (s *testServer) token(t *testing.T, p *domain.Profile) string {
	t.Helper()
	token, err := auth.IssueToken(p.ID, s.secret, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error
}

func (s *testServer) createQuest(t *testing.T, q *domain.Quest) *domain.Quest {
	t.Helper()
	require.NoError(t, s.content.CreateQuest(context.Background(), q))
	return q
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReady(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s := newTestServer(t, func(context.Context) error { return nil })
		rec := s.do(t, http.MethodGet, "/ready", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("database down", func(t *testing.T) {
		s := newTestServer(t, func(context.Context) error { return errors.New("connection refused") })
		rec := s.do(t, http.MethodGet, "/ready", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "unhealthy")
	})
}

func TestValidations_Authorization(t *testing.T) {
	s := newTestServer(t, nil)
	q := s.createQuest(t, &domain.Quest{Title: "Pending"})
	path := "/api/v1/validations/quests/" + q.ID.String()

	tests := []struct {
		name    string
		token   string
		status  int
		message string
	}{
		{"guest", "", http.StatusUnauthorized, "Unauthorized"},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized, "Unauthorized"},
		{"non-admin", s.token(t, s.learner), http.StatusForbidden, "Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPatch, path, tt.token, map[string]string{"action": "approve"})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, errorMessage(t, rec))
		})
	}

	got, err := s.content.GetQuest(context.Background(), q.ID)
	require.NoError(t, err)
	assert.False(t, got.IsValidated, "unauthorized callers must not change the record")
}

func TestValidations_ApproveShadowDraft(t *testing.T) {
	s := newTestServer(t, nil)
	q := s.createQuest(t, &domain.Quest{
		Title:       "Old Title",
		IsValidated: true,
		DraftData:   map[string]any{"title": "New Title", "xp_reward": float64(250)},
	})

	rec := s.do(t, http.MethodPatch, "/api/v1/validations/quests/"+q.ID.String(), s.token(t, s.admin),
		map[string]string{"action": "approve"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	got, err := s.content.GetQuest(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.Equal(t, 250, got.XPReward)
	assert.Nil(t, got.DraftData)
}

func TestValidations_UpdateWithCorrections(t *testing.T) {
	s := newTestServer(t, nil)
	q := s.createQuest(t, &domain.Quest{Title: "Lernin Go"})

	rec := s.do(t, http.MethodPatch, "/api/v1/validations/quests/"+q.ID.String(), s.token(t, s.admin),
		map[string]string{"action": "update", "title": "Learning Go", "summary": "Basics"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := s.content.GetQuest(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, "Learning Go", got.Title)
	assert.Equal(t, "Basics", got.Summary)
	assert.True(t, got.IsValidated)
}

func TestValidations_BadRequests(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.token(t, s.admin)
	q := s.createQuest(t, &domain.Quest{Title: "Quest"})
	org := &domain.Organization{Name: "Org"}
	require.NoError(t, s.content.CreateOrganization(context.Background(), org))

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		status  int
		message string
	}{
		{
			name:    "reject organization with reason",
			method:  http.MethodPatch,
			path:    "/api/v1/validations/organizations/" + org.ID.String(),
			body:    map[string]string{"action": "reject", "rejection_reason": "duplicate"},
			status:  http.StatusBadRequest,
			message: validation.MsgReasonUnsupported,
		},
		{
			name:    "reject without reason",
			method:  http.MethodPatch,
			path:    "/api/v1/validations/quests/" + q.ID.String(),
			body:    map[string]string{"action": "reject"},
			status:  http.StatusBadRequest,
			message: validation.MsgReasonRequired,
		},
		{
			name:    "unknown type",
			method:  http.MethodPatch,
			path:    "/api/v1/validations/users/" + q.ID.String(),
			body:    map[string]string{"action": "approve"},
			status:  http.StatusBadRequest,
			message: validation.MsgInvalidType,
		},
		{
			name:    "unknown action",
			method:  http.MethodPatch,
			path:    "/api/v1/validations/quests/" + q.ID.String(),
			body:    map[string]string{"action": "publish"},
			status:  http.StatusBadRequest,
			message: validation.MsgInvalidAction,
		},
		{
			name:    "merge without target",
			method:  http.MethodPost,
			path:    "/api/v1/validations/quests/" + q.ID.String(),
			body:    map[string]string{"action": "merge"},
			status:  http.StatusBadRequest,
			message: validation.MsgTargetRequired,
		},
		{
			name:    "merge with malformed target",
			method:  http.MethodPost,
			path:    "/api/v1/validations/quests/" + q.ID.String(),
			body:    map[string]string{"action": "merge", "targetId": "nope"},
			status:  http.StatusBadRequest,
			message: validation.MsgInvalidTarget,
		},
		{
			name:    "post with non-merge action",
			method:  http.MethodPost,
			path:    "/api/v1/validations/quests/" + q.ID.String(),
			body:    map[string]string{"action": "approve"},
			status:  http.StatusBadRequest,
			message: validation.MsgInvalidAction,
		},
		{
			name:    "delete missing record",
			method:  http.MethodDelete,
			path:    "/api/v1/validations/quests/" + uuid.NewString(),
			status:  http.StatusNotFound,
			message: "Not found",
		},
		{
			name:    "malformed id",
			method:  http.MethodDelete,
			path:    "/api/v1/validations/quests/123",
			status:  http.StatusNotFound,
			message: "Not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, admin, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.message, errorMessage(t, rec))
		})
	}
}

func TestValidations_RejectQuest(t *testing.T) {
	s := newTestServer(t, nil)
	q := s.createQuest(t, &domain.Quest{Title: "Spam", AuthorID: &s.learner.ID})

	rec := s.do(t, http.MethodPatch, "/api/v1/validations/quests/"+q.ID.String(), s.token(t, s.admin),
		map[string]string{"action": "reject", "rejection_reason": "off topic"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := s.content.GetQuest(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, got.Status)
	assert.Equal(t, "off topic", got.RejectionReason)

	// The author hears about it
	rec = s.do(t, http.MethodGet, "/api/v1/notifications", s.token(t, s.learner), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notes []domain.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, s.learner.ID, notes[0].UserID)
}

func TestValidations_MergeAndPending(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.token(t, s.admin)
	ctx := context.Background()

	dup := &domain.Organization{Name: "Golang Team"}
	keep := &domain.Organization{Name: "Go Team", IsValidated: true}
	require.NoError(t, s.content.CreateOrganization(ctx, dup))
	require.NoError(t, s.content.CreateOrganization(ctx, keep))
	q := s.createQuest(t, &domain.Quest{Title: "Owned", OrganizationID: &dup.ID, IsValidated: true})

	rec := s.do(t, http.MethodGet, "/api/v1/validations", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending handlers.PendingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Len(t, pending.Items, 1)
	assert.Equal(t, dup.ID, pending.Items[0].ID)

	rec = s.do(t, http.MethodPost, "/api/v1/validations/organizations/"+dup.ID.String(), admin,
		map[string]string{"action": "merge", "targetId": keep.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := s.content.GetQuest(ctx, q.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OrganizationID)
	assert.Equal(t, keep.ID, *got.OrganizationID)

	rec = s.do(t, http.MethodGet, "/api/v1/validations", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	assert.Empty(t, pending.Items, "the cached pending list must be invalidated by the merge")
}

func TestValidations_Delete(t *testing.T) {
	s := newTestServer(t, nil)
	q := s.createQuest(t, &domain.Quest{Title: "Gone"})

	rec := s.do(t, http.MethodDelete, "/api/v1/validations/quests/"+q.ID.String(), s.token(t, s.admin), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err := s.content.GetQuest(context.Background(), q.ID)
	assert.ErrorIs(t, err, domain.ErrQuestNotFound)
}

func TestProfile_CompleteAndUndo(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(t, s.learner)
	q := s.createQuest(t, &domain.Quest{Title: "Channels", XPReward: 100, IsValidated: true})
	path := "/api/v1/quests/" + q.ID.String() + "/complete"

	rec := s.do(t, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var change struct {
		TotalXP   int  `json:"total_xp"`
		Level     int  `json:"level"`
		LeveledUp bool `json:"leveled_up"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &change))
	assert.Equal(t, 1050, change.TotalXP)
	assert.Equal(t, 2, change.Level)
	assert.True(t, change.LeveledUp)

	rec = s.do(t, http.MethodGet, "/api/v1/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Profile   domain.Profile `json:"profile"`
		Completed []uuid.UUID    `json:"completed_quest_ids"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 2, view.Profile.Level)
	assert.Equal(t, []uuid.UUID{q.ID}, view.Completed)

	rec = s.do(t, http.MethodGet, "/api/v1/notifications", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notes []domain.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationLevelUp, notes[0].Kind)

	rec = s.do(t, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &change))
	assert.Equal(t, 950, change.TotalXP)
	assert.Equal(t, 1, change.Level)
}

func TestProfile_Guest(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/quests/"+uuid.NewString()+"/complete", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", errorMessage(t, rec))
}

func TestNotifications_InvalidLimit(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/notifications?limit=-1", s.token(t, s.learner), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalog(t *testing.T) {
	s := newTestServer(t, nil)
	s.createQuest(t, &domain.Quest{Title: "Concurrency in Go", IsValidated: true})
	s.createQuest(t, &domain.Quest{Title: "Unreviewed"})

	rec := s.do(t, http.MethodGet, "/api/v1/quests", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var quests []domain.Quest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quests))
	require.Len(t, quests, 1)
	assert.Equal(t, "Concurrency in Go", quests[0].Title)

	rec = s.do(t, http.MethodGet, "/api/v1/search?q=cncr", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Concurrency in Go")

	rec = s.do(t, http.MethodGet, "/api/v1/organizations", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCatalog_Similar(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, s.content.CreateOrganization(context.Background(), &domain.Organization{Name: "Google"}))

	rec := s.do(t, http.MethodGet, "/api/v1/similar/organizations?q=gogle", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result similarity.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Nil(t, result.Exact)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, "Google", result.Suggestions[0].Name)

	rec = s.do(t, http.MethodGet, "/api/v1/similar/organizations?q=GOOGLE", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.Exact)
	assert.Equal(t, "Google", result.Exact.Name)

	rec = s.do(t, http.MethodGet, "/api/v1/similar/users?q=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
