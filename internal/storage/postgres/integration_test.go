//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mindbreaker/mindbreaker/internal/auth"
	"github.com/mindbreaker/mindbreaker/internal/cache"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/mindbreaker/mindbreaker/internal/profile"
	"github.com/mindbreaker/mindbreaker/internal/storage/postgres"
	"github.com/mindbreaker/mindbreaker/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// setupPostgres starts a database container and returns a migrated DB
func setupPostgres(t *testing.T) (*postgres.DB, string) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("mindbreaker"),
		tcpostgres.WithUsername("mindbreaker"),
		tcpostgres.WithPassword("mindbreaker"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx))
	return db, url
}

func TestIntegration_Migrate(t *testing.T) {
	db, _ := setupPostgres(t)
	ctx := context.Background()

	version, err := db.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	require.NoError(t, db.Migrate(ctx), "second migrate should be a no-op")
}

func TestIntegration_ValidationWorkflow(t *testing.T) {
	db, _ := setupPostgres(t)
	ctx := context.Background()

	content := postgres.NewContentStore(db)
	profiles := postgres.NewProfileStore(db)
	c, err := cache.New(16, nil)
	require.NoError(t, err)
	svc := validation.NewService(content, c, nil, nil)

	author := &domain.Profile{Username: "author"}
	require.NoError(t, profiles.CreateProfile(ctx, author))
	admin := auth.Capability{Role: auth.RoleAdmin, UserID: author.ID}

	t.Run("approve shadow draft", func(t *testing.T) {
		q := &domain.Quest{
			Title:       "Old Title",
			IsValidated: true,
			AuthorID:    &author.ID,
			DraftData:   map[string]any{"title": "New Title", "status": "archived", "xp_reward": float64(300)},
		}
		require.NoError(t, content.CreateQuest(ctx, q))
		require.NoError(t, svc.Approve(ctx, admin, domain.EntityQuest, q.ID))

		got, err := content.GetQuest(ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, "New Title", got.Title)
		assert.Equal(t, 300, got.XPReward)
		assert.Equal(t, domain.StatusPublished, got.Status)
		assert.Nil(t, got.DraftData)
	})

	t.Run("reject new quest", func(t *testing.T) {
		q := &domain.Quest{Title: "Spam"}
		require.NoError(t, content.CreateQuest(ctx, q))
		require.NoError(t, svc.Reject(ctx, admin, domain.EntityQuest, q.ID, "low quality"))

		got, err := content.GetQuest(ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusArchived, got.Status)
		assert.Equal(t, "low quality", got.RejectionReason)
		assert.NotNil(t, got.ArchivedAt)
	})

	t.Run("merge organizations", func(t *testing.T) {
		o1 := &domain.Organization{Name: "Go Team"}
		o2 := &domain.Organization{Name: "The Go Team", IsValidated: true}
		require.NoError(t, content.CreateOrganization(ctx, o1))
		require.NoError(t, content.CreateOrganization(ctx, o2))
		q := &domain.Quest{Title: "Owned", OrganizationID: &o1.ID}
		require.NoError(t, content.CreateQuest(ctx, q))

		require.NoError(t, svc.Merge(ctx, admin, domain.EntityOrganization, o1.ID, o2.ID))

		got, err := content.GetQuest(ctx, q.ID)
		require.NoError(t, err)
		require.NotNil(t, got.OrganizationID)
		assert.Equal(t, o2.ID, *got.OrganizationID)

		err = content.InTx(ctx, func(tx validation.Tx) error {
			_, err := tx.GetEntity(ctx, domain.EntityOrganization, o1.ID)
			return err
		})
		assert.True(t, errors.Is(err, domain.ErrOrganizationNotFound))
	})

	t.Run("pending", func(t *testing.T) {
		pending, err := content.Pending(ctx)
		require.NoError(t, err)
		for _, e := range pending {
			assert.NotEqual(t, domain.StateArchived, e.State())
		}
	})
}

func TestIntegration_CompleteQuest(t *testing.T) {
	db, _ := setupPostgres(t)
	ctx := context.Background()

	content := postgres.NewContentStore(db)
	profiles := postgres.NewProfileStore(db)
	svc := profile.NewService(profiles, nil, nil)

	p := &domain.Profile{Username: "learner", TotalXP: 990}
	require.NoError(t, profiles.CreateProfile(ctx, p))
	q := &domain.Quest{Title: "Quest", XPReward: 10, IsValidated: true}
	require.NoError(t, content.CreateQuest(ctx, q))

	change, err := svc.CompleteQuest(ctx, auth.Capability{Role: auth.RoleUser, UserID: p.ID}, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000, change.TotalXP)
	assert.Equal(t, 2, change.Level)
	assert.True(t, change.LeveledUp)

	stored, err := profiles.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Level)
}

func TestIntegration_CacheInvalidationBroadcast(t *testing.T) {
	db, url := setupPostgres(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender, err := cache.New(16, nil)
	require.NoError(t, err)
	sender.SetBroadcaster(postgres.NewNotifier(db))

	receiver, err := cache.New(16, nil)
	require.NoError(t, err)
	receiver.Set("/quests", "cached", cache.TagQuests)

	listener := cache.NewListener(url, receiver, nil)
	go listener.Run(ctx)

	// Give LISTEN time to register before notifying.
	time.Sleep(500 * time.Millisecond)
	sender.InvalidateTags(ctx, cache.TagQuests)

	assert.Eventually(t, func() bool {
		_, ok := receiver.Get("/quests")
		return !ok
	}, 5*time.Second, 50*time.Millisecond)
}
