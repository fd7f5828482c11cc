package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/modulehub/internal/domain"
	"github.com/splax/modulehub/internal/repository"
)

func TestCreateUserRejectsDuplicateEmailAndUsername(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.CreateUser(ctx, &domain.User{ID: "u1", Username: "bob", Email: "bob@acme.io"}))

	err := store.CreateUser(ctx, &domain.User{ID: "u2", Username: "robert", Email: "bob@acme.io"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	err = store.CreateUser(ctx, &domain.User{ID: "u3", Username: "bob", Email: "other@acme.io"})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestPackagesAreUniquePerCompany(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.CreatePackage(ctx, &domain.Package{ID: "p1", CompanyID: "c1", Name: "ui-kit"}))
	assert.ErrorIs(t, store.CreatePackage(ctx, &domain.Package{ID: "p2", CompanyID: "c1", Name: "ui-kit"}), repository.ErrConflict)
	assert.NoError(t, store.CreatePackage(ctx, &domain.Package{ID: "p3", CompanyID: "c2", Name: "ui-kit"}))
}

func TestAppendVersionDoesNotAliasStoredHistory(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.CreatePackage(ctx, &domain.Package{
		ID: "p1", CompanyID: "c1", Name: "ui-kit", CurrentVersion: "1.0.0",
		Versions: []domain.Version{{Version: "1.0.0"}},
	}))

	updated, err := store.AppendVersion(ctx, "p1", domain.Version{Version: "1.1.0", PublishedAt: time.Now()})
	require.NoError(t, err)
	updated.Versions[0].Version = "mutated"

	stored, err := store.GetPackageByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", stored.CurrentVersion)
	assert.Equal(t, "1.0.0", stored.Versions[0].Version)
	assert.Len(t, stored.Versions, 2)

	_, err = store.AppendVersion(ctx, "missing", domain.Version{Version: "1.0.0"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListPackagesByCompanyOrdersByUpdatedAt(t *testing.T) {
	ctx := context.Background()
	store := New()
	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreatePackage(ctx, &domain.Package{ID: "old", CompanyID: "c1", Name: "old", UpdatedAt: base}))
	require.NoError(t, store.CreatePackage(ctx, &domain.Package{ID: "new", CompanyID: "c1", Name: "new", UpdatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.CreatePackage(ctx, &domain.Package{ID: "other", CompanyID: "c2", Name: "other", UpdatedAt: base}))

	packages, err := store.ListPackagesByCompany(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, packages, 2)
	assert.Equal(t, "new", packages[0].ID)
	assert.Equal(t, "old", packages[1].ID)

	count, err := store.CountPackagesUpdatedSince(ctx, "c1", base)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "boundary is inclusive")
}

func TestNotificationsNewestFirstAndMarkAllRead(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.CreatePackage(ctx, &domain.Package{ID: "p1", CompanyID: "c1", Name: "ui-kit"}))
	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	var rows []domain.Notification
	for i := 0; i < 25; i++ {
		rows = append(rows, domain.Notification{
			ID: string(rune('a' + i)), RecipientID: "u1", Type: domain.NotificationGeneral,
			RelatedPackageID: "p1", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	rows = append(rows, domain.Notification{ID: "foreign", RecipientID: "u2", Type: domain.NotificationGeneral, CreatedAt: base})
	require.NoError(t, store.InsertNotifications(ctx, rows))

	views, err := store.ListNotifications(ctx, "u1", 20)
	require.NoError(t, err)
	require.Len(t, views, 20)
	assert.True(t, views[0].CreatedAt.After(views[19].CreatedAt))
	require.NotNil(t, views[0].RelatedPackage)
	assert.Equal(t, "ui-kit", views[0].RelatedPackage.Name)

	updated, err := store.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 25, updated)

	updated, err = store.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, updated)

	foreign, err := store.ListNotifications(ctx, "u2", 20)
	require.NoError(t, err)
	require.Len(t, foreign, 1)
	assert.False(t, foreign[0].Read)
}

func TestInsertNotificationsRejectsUnknownType(t *testing.T) {
	ctx := context.Background()
	store := New()
	err := store.InsertNotifications(ctx, []domain.Notification{
		{ID: "n1", RecipientID: "u1", Type: domain.NotificationGeneral},
		{ID: "n2", RecipientID: "u1", Type: "digest"},
	})
	assert.ErrorIs(t, err, repository.ErrInvalid)

	views, err := store.ListNotifications(ctx, "u1", 20)
	require.NoError(t, err)
	assert.Empty(t, views, "a rejected batch must not be partially stored")
}

func TestNotificationsWithEqualTimestampsOrderByID(t *testing.T) {
	ctx := context.Background()
	store := New()
	at := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertNotifications(ctx, []domain.Notification{
		{ID: "b", RecipientID: "u1", Type: domain.NotificationGeneral, CreatedAt: at},
		{ID: "c", RecipientID: "u1", Type: domain.NotificationGeneral, CreatedAt: at},
		{ID: "a", RecipientID: "u1", Type: domain.NotificationGeneral, CreatedAt: at},
	}))

	views, err := store.ListNotifications(ctx, "u1", 20)
	require.NoError(t, err)
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
}
