package repositories_test

import (
	"testing"
	"time"

	"ulasan/internal/models"
	"ulasan/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testReviewRepository checks the behaviour every ReviewRepository shares.
func testReviewRepository(t *testing.T, repo repositories.ReviewRepository) {
	t.Helper()

	first := &models.Review{Title: "Great", Content: "Loved it", Star: 5, File: "file-a.png", Time: "2024-03-09", Username: "alice"}
	require.NoError(t, repo.Create(first))
	assert.NotEmpty(t, first.ID)
	time.Sleep(2 * time.Millisecond)
	second := &models.Review{Title: "Meh", Content: "Fine", Star: 3, File: "file-b.png", Time: "2024-03-10", Username: "bob"}
	require.NoError(t, repo.Create(second))

	all, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)

	got, err := repo.GetByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Great", got.Title)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "2024-03-09", got.Time)

	_, err = repo.GetByID("missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	got.Title = "Okay"
	got.Content = "Changed"
	got.Star = 0
	got.File = "file-c.png"
	got.Username = "mallory"
	require.NoError(t, repo.Update(got))

	updated, err := repo.GetByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Okay", updated.Title)
	assert.Equal(t, "Changed", updated.Content)
	assert.Equal(t, 0, updated.Star)
	assert.Equal(t, "file-c.png", updated.File)
	assert.Equal(t, "alice", updated.Username, "owner is not editable")

	err = repo.Update(&models.Review{ID: "missing", Title: "x"})
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	all, err = repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2, "update of a missing review must not insert")

	require.NoError(t, repo.Delete(first.ID))
	_, err = repo.GetByID(first.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(first.ID), repositories.ErrNotFound)
}

// testUserRepository checks the behaviour every UserRepository shares.
func testUserRepository(t *testing.T, repo repositories.UserRepository) {
	t.Helper()

	alice := &models.User{Username: "alice", Password: "hash"}
	require.NoError(t, repo.Create(alice))
	assert.NotEmpty(t, alice.ID)
	assert.Equal(t, models.RoleUser, alice.Role)

	assert.ErrorIs(t, repo.Create(&models.User{Username: "alice", Password: "other"}), repositories.ErrDuplicate)

	byName, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	byID, err := repo.GetByID(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = repo.GetByUsername("ghost")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = repo.GetByID("missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	byID.Role = models.RoleAdmin
	byID.Password = "new-hash"
	require.NoError(t, repo.Update(byID))
	promoted, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())
	assert.Equal(t, "new-hash", promoted.Password)

	assert.ErrorIs(t, repo.Update(&models.User{ID: "missing", Role: models.RoleAdmin}), repositories.ErrNotFound)
}
