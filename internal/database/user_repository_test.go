package database

import (
	"context"
	"io"
	"testing"

	"github.com/khatanna/salon-service/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRepo(t *testing.T) *UserRepository {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewUserRepository(newTestStore(t), logger)
}

func testUser(id, email, tenantID string) *models.User {
	return &models.User{
		ID:       id,
		Name:     "Ana Flores",
		Email:    email,
		TenantID: tenantID,
	}
}

func TestGetUserByIDNotFound(t *testing.T) {
	repo := newUserRepo(t)

	_, err := repo.GetUserByID(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateAndGetUserByEmail(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, testUser("u1", "ana@example.com", "")))

	user, err := repo.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)
	assert.False(t, user.Owner)
	assert.False(t, user.Allowed)

	absent, err := repo.GetUserByEmail(ctx, "nadie@example.com")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestGetUsersFiltersByTenant(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, testUser("u1", "ana@example.com", "CH0001")))
	require.NoError(t, repo.CreateUser(ctx, testUser("u2", "beto@example.com", "CH0002")))
	require.NoError(t, repo.CreateUser(ctx, testUser("u3", "carla@example.com", "")))

	users, err := repo.GetUsers(ctx, "CH0001")
	require.NoError(t, err)
	require.Len(t, users, 2)

	ids := []string{users[0].ID, users[1].ID}
	assert.Contains(t, ids, "u1")
	assert.Contains(t, ids, "u3")
}

func TestToggleOwnerRejectsOtherTenant(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, testUser("u1", "ana@example.com", "CH0002")))

	err := repo.ToggleOwner(ctx, "CH0001", "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestToggleOwnerAndAllowed(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, testUser("u1", "ana@example.com", "CH0001")))

	require.NoError(t, repo.ToggleOwner(ctx, "CH0001", "u1"))
	require.NoError(t, repo.ToggleAllowed(ctx, "CH0001", "u1"))

	user, err := repo.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, user.Owner)
	assert.True(t, user.Allowed)

	require.NoError(t, repo.ToggleOwner(ctx, "CH0001", "u1"))

	user, err = repo.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, user.Owner)
	assert.True(t, user.Allowed)
}

func TestAssignTenantEnablesUser(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, testUser("u1", "ana@example.com", "")))
	require.NoError(t, repo.AssignTenant(ctx, "CH0001", "u1"))

	user, err := repo.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "CH0001", user.TenantID)
	assert.True(t, user.Allowed)
}

func TestGetAvatarURL(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()

	user := testUser("u1", "ana@example.com", "CH0001")
	user.PhotoURL = "https://example.com/ana.png"
	require.NoError(t, repo.CreateUser(ctx, user))

	url, err := repo.GetAvatarURL(ctx, "CH0001", "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/ana.png", url)

	_, err = repo.GetAvatarURL(ctx, "CH0002", "u1")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
