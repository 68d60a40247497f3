package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadod/mama-odekake-liff/internal/models"
)

func TestMongoUserCollection_StaffAccounts(t *testing.T) {
	store := NewStore(testDatabase(t))
	ctx := context.Background()
	require.NoError(t, store.EnsureIndexes(ctx))
	users := store.Users

	require.NoError(t, users.InsertUser(ctx, models.User{
		Username:     "moderator1",
		DisplayName:  "Moderator",
		PasswordHash: "hashedpassword",
		Role:         models.RoleModerator,
	}))

	byName, err := users.FindUserByUsername(ctx, "moderator1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, byName.Role)
	assert.True(t, byName.IsActive)
	assert.False(t, byName.CreatedAt.IsZero())
	assert.Nil(t, byName.LastLogin)

	byID, err := users.FindUserByID(ctx, byName.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "hashedpassword", byID.PasswordHash)

	err = users.InsertUser(ctx, models.User{Username: "moderator1"})
	assert.ErrorIs(t, err, ErrDuplicateUser)

	_, err = users.FindUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = users.FindUserByID(ctx, "invalid-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoUserCollection_DefaultRole(t *testing.T) {
	users := NewStore(testDatabase(t)).Users
	ctx := context.Background()

	require.NoError(t, users.InsertUser(ctx, models.User{Username: "someone"}))
	u, err := users.FindUserByUsername(ctx, "someone")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
}

func TestMongoUserCollection_UpsertLineUser(t *testing.T) {
	store := NewStore(testDatabase(t))
	ctx := context.Background()
	require.NoError(t, store.EnsureIndexes(ctx))

	first, err := store.Users.UpsertLineUser(ctx, LineProfile{UserID: "U1234", DisplayName: "Hanako"})
	require.NoError(t, err)
	assert.Equal(t, "U1234", first.LineUserID)
	assert.Equal(t, models.RoleUser, first.Role)
	assert.True(t, first.IsActive)
	assert.NotNil(t, first.LastLogin)

	second, err := store.Users.UpsertLineUser(ctx, LineProfile{UserID: "U1234", DisplayName: "Hanako Y", PictureURL: "https://profile.line-scdn.net/x"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Hanako Y", second.DisplayName)
	assert.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())

	n, err := store.Users.Collection.CountDocuments(ctx, map[string]string{"line_user_id": "U1234"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Users.UpsertLineUser(ctx, LineProfile{})
	assert.Error(t, err)
}

func TestMongoUserCollection_UpdateLastLogin(t *testing.T) {
	users := NewStore(testDatabase(t)).Users
	ctx := context.Background()

	require.NoError(t, users.InsertUser(ctx, models.User{Username: "admin", Role: models.RoleAdmin}))
	admin, err := users.FindUserByUsername(ctx, "admin")
	require.NoError(t, err)

	require.NoError(t, users.UpdateLastLogin(ctx, admin.ID.Hex()))
	after, err := users.FindUserByID(ctx, admin.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, after.LastLogin)
	assert.False(t, after.LastLogin.Before(admin.CreatedAt))

	assert.ErrorIs(t, users.UpdateLastLogin(ctx, "000000000000000000000000"), ErrNotFound)
}
