package stores_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ab "github.com/panyam/addrbook"
	"github.com/panyam/addrbook/stores"
)

func newUser(username string) *ab.User {
	return &ab.User{
		Id:       ab.NewUserId(),
		Username: username,
		Email:    username + "@example.com",
		Provider: ab.ProviderLocal,
	}
}

func TestCreateAndGetUser(t *testing.T) {
	store := stores.NewFSUserStore(t.TempDir())
	ctx := context.Background()
	user := newUser("alice")

	require.NoError(t, store.CreateUser(ctx, user))
	assert.False(t, user.CreatedAt.IsZero(), "create must stamp CreatedAt")

	byId, err := store.GetUserById(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, "alice", byId.Username)

	byName, err := store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.Id, byName.Id)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	store := stores.NewFSUserStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, newUser("alice")))
	err := store.CreateUser(ctx, newUser("alice"))
	assert.ErrorIs(t, err, ab.ErrDuplicateAccount)
}

func TestGetUserNotFound(t *testing.T) {
	store := stores.NewFSUserStore(t.TempDir())
	ctx := context.Background()

	_, err := store.GetUserById(ctx, "missing")
	assert.ErrorIs(t, err, ab.ErrUserNotFound)

	_, err = store.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ab.ErrUserNotFound)
}

func TestGetUserByProvider(t *testing.T) {
	store := stores.NewFSUserStore(t.TempDir())
	ctx := context.Background()
	user := newUser("alice")
	user.Provider = ab.ProviderGoogle
	user.ProviderId = "g-12345"
	require.NoError(t, store.CreateUser(ctx, user))

	found, err := store.GetUserByProvider(ctx, ab.ProviderGoogle, "g-12345")
	require.NoError(t, err)
	assert.Equal(t, user.Id, found.Id)

	_, err = store.GetUserByProvider(ctx, ab.ProviderGithub, "g-12345")
	assert.ErrorIs(t, err, ab.ErrUserNotFound)
}

func TestSaveUser(t *testing.T) {
	store := stores.NewFSUserStore(t.TempDir())
	ctx := context.Background()
	user := newUser("alice")
	require.NoError(t, store.CreateUser(ctx, user))

	user.Email = "new@example.com"
	require.NoError(t, store.SaveUser(ctx, user))

	loaded, err := store.GetUserById(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", loaded.Email)

	assert.ErrorIs(t, store.SaveUser(ctx, newUser("ghost")), ab.ErrUserNotFound)
}

func TestContactOperations(t *testing.T) {
	store := stores.NewFSUserStore(t.TempDir())
	ctx := context.Background()
	user := newUser("alice")
	require.NoError(t, store.CreateUser(ctx, user))

	contacts := []ab.Contact{
		{Id: "c1", Name: "Bob Jones", Group: "Work"},
		{Id: "c2", Name: "Carol White", Group: "Friends"},
		{Id: "c3", Name: "Bob Jones", Group: "Friends"},
	}
	for _, c := range contacts {
		require.NoError(t, store.AddContact(ctx, user.Id, c))
	}

	loaded, err := store.GetUserById(ctx, user.Id)
	require.NoError(t, err)
	require.Len(t, loaded.AddressBook, 3)
	assert.Equal(t, "c1", loaded.AddressBook[0].Id, "insertion order is preserved")

	removed, err := store.RemoveContactById(ctx, user.Id, "c2")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = store.RemoveContactById(ctx, user.Id, "c2")
	require.NoError(t, err)
	assert.Equal(t, 0, removed, "removing an absent id is not an error")

	removed, err = store.RemoveContactsByName(ctx, user.Id, "Bob Jones")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	loaded, err = store.GetUserById(ctx, user.Id)
	require.NoError(t, err)
	assert.Empty(t, loaded.AddressBook)
}

func TestContactOpsOnMissingUser(t *testing.T) {
	store := stores.NewFSUserStore(t.TempDir())
	ctx := context.Background()

	err := store.AddContact(ctx, "missing", ab.Contact{Id: "c1", Name: "Bob"})
	assert.ErrorIs(t, err, ab.ErrUserNotFound)

	_, err = store.RemoveContactById(ctx, "missing", "c1")
	assert.ErrorIs(t, err, ab.ErrUserNotFound)
}
