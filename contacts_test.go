package addrbook_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	ab "github.com/panyam/addrbook"
	"github.com/panyam/addrbook/stores"
)

func newTestService(t *testing.T) (*ab.ContactService, string) {
	t.Helper()
	store := stores.NewFSUserStore(t.TempDir())
	user := &ab.User{
		Id:       ab.NewUserId(),
		Username: "testuser",
		Email:    "test@example.com",
		Provider: ab.ProviderLocal,
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return ab.NewContactService(store, zap.NewNop().Sugar()), user.Id
}

func seedContacts(t *testing.T, svc *ab.ContactService, userId string, contacts ...ab.Contact) {
	t.Helper()
	for _, c := range contacts {
		_, err := svc.Add(context.Background(), userId, c)
		require.NoError(t, err)
	}
}

func TestAddContact(t *testing.T) {
	svc, userId := newTestService(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, userId, ab.Contact{Name: "Alice Smith", Group: "Friends"})
	require.NoError(t, err)
	assert.NotEmpty(t, added.Id, "added contact should get an id")
	assert.Equal(t, "Friends", added.Group)

	book, err := svc.List(ctx, userId)
	require.NoError(t, err)
	require.Len(t, book, 1)
	assert.Equal(t, added.Id, book[0].Id)
}

func TestAddContactDefaultsGroup(t *testing.T) {
	svc, userId := newTestService(t)

	added, err := svc.Add(context.Background(), userId, ab.Contact{Name: "Bob Jones"})
	require.NoError(t, err)
	assert.Equal(t, ab.DefaultGroup, added.Group)
}

func TestAddContactRequiresName(t *testing.T) {
	svc, userId := newTestService(t)

	_, err := svc.Add(context.Background(), userId, ab.Contact{Group: "Friends"})
	assert.Error(t, err)
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	svc, userId := newTestService(t)
	seedContacts(t, svc, userId,
		ab.Contact{Name: "Alice Smith", Group: "Friends"},
		ab.Contact{Name: "Bob Jones", Group: "Work"},
	)

	results, err := svc.Search(context.Background(), userId, "ali")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Alice Smith", results[0].Name)

	results, err = svc.Search(context.Background(), userId, "SMITH")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestListByGroupIsExact(t *testing.T) {
	svc, userId := newTestService(t)
	seedContacts(t, svc, userId,
		ab.Contact{Name: "Alice Smith", Group: "Friends"},
		ab.Contact{Name: "Bob Jones", Group: "friends"},
	)

	results, err := svc.ListByGroup(context.Background(), userId, "Friends")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Alice Smith", results[0].Name)
}

func TestGroupsDistinctAndOrdered(t *testing.T) {
	svc, userId := newTestService(t)
	seedContacts(t, svc, userId,
		ab.Contact{Name: "Alice Smith", Group: "Friends"},
		ab.Contact{Name: "Bob Jones", Group: "Work"},
		ab.Contact{Name: "Carol White", Group: "Friends"},
	)

	groups, err := svc.Groups(context.Background(), userId)
	require.NoError(t, err)
	assert.Equal(t, []string{"Friends", "Work"}, groups)
}

func TestGroupsOfEmptyBook(t *testing.T) {
	svc, userId := newTestService(t)

	groups, err := svc.Groups(context.Background(), userId)
	require.NoError(t, err)
	assert.Equal(t, []string{ab.DefaultGroup}, groups)
}

func TestRemoveById(t *testing.T) {
	svc, userId := newTestService(t)
	ctx := context.Background()
	first, err := svc.Add(ctx, userId, ab.Contact{Name: "Alice Smith"})
	require.NoError(t, err)
	second, err := svc.Add(ctx, userId, ab.Contact{Name: "Alice Smith"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveById(ctx, userId, first.Id))

	book, err := svc.List(ctx, userId)
	require.NoError(t, err)
	require.Len(t, book, 1, "only the targeted duplicate should be removed")
	assert.Equal(t, second.Id, book[0].Id)
}

func TestRemoveByIdMissing(t *testing.T) {
	svc, userId := newTestService(t)

	err := svc.RemoveById(context.Background(), userId, "no-such-id")
	assert.ErrorIs(t, err, ab.ErrContactNotFound)
}

func TestRemoveByNameRemovesAllMatches(t *testing.T) {
	svc, userId := newTestService(t)
	seedContacts(t, svc, userId,
		ab.Contact{Name: "Alice Smith", Group: "Friends"},
		ab.Contact{Name: "Alice Smith", Group: "Work"},
		ab.Contact{Name: "Bob Jones"},
	)

	removed, err := svc.RemoveByName(context.Background(), userId, "Alice Smith")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	book, err := svc.List(context.Background(), userId)
	require.NoError(t, err)
	require.Len(t, book, 1)
	assert.Equal(t, "Bob Jones", book[0].Name)
}
