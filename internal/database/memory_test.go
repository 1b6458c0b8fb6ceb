package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Insert(ctx, Document{"id": "a"})
	require.ErrorIs(t, err, ErrNotFound, "container must exist first")

	require.NoError(t, s.EnsureContainer(ctx))
	require.NoError(t, s.EnsureContainer(ctx))

	require.NoError(t, s.Insert(ctx, Document{"id": "a", "name": "Test Item 1", "age": 36}))
	require.NoError(t, s.Insert(ctx, Document{"id": "b", "name": "Other", "age": 30}))
	require.ErrorIs(t, s.Insert(ctx, Document{"id": "a"}), ErrConflict)
	require.True(t, IsServiceError(s.Insert(ctx, Document{"name": "no id"})))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "Test Item 1", got["name"])

	got["name"] = "changed"
	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "Test Item 1", again["name"])

	docs, err := s.Query(ctx, Prefix("name", "Test Item"))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	docs, err = s.Query(ctx, GreaterThan("age", 35))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "a", docs[0].ID())

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, "a"), ErrNotFound)

	require.NoError(t, s.DropContainer(ctx))
	require.Equal(t, 0, s.Len())
}

func TestMemoryStoreRejectsBadKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(WithAcceptedKey("secret"), WithPresentedKey("wrong"))

	err := s.EnsureContainer(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnauthorized)

	var se *ServiceError
	require.True(t, errors.As(err, &se))
	require.Equal(t, 401, se.StatusCode)

	require.ErrorIs(t, s.EnsureDatabase(ctx), ErrUnauthorized)

	ok := NewMemoryStore(WithAcceptedKey("secret"), WithPresentedKey("secret"))
	require.NoError(t, ok.EnsureDatabase(ctx))
	require.NoError(t, ok.EnsureContainer(ctx))
}

func TestMemoryStoreScanStops(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.EnsureContainer(ctx))
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, s.Insert(ctx, Document{"id": id}))
	}

	stop := errors.New("stop")
	var seen []string
	err := s.Scan(ctx, func(d Document) error {
		seen = append(seen, d.ID())
		if len(seen) == 2 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, []string{"1", "2"}, seen)
}

func TestOpenMemory(t *testing.T) {
	s, err := Open(context.Background(), Options{API: "memory", Database: "db", Container: "c"})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	_, err = Open(context.Background(), Options{API: "gremlin", Database: "db", Container: "c"})
	require.Error(t, err)

	_, err = Open(context.Background(), Options{API: "memory"})
	require.Error(t, err)

	_, err = Open(context.Background(), Options{API: "sql", Database: "db", Container: "c"})
	require.Error(t, err, "sql api needs a key")
}

func TestMemoryStoreUpsertAndReplace(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.EnsureContainer(ctx))

	require.ErrorIs(t, s.Replace(ctx, Document{"id": "1", "city": "Seattle"}), ErrNotFound)

	require.NoError(t, s.Upsert(ctx, Document{"id": "1", "city": "Seattle"}))
	require.NoError(t, s.Upsert(ctx, Document{"id": "2", "city": "Portland"}))
	require.NoError(t, s.Upsert(ctx, Document{"id": "1", "city": "Miami"}))
	require.Equal(t, 2, s.Len())

	got, err := s.Get(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, "Miami", got["city"])

	require.NoError(t, s.Replace(ctx, Document{"id": "2", "pk": "p2"}))
	got, err = s.Get(ctx, "2")
	require.NoError(t, err)
	require.Equal(t, Document{"id": "2", "pk": "p2"}, got)

	var order []string
	require.NoError(t, s.Scan(ctx, func(d Document) error {
		order = append(order, d.ID())
		return nil
	}))
	require.Equal(t, []string{"1", "2"}, order)
}

func TestMemoryStoreDeleteContainer(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.ErrorIs(t, s.DeleteContainer(ctx), ErrNotFound)

	require.NoError(t, s.EnsureContainer(ctx))
	require.NoError(t, s.Insert(ctx, Document{"id": "1"}))
	require.NoError(t, s.DeleteContainer(ctx))
	require.Equal(t, 0, s.Len())

	_, err := s.Get(ctx, "1")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.DeleteContainer(ctx), ErrNotFound)
}
