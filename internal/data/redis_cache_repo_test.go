package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-jobitems/internal/service/querycache"
	"github.com/target/mmk-jobitems/internal/testutil"
)

func TestRedisCacheRepo_Set_Get_Delete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tr := testutil.SetupTestRedis(t)
	repo := NewRedisCacheRepo(tr.Client)
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		key := tr.Key("1")
		value := []byte(`{"fetchedAt":"2025-01-01T00:00:00Z","data":{"id":1}}`)
		ttl := 5 * time.Minute

		require.NoError(t, repo.Set(ctx, key, value, ttl))

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, result)

		actualTTL := tr.Client.TTL(ctx, key).Val()
		assert.True(t, actualTTL > 0 && actualTTL <= ttl)
	})

	t.Run("get missing key", func(t *testing.T) {
		result, err := repo.Get(ctx, tr.Key("missing"))
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete", func(t *testing.T) {
		key := tr.Key("2")
		require.NoError(t, repo.Set(ctx, key, []byte("x"), time.Minute))

		deleted, err := repo.Delete(ctx, key)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, key)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("health", func(t *testing.T) {
		assert.NoError(t, repo.Health(ctx))
	})
}

func TestRedisCacheRepo_Validation(t *testing.T) {
	repo := NewRedisCacheRepo(nil)
	ctx := context.Background()

	require.ErrorIs(t, repo.Set(ctx, "", []byte("x"), time.Minute), ErrEmptyKey)
	_, err := repo.Get(ctx, "")
	require.ErrorIs(t, err, ErrEmptyKey)
	_, err = repo.Delete(ctx, "")
	require.ErrorIs(t, err, ErrEmptyKey)
	require.Error(t, repo.Set(ctx, "k", []byte("x"), -time.Second))
}

// A second client reads what the first one fetched without calling the API.
func TestRedisCacheRepo_SharedAcrossClients(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tr := testutil.SetupTestRedis(t)
	repo := NewRedisCacheRepo(tr.Client)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "from-api", nil
	}
	key := querycache.NewKey("job-item", 77)
	q := querycache.Query[string]{Key: key, Fn: fetch, StaleTime: time.Hour, Enabled: true}

	first := querycache.New[string](querycache.Options{Shared: repo, SharedPrefix: tr.Prefix})
	res, err := first.Await(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "from-api", res.Data)

	second := querycache.New[string](querycache.Options{Shared: repo, SharedPrefix: tr.Prefix})
	res, err = second.Await(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "from-api", res.Data)
	assert.Equal(t, 1, calls)
}
