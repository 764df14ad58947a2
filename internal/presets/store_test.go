package presets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/smpte/pkg/timecode"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client, *RedisStore) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	return mr, client, NewRedisStore(client, logger, "")
}

// stores runs fn against every Store implementation.
func stores(t *testing.T, fn func(t *testing.T, store Store)) {
	t.Run("memory", func(t *testing.T) {
		store := NewMemoryStore()
		defer store.Close()
		fn(t, store)
	})
	t.Run("redis", func(t *testing.T) {
		mr, _, store := setupTestRedis(t)
		defer mr.Close()
		defer store.Close()
		fn(t, store)
	})
}

func TestStore_PutGet(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		p := &Preset{Name: "ntsc", Num: 30000, Den: 1001, DropFrame: true, Description: "broadcast"}
		require.NoError(t, store.Put(ctx, p))
		assert.False(t, p.CreatedAt.IsZero())

		got, err := store.Get(ctx, "ntsc")
		require.NoError(t, err)
		assert.Equal(t, "ntsc", got.Name)
		assert.Equal(t, uint64(30000), got.Num)
		assert.True(t, got.DropFrame)
		assert.Equal(t, "broadcast", got.Description)
		assert.Equal(t, "00:01:00;02", got.Rate().Format(1800))
	})
}

func TestStore_PutKeepsCreatedAt(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		created := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
		require.NoError(t, store.Put(ctx, &Preset{Name: "house", FPS: 25, CreatedAt: created}))
		require.NoError(t, store.Put(ctx, &Preset{Name: "house", FPS: 50, Description: "updated"}))

		got, err := store.Get(ctx, "house")
		require.NoError(t, err)
		assert.Equal(t, float64(50), got.FPS)
		assert.Equal(t, "updated", got.Description)
		assert.True(t, created.Equal(got.CreatedAt))
	})
}

func TestStore_PutInvalid(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		err := store.Put(ctx, &Preset{Name: "Bad Name", FPS: 25})
		assert.True(t, errors.Is(err, ErrInvalidName))

		err = store.Put(ctx, &Preset{Name: "zero", FPS: 0})
		assert.True(t, errors.Is(err, timecode.ErrInvalidRate))

		err = store.Put(ctx, &Preset{Name: "half", Num: 30000})
		assert.True(t, errors.Is(err, timecode.ErrInvalidRate))

		assert.Error(t, store.Put(ctx, nil))
	})
}

func TestStore_GetMissing(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		_, err := store.Get(context.Background(), "nope")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestStore_List(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		list, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)

		for _, name := range []string{"c", "a", "b"} {
			require.NoError(t, store.Put(ctx, &Preset{Name: name, FPS: 24}))
		}

		list, err = store.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "a", list[0].Name)
		assert.Equal(t, "b", list[1].Name)
		assert.Equal(t, "c", list[2].Name)
	})
}

func TestStore_Delete(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		require.NoError(t, store.Put(ctx, &Preset{Name: "gone", FPS: 24}))
		require.NoError(t, store.Delete(ctx, "gone"))

		_, err := store.Get(ctx, "gone")
		assert.True(t, errors.Is(err, ErrNotFound))

		err = store.Delete(ctx, "gone")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestRedisStore_Keys(t *testing.T) {
	mr, client, store := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &Preset{Name: "pal", FPS: 25}))

	exists, err := client.Exists(ctx, "smpte:presets:pal").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	isMember, err := client.SIsMember(ctx, "smpte:presets:index", "pal").Result()
	require.NoError(t, err)
	assert.True(t, isMember)

	require.NoError(t, store.Delete(ctx, "pal"))
	isMember, err = client.SIsMember(ctx, "smpte:presets:index", "pal").Result()
	require.NoError(t, err)
	assert.False(t, isMember)
}

func TestRedisStore_ListDropsOrphans(t *testing.T) {
	mr, client, store := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &Preset{Name: "keep", FPS: 24}))
	require.NoError(t, client.SAdd(ctx, "smpte:presets:index", "orphan").Err())

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "keep", list[0].Name)

	isMember, err := client.SIsMember(ctx, "smpte:presets:index", "orphan").Result()
	require.NoError(t, err)
	assert.False(t, isMember)
}

func TestRedisStore_ConnectionError(t *testing.T) {
	mr, _, store := setupTestRedis(t)
	mr.Close()
	defer store.Close()

	_, err := store.Get(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
