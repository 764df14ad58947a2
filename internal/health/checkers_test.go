package health

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/smpte/internal/presets"
	"github.com/zsiec/smpte/pkg/timecode"
)

func TestRedisChecker(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	checker := NewRedisChecker(client)
	assert.Equal(t, "redis", checker.Name())
	assert.NoError(t, checker.Check(context.Background()))

	mr.Close()
	assert.Error(t, checker.Check(context.Background()))
}

func TestRedisChecker_NilClient(t *testing.T) {
	assert.Error(t, NewRedisChecker(nil).Check(context.Background()))
}

func TestMemoryChecker(t *testing.T) {
	checker := NewMemoryChecker(0)
	assert.Equal(t, "memory", checker.Name())
	require.NoError(t, checker.Check(context.Background()))
	assert.NotZero(t, checker.Details()["heap_alloc_bytes"])

	checker = NewMemoryChecker(1)
	err := checker.Check(context.Background())
	var degraded *DegradedError
	assert.True(t, errors.As(err, &degraded))
}

func TestPresetStoreChecker(t *testing.T) {
	ctx := context.Background()
	store := presets.NewMemoryStore()
	checker := NewPresetStoreChecker(store)
	assert.Equal(t, "presets", checker.Name())

	var degraded *DegradedError
	assert.True(t, errors.As(checker.Check(ctx), &degraded))

	_, err := presets.Seed(ctx, store)
	require.NoError(t, err)
	assert.NoError(t, checker.Check(ctx))
	assert.Equal(t, int64(len(presets.Standard())), checker.Details()["count"])
}

func TestTimecodeChecker(t *testing.T) {
	for _, r := range []timecode.Rate{
		timecode.Rate23_976, timecode.Rate25, timecode.Rate29_97DF, timecode.Rate59_94DF, timecode.Rate60,
	} {
		checker := NewTimecodeChecker(r)
		assert.NoError(t, checker.Check(context.Background()), r.String())
		assert.Equal(t, r.String(), checker.Details()["rate"])
	}

	err := NewTimecodeChecker(timecode.FromRate(0, false)).Check(context.Background())
	assert.True(t, errors.Is(err, timecode.ErrInvalidRate))
}

func TestCheckers_WithManager(t *testing.T) {
	ctx := context.Background()
	store := presets.NewMemoryStore()
	_, err := presets.Seed(ctx, store)
	require.NoError(t, err)

	manager := NewManager(testLogger())
	manager.Register(NewPresetStoreChecker(store))
	manager.Register(NewTimecodeChecker(timecode.Rate29_97DF))
	manager.Register(NewMemoryChecker(0))

	results := manager.RunChecks(ctx)
	require.Len(t, results, 3)
	assert.Equal(t, StatusOK, manager.GetOverallStatus())
	assert.Equal(t, "29.97 DF", results["timecode"].Details["rate"])
}
