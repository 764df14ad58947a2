package presets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/zsiec/smpte/internal/metrics"
)

const (
	backendRedis  = "redis"
	defaultPrefix = "smpte:presets:"
)

var putScript = redis.NewScript(`
	local key = KEYS[1]
	local index_key = KEYS[2]
	local data = ARGV[1]
	local name = ARGV[2]
	redis.call('SET', key, data)
	redis.call('SADD', index_key, name)
	return redis.call('SCARD', index_key)
`)

var listScript = redis.NewScript(`
	local index_key = KEYS[1]
	local prefix = ARGV[1]
	local names = redis.call('SMEMBERS', index_key)
	local result = {}
	for i, name in ipairs(names) do
		local data = redis.call('GET', prefix .. name)
		if data then
			table.insert(result, data)
		else
			redis.call('SREM', index_key, name)
		end
	end
	return result
`)

// RedisStore implements Store on Redis. Each preset is a JSON string under
// prefix+name and every name is a member of the prefix+"index" set.
type RedisStore struct {
	client *redis.Client
	logger *logrus.Logger
	prefix string
}

// NewRedisStore creates a Redis-backed store. An empty prefix selects
// "smpte:presets:".
func NewRedisStore(client *redis.Client, logger *logrus.Logger, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisStore{
		client: client,
		logger: logger,
		prefix: prefix,
	}
}

func (r *RedisStore) indexKey() string {
	return r.prefix + "index"
}

// Put stores preset, keeping the CreatedAt of an existing entry.
func (r *RedisStore) Put(ctx context.Context, preset *Preset) error {
	if preset == nil {
		return fmt.Errorf("preset cannot be nil")
	}
	if err := preset.Validate(); err != nil {
		metrics.IncrementPresetOperation(backendRedis, "put", "invalid")
		return err
	}

	key := r.prefix + preset.Name
	existing, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var old Preset
		if err := json.Unmarshal(existing, &old); err == nil {
			preset.CreatedAt = old.CreatedAt
		}
	case errors.Is(err, redis.Nil):
		if preset.CreatedAt.IsZero() {
			preset.CreatedAt = time.Now().UTC()
		}
	default:
		metrics.IncrementPresetOperation(backendRedis, "put", "error")
		return fmt.Errorf("failed to check existing preset: %w", err)
	}

	data, err := json.Marshal(preset)
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}

	count, err := putScript.Run(ctx, r.client, []string{key, r.indexKey()}, data, preset.Name).Int()
	if err != nil {
		metrics.IncrementPresetOperation(backendRedis, "put", "error")
		return fmt.Errorf("failed to store preset: %w", err)
	}

	metrics.IncrementPresetOperation(backendRedis, "put", "ok")
	metrics.SetPresetsStored(backendRedis, count)

	r.logger.WithFields(logrus.Fields{
		"preset": preset.Name,
		"rate":   preset.Rate().String(),
	}).Debug("Preset stored")

	return nil
}

// Get retrieves a preset by name.
func (r *RedisStore) Get(ctx context.Context, name string) (*Preset, error) {
	data, err := r.client.Get(ctx, r.prefix+name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.IncrementPresetOperation(backendRedis, "get", "miss")
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		metrics.IncrementPresetOperation(backendRedis, "get", "error")
		return nil, fmt.Errorf("failed to get preset: %w", err)
	}

	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preset: %w", err)
	}

	metrics.IncrementPresetOperation(backendRedis, "get", "hit")
	return &p, nil
}

// List returns all presets. Index entries whose value is gone are removed.
func (r *RedisStore) List(ctx context.Context) ([]*Preset, error) {
	res, err := listScript.Run(ctx, r.client, []string{r.indexKey()}, r.prefix).Result()
	if err != nil {
		metrics.IncrementPresetOperation(backendRedis, "list", "error")
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected result type from script")
	}

	out := make([]*Preset, 0, len(values))
	for _, val := range values {
		data, ok := val.(string)
		if !ok {
			r.logger.Warn("Invalid data type in result")
			continue
		}

		var p Preset
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			r.logger.WithError(err).Warn("Failed to unmarshal preset")
			continue
		}
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	metrics.IncrementPresetOperation(backendRedis, "list", "ok")
	metrics.SetPresetsStored(backendRedis, len(out))
	return out, nil
}

// Delete removes a preset and its index entry.
func (r *RedisStore) Delete(ctx context.Context, name string) error {
	deleted, err := r.client.Del(ctx, r.prefix+name).Result()
	if err != nil {
		metrics.IncrementPresetOperation(backendRedis, "delete", "error")
		return fmt.Errorf("failed to delete preset: %w", err)
	}
	if deleted == 0 {
		metrics.IncrementPresetOperation(backendRedis, "delete", "miss")
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if err := r.client.SRem(ctx, r.indexKey(), name).Err(); err != nil {
		r.logger.Warnf("Failed to remove preset %s from index: %v", name, err)
	}

	metrics.IncrementPresetOperation(backendRedis, "delete", "ok")
	r.logger.WithField("preset", name).Info("Preset deleted")
	return nil
}

// Close closes the Redis client connection.
func (r *RedisStore) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
