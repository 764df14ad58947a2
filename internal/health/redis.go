package health

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// RedisChecker checks Redis connectivity.
type RedisChecker struct {
	client *redis.Client
	name   string
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{
		client: client,
		name:   "redis",
	}
}

// Name returns the name of the checker.
func (r *RedisChecker) Name() string {
	return r.name
}

// Check pings Redis and reads its server info.
func (r *RedisChecker) Check(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client not configured")
	}

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	info, err := r.client.Info(ctx, "server").Result()
	if err != nil {
		return fmt.Errorf("failed to get redis info: %w", err)
	}
	if len(info) == 0 {
		return fmt.Errorf("empty redis info response")
	}

	return nil
}

// MemoryChecker reports degraded when the Go heap grows past a limit.
type MemoryChecker struct {
	limitBytes uint64
	lastHeap   atomic.Uint64
}

// NewMemoryChecker creates a memory checker. A zero limit disables the
// threshold and only reports usage.
func NewMemoryChecker(limitBytes uint64) *MemoryChecker {
	return &MemoryChecker{limitBytes: limitBytes}
}

// Name returns the name of the checker.
func (m *MemoryChecker) Name() string {
	return "memory"
}

// Check reads runtime memory statistics.
func (m *MemoryChecker) Check(ctx context.Context) error {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	m.lastHeap.Store(stats.HeapAlloc)

	if m.limitBytes > 0 && stats.HeapAlloc > m.limitBytes {
		return &DegradedError{
			Reason: fmt.Sprintf("heap %d bytes exceeds limit %d", stats.HeapAlloc, m.limitBytes),
		}
	}
	return nil
}

// Details reports the heap size seen by the last check.
func (m *MemoryChecker) Details() map[string]interface{} {
	return map[string]interface{}{
		"heap_alloc_bytes": m.lastHeap.Load(),
		"limit_bytes":      m.limitBytes,
		"goroutines":       runtime.NumGoroutine(),
	}
}
