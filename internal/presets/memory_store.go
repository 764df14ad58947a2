package presets

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zsiec/smpte/internal/metrics"
)

const backendMemory = "memory"

// MemoryStore keeps presets in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	presets map[string]*Preset
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{presets: make(map[string]*Preset)}
}

func (m *MemoryStore) Put(ctx context.Context, preset *Preset) error {
	if preset == nil {
		return fmt.Errorf("preset cannot be nil")
	}
	if err := preset.Validate(); err != nil {
		metrics.IncrementPresetOperation(backendMemory, "put", "invalid")
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *preset
	if existing, ok := m.presets[preset.Name]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	m.presets[preset.Name] = &stored
	preset.CreatedAt = stored.CreatedAt

	metrics.IncrementPresetOperation(backendMemory, "put", "ok")
	metrics.SetPresetsStored(backendMemory, len(m.presets))
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, name string) (*Preset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.presets[name]
	if !ok {
		metrics.IncrementPresetOperation(backendMemory, "get", "miss")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	metrics.IncrementPresetOperation(backendMemory, "get", "hit")
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context) ([]*Preset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Preset, 0, len(m.presets))
	for _, p := range m.presets {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	metrics.IncrementPresetOperation(backendMemory, "list", "ok")
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.presets[name]; !ok {
		metrics.IncrementPresetOperation(backendMemory, "delete", "miss")
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(m.presets, name)

	metrics.IncrementPresetOperation(backendMemory, "delete", "ok")
	metrics.SetPresetsStored(backendMemory, len(m.presets))
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presets = make(map[string]*Preset)
	return nil
}
