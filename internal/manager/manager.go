// Package manager owns the lifecycle of configured models: loading against a
// memory budget with LRU eviction, per-instance admission control, graceful
// unloading, and generation via a pluggable inference adapter.
package manager

import (
	"sync"
	"time"

	"aicore/pkg/types"
)

type Manager struct {
	mu           sync.RWMutex
	state        State
	err          string
	registry     []types.Model
	defaultModel string
	budgetMB     int
	marginMB     int
	maxPromptLen int
	maxTokensCap int

	instances map[string]*Instance
	usedEstMB int

	loadsTotal     uint64
	evictionsTotal uint64

	maxQueueDepth int
	maxWait       time.Duration
	loadTimeout   time.Duration
	drainTimeout  time.Duration

	adapter   InferenceAdapter
	publisher EventPublisher
	startTime time.Time
}

// Ready reports whether the manager can serve requests. It is true as soon
// as the registry is valid; models load on demand.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state != StateError
}

// ListModels returns a copy of the registry.
func (m *Manager) ListModels() []types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Model, len(m.registry))
	copy(out, m.registry)
	return out
}

// DefaultModel returns the configured default model name.
func (m *Manager) DefaultModel() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultModel
}

// IsLoaded reports whether the named model has a ready instance.
func (m *Manager) IsLoaded(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[name]
	return ok && inst.State == StateReady
}

// SetRegistry swaps the registry and default model, used by the config file
// watcher for hot reload. Instances of models that disappeared stay resident
// until unloaded or evicted; new requests for them will fail resolution.
func (m *Manager) SetRegistry(reg []types.Model, defaultModel string) {
	m.mu.Lock()
	m.registry = append([]types.Model(nil), reg...)
	m.defaultModel = defaultModel
	m.mu.Unlock()
	m.publish("registry_reload", "", map[string]any{"models": len(reg)})
}
