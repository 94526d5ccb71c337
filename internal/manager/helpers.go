package manager

import (
	"os"

	"aicore/internal/registry"
	"aicore/pkg/types"
)

// getModelByName looks up a model in the registry. Caller must hold m.mu.
func (m *Manager) getModelByName(name string) (types.Model, bool) {
	for _, mdl := range m.registry {
		if mdl.Name == name {
			return mdl, true
		}
	}
	return types.Model{}, false
}

// estimateMemMB attributes a memory cost to a model for budget accounting.
// The configured max_memory wins; otherwise the artifact size on disk is a
// reasonable lower bound, and we never go below 1 MB so every instance
// counts against the budget.
func estimateMemMB(mdl types.Model) int {
	if mb, err := registry.ParseMemoryMB(mdl.MaxMemory); err == nil && mb > 0 {
		return mb
	}
	if fi, err := os.Stat(mdl.Path); err == nil && fi.Size() > 0 {
		mb := int(fi.Size() / (1024 * 1024))
		if mb > 0 {
			return mb
		}
	}
	return 1
}
