package manager

// evictUntilFitsLocked removes LRU idle instances until requiredMB fits under
// the budget with the configured margin. Caller must hold m.mu. Instances
// that are loading, draining, or have in-flight or queued work are never
// evicted; if nothing idle remains we stop rather than cancel work. Evicted
// instances are returned so the caller can publish events after releasing
// the lock.
func (m *Manager) evictUntilFitsLocked(requiredMB int) []*Instance {
	var evicted []*Instance
	for {
		if m.usedEstMB+requiredMB+m.marginMB <= m.budgetMB {
			return evicted
		}
		var lru *Instance
		for _, inst := range m.instances {
			if inst.State == StateLoading || inst.State == StateDraining {
				continue
			}
			if len(inst.genCh) > 0 || len(inst.queueCh) > 0 {
				continue
			}
			if lru == nil || inst.LastUsed.Before(lru.LastUsed) {
				lru = inst
			}
		}
		if lru == nil {
			return evicted
		}
		delete(m.instances, lru.Name)
		m.usedEstMB -= lru.EstMemMB
		if m.usedEstMB < 0 {
			m.usedEstMB = 0
		}
		m.evictionsTotal++
		evicted = append(evicted, lru)
	}
}
