package manager

import (
	"context"
	"time"
)

// EnsureInstance makes sure an instance for the named model is resident and
// ready, loading it on demand. An empty name resolves to the default model.
func (m *Manager) EnsureInstance(ctx context.Context, name string) error {
	if name == "" {
		name = m.DefaultModel()
		if name == "" {
			return ErrModelNotFound("(no default model configured)")
		}
	}

	loadCtx := ctx
	if m.loadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, m.loadTimeout)
		defer cancel()
	}

	// Admission to the load path is one critical section: the budget check,
	// any evictions and the memory reservation happen atomically, so two
	// concurrent loads can never both pass against stale accounting.
	m.mu.Lock()
	if inst, ok := m.instances[name]; ok && inst.State == StateReady {
		inst.LastUsed = time.Now()
		m.mu.Unlock()
		return nil
	}
	mdl, found := m.getModelByName(name)
	if !found {
		m.mu.Unlock()
		return ErrModelNotFound(name)
	}
	reqMB := estimateMemMB(mdl)

	inst, existed := m.instances[name]
	delta := reqMB
	if existed && inst != nil {
		// Re-loading an instance that is already accounted for (a retry
		// after an error): only the size change counts against the budget.
		delta = reqMB - inst.EstMemMB
	}

	var evicted []*Instance
	if m.budgetMB > 0 && delta > 0 {
		evicted = m.evictUntilFitsLocked(delta)
		if m.usedEstMB+delta+m.marginMB > m.budgetMB {
			m.mu.Unlock()
			for _, ev := range evicted {
				m.publish("evict", ev.Name, map[string]any{"est_memory_mb": ev.EstMemMB})
			}
			return tooBusyError{model: name}
		}
	}

	addedNow := false
	if !existed || inst == nil {
		inst = &Instance{
			Name:     name,
			State:    StateLoading,
			LastUsed: time.Now(),
			EstMemMB: reqMB,
			genCh:    make(chan struct{}, 1),
			queueCh:  make(chan struct{}, m.maxQueueDepth),
		}
		m.instances[name] = inst
		addedNow = true
	} else {
		inst.State = StateLoading
		inst.EstMemMB = reqMB
		inst.LastUsed = time.Now()
	}
	m.usedEstMB += delta
	m.mu.Unlock()

	for _, ev := range evicted {
		m.publish("evict", ev.Name, map[string]any{"est_memory_mb": ev.EstMemMB})
	}
	m.publish("load_start", name, map[string]any{"est_memory_mb": reqMB})

	// Warmup. The adapter pays the real cost lazily on first generation; this
	// keeps the state transition observable without double-loading weights.
	select {
	case <-time.After(50 * time.Millisecond):
	case <-loadCtx.Done():
		m.mu.Lock()
		if addedNow {
			// Roll back the reservation made above.
			delete(m.instances, name)
			m.usedEstMB -= reqMB
			if m.usedEstMB < 0 {
				m.usedEstMB = 0
			}
		} else {
			inst.State = StateError
		}
		m.err = loadCtx.Err().Error()
		m.mu.Unlock()
		return loadCtx.Err()
	}

	m.mu.Lock()
	inst.State = StateReady
	inst.LastUsed = time.Now()
	m.loadsTotal++
	m.state = StateReady
	m.err = ""
	m.mu.Unlock()
	m.publish("load_done", name, map[string]any{"est_memory_mb": reqMB})
	return nil
}

// Load loads the named model eagerly and reports how long it took. With
// force set, an already resident instance is dropped and reloaded.
func (m *Manager) Load(ctx context.Context, name string, force bool) (time.Duration, error) {
	if name == "" {
		name = m.DefaultModel()
	}
	if force && m.IsLoaded(name) {
		if err := m.Unload(name); err != nil {
			return 0, err
		}
	}
	start := time.Now()
	if err := m.EnsureInstance(ctx, name); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
