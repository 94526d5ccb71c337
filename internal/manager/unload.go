package manager

import "time"

// Unload initiates a graceful drain of a model instance and removes it.
// The instance is marked draining so new work is rejected, then we wait up
// to drainTimeout for in-flight and queued requests to finish.
func (m *Manager) Unload(name string) error {
	if name == "" {
		return ErrModelNotFound("(unspecified)")
	}
	m.mu.Lock()
	inst := m.instances[name]
	if inst == nil {
		m.mu.Unlock()
		return ErrModelNotFound(name)
	}
	inst.State = StateDraining
	m.mu.Unlock()
	m.publish("unload_start", name, nil)

	deadline := time.Now().Add(m.drainTimeout)
	for {
		m.mu.RLock()
		qlen := len(inst.queueCh)
		inflight := len(inst.genCh)
		m.mu.RUnlock()
		if inflight == 0 && qlen == 0 {
			break
		}
		if time.Now().After(deadline) {
			m.publish("unload_timeout", name, map[string]any{"inflight": inflight, "queue": qlen})
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	m.mu.Lock()
	if inst2 := m.instances[name]; inst2 != nil {
		m.usedEstMB -= inst2.EstMemMB
		if m.usedEstMB < 0 {
			m.usedEstMB = 0
		}
	}
	delete(m.instances, name)
	m.mu.Unlock()

	m.publish("unload_done", name, nil)
	return nil
}
