package manager

import (
	"context"
	"time"
)

// beginGeneration reserves a queue slot and then the single in-flight slot
// for the named instance. Returns a release func to be deferred.
func (m *Manager) beginGeneration(ctx context.Context, name string) (func(), error) {
	m.mu.RLock()
	inst := m.instances[name]
	draining := inst != nil && inst.State == StateDraining
	m.mu.RUnlock()
	if inst == nil {
		return func() {}, modelNotFoundError{name: name}
	}
	// Draining instances reject new work so unload can complete.
	if draining {
		return func() {}, tooBusyError{model: name}
	}

	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case inst.queueCh <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{model: name}
	}

	acquired := false
	defer func() {
		if !acquired {
			<-inst.queueCh
		}
	}()
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer2 := time.NewTimer(m.maxWait)
	defer timer2.Stop()
	select {
	case inst.genCh <- struct{}{}:
		acquired = true
		m.mu.Lock()
		inst.LastUsed = time.Now()
		m.mu.Unlock()
		return func() { <-inst.genCh; <-inst.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer2.C:
		return func() {}, tooBusyError{model: name}
	}
}
