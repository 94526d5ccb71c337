package manager

import (
	"sort"
	"time"

	"aicore/pkg/types"
)

// Status builds a detailed status response for /api/v1/status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp := types.StatusResponse{
		BudgetMB:       m.budgetMB,
		UsedMB:         m.usedEstMB,
		MarginMB:       m.marginMB,
		State:          string(m.state),
		LastError:      m.err,
		UptimeSeconds:  int64(time.Since(m.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
		LoadsTotal:     m.loadsTotal,
		EvictionsTotal: m.evictionsTotal,
	}
	resp.Instances = make([]types.InstanceStatus, 0, len(m.instances))
	for _, inst := range m.instances {
		switch inst.State {
		case StateLoading:
			resp.WarmupsInProgress++
		case StateDraining:
			resp.DrainingCount++
		}
		resp.Instances = append(resp.Instances, types.InstanceStatus{
			Model:         inst.Name,
			State:         string(inst.State),
			LastUsed:      inst.LastUsed.Unix(),
			EstMemoryMB:   inst.EstMemMB,
			QueueLen:      len(inst.queueCh),
			Inflight:      len(inst.genCh),
			MaxQueueDepth: cap(inst.queueCh),
		})
	}
	sort.Slice(resp.Instances, func(i, j int) bool {
		return resp.Instances[i].Model < resp.Instances[j].Model
	})
	return resp
}

// LoadedCount reports how many instances are resident and ready.
func (m *Manager) LoadedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, inst := range m.instances {
		if inst.State == StateReady {
			n++
		}
	}
	return n
}
