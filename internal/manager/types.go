package manager

import "time"

// State represents lifecycle state of the manager/instances.
type State string

const (
	StateReady    State = "ready"
	StateLoading  State = "loading"
	StateDraining State = "draining"
	StateError    State = "error"
)

// Instance represents a model resident in memory (one per model name).
type Instance struct {
	Name     string
	State    State
	LastUsed time.Time
	// Memory attributed to this instance, from the model's max_memory.
	EstMemMB int
	// Queueing primitives
	genCh   chan struct{} // size 1: single in-flight generation
	queueCh chan struct{} // buffered: queue slots
}
