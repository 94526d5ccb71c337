package manager

import (
	"time"

	"aicore/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultLoadTimeout   = 300 * time.Second
	defaultDrainTimeout  = 60 * time.Second
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry     []types.Model
	DefaultModel string
	// Memory budget across all instances in MB (0 = unlimited).
	BudgetMB int
	// Reserved memory margin in MB kept free under the budget.
	MarginMB      int
	MaxQueueDepth int
	MaxWait       time.Duration
	LoadTimeout   time.Duration
	DrainTimeout  time.Duration
	// Reject prompts longer than this many bytes (0 = unlimited).
	MaxPromptLength int
	// Clamp generated tokens per request to this many (0 = unlimited).
	MaxTokensPerRequest int
	// Adapter runs the actual inference. Defaults to the echo stub.
	Adapter InferenceAdapter
	// Publisher receives lifecycle events. Defaults to a no-op.
	Publisher EventPublisher
}

// New constructs a Manager with defaults for everything but the registry,
// budget and default model.
func New(reg []types.Model, budgetMB, marginMB int, defaultModel string) *Manager {
	return NewWithConfig(ManagerConfig{
		Registry:     reg,
		BudgetMB:     budgetMB,
		MarginMB:     marginMB,
		DefaultModel: defaultModel,
	})
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		state:        StateReady,
		registry:     cfg.Registry,
		budgetMB:     cfg.BudgetMB,
		marginMB:     cfg.MarginMB,
		defaultModel: cfg.DefaultModel,
		maxPromptLen: cfg.MaxPromptLength,
		maxTokensCap: cfg.MaxTokensPerRequest,
		instances:    make(map[string]*Instance),
		adapter:      cfg.Adapter,
		publisher:    cfg.Publisher,
	}
	if m.adapter == nil {
		m.adapter = echoAdapter{}
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	if cfg.LoadTimeout <= 0 {
		m.loadTimeout = defaultLoadTimeout
	} else {
		m.loadTimeout = cfg.LoadTimeout
	}
	if cfg.DrainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	} else {
		m.drainTimeout = cfg.DrainTimeout
	}
	m.startTime = time.Now()
	return m
}
