package types

// GenerateRequest is the payload for POST /api/v1/generate.
type GenerateRequest struct {
	// Required prompt text to generate a completion for.
	// example: Summarize the notice period rules.
	Prompt string `json:"prompt" example:"Summarize the notice period rules."`
	// Optional model name. If empty, the server default is used.
	// example: mistral-7b-instruct
	Model string `json:"model,omitempty" example:"mistral-7b-instruct"`
	// Maximum number of new tokens to generate.
	// example: 512
	MaxTokens int `json:"max_tokens,omitempty" example:"512"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// Optional stop sequences.
	Stop []string `json:"stop_tokens,omitempty"`
}

// GenerateResponse is returned by POST /api/v1/generate.
type GenerateResponse struct {
	Response string `json:"response"`
	// Model that produced the response.
	// example: mistral-7b-instruct
	Model string `json:"model" example:"mistral-7b-instruct"`
	// Approximate number of tokens in the response.
	// example: 42
	TokensUsed int `json:"tokens_used,omitempty" example:"42"`
	// Wall-clock processing time in seconds.
	// example: 0.31
	ProcessingTime float64 `json:"processing_time" example:"0.31"`
	// True when the response was served from the cache.
	Cached bool `json:"cached"`
}

// ChatMessage is one turn in a conversation.
type ChatMessage struct {
	// Role: system, user or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	Content string `json:"content"`
}

// ChatRequest is the payload for POST /api/v1/chat. Either Message (single
// turn) or Messages (full history) must be set; Messages wins when both are.
type ChatRequest struct {
	Message     string        `json:"message,omitempty"`
	Messages    []ChatMessage `json:"messages,omitempty"`
	Model       string        `json:"model,omitempty" example:"mistral-7b-instruct"`
	MaxTokens   int           `json:"max_tokens,omitempty" example:"512"`
	Temperature float64       `json:"temperature,omitempty" example:"0.7"`
	TopP        float64       `json:"top_p,omitempty" example:"0.9"`
}

// ChatResponse is returned by POST /api/v1/chat.
type ChatResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
	// Conversation history including the new assistant turn.
	Messages       []ChatMessage `json:"messages"`
	TokensUsed     int           `json:"tokens_used,omitempty"`
	ProcessingTime float64       `json:"processing_time"`
}

// ModelStatus is a configured model plus its runtime load state.
type ModelStatus struct {
	Model
	// True when the model is currently resident in memory.
	Loaded bool `json:"loaded"`
}

// ModelListResponse is returned by GET /api/v1/models.
type ModelListResponse struct {
	Models []ModelStatus `json:"models"`
	// Name of the server default model.
	// example: mistral-7b-instruct
	DefaultModel string `json:"default_model,omitempty" example:"mistral-7b-instruct"`
	TotalModels  int    `json:"total_models"`
	LoadedModels int    `json:"loaded_models"`
}

// LoadRequest is the payload for POST /api/v1/models/load.
type LoadRequest struct {
	Model string `json:"model" example:"mistral-7b-instruct"`
	// Reload even if the model is already resident.
	Force bool `json:"force,omitempty"`
}

// LoadResponse is returned by POST /api/v1/models/load.
type LoadResponse struct {
	Success bool   `json:"success"`
	Model   string `json:"model"`
	// Load duration in seconds.
	LoadTime float64 `json:"load_time"`
	Message  string  `json:"message"`
}

// UnloadRequest is the payload for POST /api/v1/models/unload.
type UnloadRequest struct {
	Model string `json:"model" example:"mistral-7b-instruct"`
}

// UnloadResponse is returned by POST /api/v1/models/unload.
type UnloadResponse struct {
	Success bool   `json:"success"`
	Model   string `json:"model"`
	Message string `json:"message"`
}

// HealthModels summarizes registry and load state for /api/v1/health.
type HealthModels struct {
	Total   int    `json:"total"`
	Loaded  int    `json:"loaded"`
	Default string `json:"default,omitempty"`
}

// HealthCache reports response cache connectivity.
type HealthCache struct {
	Enabled   bool   `json:"enabled"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	// Overall status: healthy or degraded.
	// example: healthy
	Status  string `json:"status" example:"healthy"`
	Service string `json:"service" example:"aicore"`
	Version string `json:"version" example:"1.0.0"`
	// RFC3339 UTC server time.
	Timestamp     string       `json:"timestamp"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Models        HealthModels `json:"models"`
	Cache         HealthCache  `json:"cache"`
}

// InstanceStatus summarizes one resident model for /api/v1/status.
type InstanceStatus struct {
	Model string `json:"model" example:"mistral-7b-instruct"`
	// Lifecycle state: loading, ready or draining.
	// example: ready
	State string `json:"state" example:"ready"`
	// Last time this instance served a request (unix seconds).
	LastUsed int64 `json:"last_used_unix"`
	// Memory attributed to this instance in MB.
	EstMemoryMB int `json:"est_memory_mb"`
	// Queued requests waiting for the instance.
	QueueLen int `json:"queue_len"`
	// Requests currently being processed.
	Inflight      int `json:"inflight"`
	MaxQueueDepth int `json:"max_queue_depth"`
}

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	Instances []InstanceStatus `json:"instances"`
	// Memory budget across all instances in MB (0 = unlimited).
	BudgetMB int `json:"budget_mb"`
	UsedMB   int `json:"used_est_mb"`
	MarginMB int `json:"margin_mb"`
	// Overall manager state.
	// example: ready
	State string `json:"state" example:"ready"`
	// Last error observed by the manager, if any.
	LastError         string `json:"last_error,omitempty"`
	UptimeSeconds     int64  `json:"uptime_seconds"`
	ServerTimeUnix    int64  `json:"server_time_unix"`
	LoadsTotal        uint64 `json:"loads_total"`
	EvictionsTotal    uint64 `json:"evictions_total"`
	WarmupsInProgress int    `json:"warmups_in_progress"`
	DrainingCount     int    `json:"draining_count"`
}

// TokenResponse is returned by POST /api/v1/auth/token.
type TokenResponse struct {
	Token string `json:"token"`
	// Lifetime of the token in seconds.
	ExpiresIn int64 `json:"expires_in"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not found: unknown
	Error string `json:"error" example:"model not found: unknown"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
