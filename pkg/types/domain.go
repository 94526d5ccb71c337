package types

// ModelConfig is one entry in config/models.json. Field names and defaults
// follow the configuration file consumed by the serving stack.
type ModelConfig struct {
	// Loader backend for the model.
	// example: transformers
	Type string `json:"type,omitempty" yaml:"type,omitempty" example:"transformers"`
	// Hub identifier or filesystem path to the weights. Required.
	// example: mistralai/Mistral-7B-Instruct-v0.2
	Path string `json:"path" yaml:"path" example:"mistralai/Mistral-7B-Instruct-v0.2"`
	// Weight file format: safetensor, gguf or onnx.
	// example: safetensor
	Format string `json:"format,omitempty" yaml:"format,omitempty" example:"safetensor"`
	// Placement device: auto, cpu or cuda.
	// example: auto
	Device string `json:"device,omitempty" yaml:"device,omitempty" example:"auto"`
	// Quantization mode (none, 4bit, 8bit, or a gguf quant tag).
	// example: 4bit
	Quantization string `json:"quantization,omitempty" yaml:"quantization,omitempty" example:"4bit"`
	// Memory ceiling for this model, human-readable ("8GB", "512MB").
	// example: 8GB
	MaxMemory string `json:"max_memory,omitempty" yaml:"max_memory,omitempty" example:"8GB"`
	// Context window in tokens.
	// example: 4096
	ContextLength int `json:"context_length,omitempty" yaml:"context_length,omitempty" example:"4096"`
	// Default sampling temperature.
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" example:"0.7"`
	// Default nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" yaml:"top_p,omitempty" example:"0.9"`
	// Default cap on generated tokens.
	// example: 512
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" example:"512"`
	// Optional LoRA adapter path layered on the base weights.
	Adapter string `json:"adapter,omitempty" yaml:"adapter,omitempty"`
	// True when the hub path needs an access token to download.
	RequiresToken bool `json:"requires_token,omitempty" yaml:"requires_token,omitempty"`
	// Allow custom modeling code from the hub repository.
	TrustRemoteCode bool `json:"trust_remote_code,omitempty" yaml:"trust_remote_code,omitempty"`
	// Prefer the fast tokenizer implementation.
	UseFastTokenizer bool `json:"use_fast_tokenizer,omitempty" yaml:"use_fast_tokenizer,omitempty"`
}

// Model pairs a registry name with its configuration record.
type Model struct {
	// Registry name, the key in models.json.
	// example: mistral-7b-instruct
	Name string `json:"name" example:"mistral-7b-instruct"`
	ModelConfig
}
