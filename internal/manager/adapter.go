package manager

import (
	"context"
	"fmt"

	"aicore/pkg/types"
)

// InferenceAdapter abstracts the model runtime used by the Manager.
type InferenceAdapter interface {
	// Start prepares a session for inference with the given model and parameters.
	Start(model types.Model, params InferParams) (InferSession, error)
}

// InferSession represents a single inference session.
type InferSession interface {
	// Generate produces tokens for the given prompt, invoking onToken for
	// each. Implementations must return when the context is canceled.
	Generate(ctx context.Context, prompt string, onToken func(string) error) (FinalResult, error)
	// Close releases any resources associated with the session.
	Close() error
}

// InferParams captures generation parameters passed to the adapter.
type InferParams struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
	Stop        []string
	ContextSize int
	Threads     int
}

// FinalResult summarizes the generation.
type FinalResult struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage contains token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewAdapter selects an inference adapter by name. "echo" is the serving
// stub; "llama" runs gguf models in-process when built with the llama tag.
func NewAdapter(kind string, ctxSize, threads int) (InferenceAdapter, error) {
	switch kind {
	case "", "echo":
		return echoAdapter{}, nil
	case "llama":
		return NewLlamaAdapter(ctxSize, threads), nil
	default:
		return nil, fmt.Errorf("unknown inference adapter %q", kind)
	}
}
