package manager

import (
	"context"

	"aicore/pkg/types"
)

// GenerateResult is the manager-level outcome of a generation, before the
// HTTP layer shapes it into a response payload.
type GenerateResult struct {
	Content   string
	Usage     Usage
	ModelName string
}

// Generate resolves the model, admits the request and runs the adapter.
// Request parameters override the model's configured defaults.
func (m *Manager) Generate(ctx context.Context, req types.GenerateRequest) (GenerateResult, error) {
	name := req.Model
	if name == "" {
		name = m.DefaultModel()
	}
	if m.maxPromptLen > 0 && len(req.Prompt) > m.maxPromptLen {
		return GenerateResult{}, promptTooLongError{length: len(req.Prompt), limit: m.maxPromptLen}
	}

	if err := m.EnsureInstance(ctx, name); err != nil {
		return GenerateResult{}, err
	}

	release, err := m.beginGeneration(ctx, name)
	if err != nil {
		return GenerateResult{}, err
	}
	defer release()

	m.mu.RLock()
	mdl, ok := m.getModelByName(name)
	m.mu.RUnlock()
	if !ok {
		return GenerateResult{}, ErrModelNotFound(name)
	}

	params := InferParams{
		Temperature: mdl.Temperature,
		TopP:        mdl.TopP,
		MaxTokens:   mdl.MaxTokens,
		ContextSize: mdl.ContextLength,
		Stop:        req.Stop,
	}
	if req.Temperature > 0 {
		params.Temperature = req.Temperature
	}
	if req.TopP > 0 {
		params.TopP = req.TopP
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = req.MaxTokens
	}
	// The per-request cap wins over both the model default and the request:
	// an unset or oversized MaxTokens is clamped rather than rejected.
	if m.maxTokensCap > 0 && (params.MaxTokens <= 0 || params.MaxTokens > m.maxTokensCap) {
		params.MaxTokens = m.maxTokensCap
	}

	sess, err := m.adapter.Start(mdl, params)
	if err != nil {
		return GenerateResult{}, err
	}
	defer sess.Close()

	res, err := sess.Generate(ctx, req.Prompt, nil)
	if err != nil {
		return GenerateResult{}, err
	}
	return GenerateResult{Content: res.Content, Usage: res.Usage, ModelName: name}, nil
}
