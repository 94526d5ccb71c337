package manager

import (
	"context"
	"fmt"
	"strings"

	"aicore/pkg/types"
)

// echoAdapter is the serving stub: it acknowledges the prompt without real
// inference, which is exactly what the API stub shipped before a model
// runtime was wired in. Useful for smoke tests and as the default in builds
// without llama support.
type echoAdapter struct{}

type echoSession struct {
	model  types.Model
	params InferParams
}

func (echoAdapter) Start(model types.Model, params InferParams) (InferSession, error) {
	return &echoSession{model: model, params: params}, nil
}

func (s *echoSession) Generate(ctx context.Context, prompt string, onToken func(string) error) (FinalResult, error) {
	out := fmt.Sprintf("AI Model '%s' received: %s", s.model.Name, prompt)
	words := strings.Fields(out)
	if s.params.MaxTokens > 0 && len(words) > s.params.MaxTokens {
		words = words[:s.params.MaxTokens]
	}
	var b strings.Builder
	for i, w := range words {
		select {
		case <-ctx.Done():
			return FinalResult{}, ctx.Err()
		default:
		}
		tok := w
		if i < len(words)-1 {
			tok += " "
		}
		if onToken != nil {
			if err := onToken(tok); err != nil {
				return FinalResult{}, err
			}
		}
		b.WriteString(tok)
	}
	return FinalResult{
		Content: b.String(),
		Usage: Usage{
			PromptTokens:     len(strings.Fields(prompt)),
			CompletionTokens: len(words),
			TotalTokens:      len(strings.Fields(prompt)) + len(words),
		},
		FinishReason: "stop",
	}, nil
}

func (s *echoSession) Close() error { return nil }
