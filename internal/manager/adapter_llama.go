//go:build llama

package manager

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"aicore/pkg/types"
)

// llamaAdapter runs gguf models in-process via go-llama.cpp. Only available
// when built with the 'llama' tag; default builds stay CGO-free.
type llamaAdapter struct {
	ctxSize int
	threads int
}

func NewLlamaAdapter(ctxSize, threads int) InferenceAdapter {
	return &llamaAdapter{ctxSize: ctxSize, threads: threads}
}

// llamaSession owns the loaded model for the lifetime of one request.
type llamaSession struct {
	model      *llama.LLama
	threads    int
	baseParams InferParams
}

func (a *llamaAdapter) Start(model types.Model, params InferParams) (InferSession, error) {
	if model.Format != "gguf" {
		return nil, ErrDependencyUnavailable("llama adapter only serves gguf models, got format " + model.Format)
	}
	if strings.TrimSpace(model.Path) == "" {
		return nil, errors.New("model path is empty")
	}
	ctxSize := a.ctxSize
	if params.ContextSize > 0 {
		ctxSize = params.ContextSize
	}
	m, err := llama.New(model.Path, llama.SetContext(ctxSize))
	if err != nil {
		return nil, err
	}
	threads := a.threads
	if params.Threads > 0 {
		threads = params.Threads
	}
	return &llamaSession{model: m, threads: threads, baseParams: params}, nil
}

func (s *llamaSession) Generate(ctx context.Context, prompt string, onToken func(string) error) (FinalResult, error) {
	if s.model == nil {
		return FinalResult{}, errors.New("llama model not initialized")
	}
	s.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if onToken != nil {
			if err := onToken(tok); err != nil {
				return false
			}
		}
		return true
	})
	po := predictOptions(s.baseParams, s.threads)
	text, err := s.model.Predict(prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, err
	}
	return FinalResult{
		Content:      text,
		FinishReason: "stop",
	}, nil
}

func (s *llamaSession) Close() error {
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}

func predictOptions(params InferParams, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(maxInt(1, params.MaxTokens)),
		llama.SetThreads(maxInt(1, threads)),
	}
	if params.TopP > 0 {
		po = append(po, llama.SetTopP(float32(params.TopP)))
	}
	if params.Temperature > 0 {
		po = append(po, llama.SetTemperature(float32(params.Temperature)))
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	return po
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
