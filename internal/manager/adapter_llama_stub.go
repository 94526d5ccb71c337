//go:build !llama

package manager

// This file provides a no-CGO stub for the llama adapter, compiled when the
// 'llama' build tag is NOT set. Default builds and CI stay CGO-free; selecting
// the llama adapter in such builds fails fast instead of mocking inference.

import (
	"aicore/pkg/types"
)

type llamaAdapter struct {
	ctxSize int
	threads int
}

func NewLlamaAdapter(ctxSize, threads int) InferenceAdapter {
	return &llamaAdapter{ctxSize: ctxSize, threads: threads}
}

func (a *llamaAdapter) Start(model types.Model, params InferParams) (InferSession, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
