// Package rag orchestrates retrieval-augmented generation.
//
// The service resolves a collection, retrieves the chunks most relevant to a
// query, folds them into the system instruction as grounding context, and
// drives the generation provider: streamed for conversation, non-streamed
// with a validated JSON output contract for question generation.
package rag

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/llm"
	"github.com/fyrsmithlabs/ragd/internal/registry"
)

// Generator drives a text generation provider.
type Generator interface {
	// Complete generates a full completion in one call.
	Complete(ctx context.Context, messages []llm.Message, model string) (string, error)

	// Stream generates a completion as an ordered sequence of fragments.
	Stream(ctx context.Context, messages []llm.Message, model string) (<-chan llm.Fragment, error)
}

// Service answers queries grounded in registered collections.
type Service struct {
	registry *registry.Registry
	llm      Generator
	logger   *zap.Logger
}

// NewService creates a RAG service over the given registry and generator.
func NewService(reg *registry.Registry, generator Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry: reg,
		llm:      generator,
		logger:   logger,
	}
}
