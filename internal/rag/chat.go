package rag

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/llm"
)

// Chat answers a user message with a streamed, optionally grounded
// completion.
//
// The returned channel delivers fragments in provider order as they arrive;
// it is closed when the provider finishes or after a terminal error fragment.
// Fragments already delivered when an error occurs are not retracted.
// Cancelling ctx stops consumption and releases the provider connection.
func (s *Service) Chat(ctx context.Context, systemInstruction, userMessage, collectionID, model string) (<-chan llm.Fragment, error) {
	prompt, used, count := s.BuildSystemPrompt(ctx, systemInstruction, userMessage, collectionID, chatContextK)

	s.logger.Debug("chat prompt built",
		zap.Bool("context_used", used),
		zap.Int("context_chunks", count),
	)

	messages := []llm.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: userMessage},
	}

	return s.llm.Stream(ctx, messages, model)
}
