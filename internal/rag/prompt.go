package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	// chatContextK is how many chunks ground a conversational answer.
	chatContextK = 3

	// questionContextK is how many chunks ground question generation. The
	// wider window is deliberate: question sets benefit from more source
	// material than a single focused answer does.
	questionContextK = 5

	contextHeader = "Based on the uploaded document, here is the relevant context:\n\n"

	contextDirective = "Please answer the user's question using ONLY the information " +
		"provided in the context above. If the answer cannot be found in the context, " +
		"please say so."
)

// BuildSystemPrompt augments the caller's system instruction with retrieved
// context for the query.
//
// When collectionID is empty, unknown, or retrieval yields nothing, the
// instruction is returned byte-for-byte unchanged with used=false. Retrieval
// failures are recovered locally: they degrade to the no-context result and
// are logged, never escalated, so a flaky embedding provider cannot fail a
// chat request that can still be answered ungrounded.
func (s *Service) BuildSystemPrompt(ctx context.Context, systemInstruction, query, collectionID string, k int) (prompt string, used bool, contextCount int) {
	if collectionID == "" {
		return systemInstruction, false, 0
	}

	index, err := s.registry.Get(collectionID)
	if err != nil {
		s.logger.Warn("collection not found for retrieval",
			zap.String("collection_id", collectionID),
		)
		return systemInstruction, false, 0
	}

	results, err := index.SearchByText(ctx, query, k)
	if err != nil {
		s.logger.Warn("retrieval failed, continuing without context",
			zap.String("collection_id", collectionID),
			zap.Error(err),
		)
		return systemInstruction, false, 0
	}
	if len(results) == 0 {
		return systemInstruction, false, 0
	}

	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\n")
	b.WriteString(contextHeader)
	for i, r := range results {
		fmt.Fprintf(&b, "Context %d:\n%s\n\n", i+1, r.Text)
	}
	b.WriteString(contextDirective)

	return b.String(), true, len(results)
}
