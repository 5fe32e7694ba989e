package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/llm"
	"github.com/fyrsmithlabs/ragd/internal/registry"
)

// fakeEmbedder returns fixed vectors per text, failing on unknown inputs.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, ok := e.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		out[i] = v
	}
	return out, nil
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// fakeGenerator records the last call and plays back canned output.
type fakeGenerator struct {
	response  string
	err       error
	fragments []string
	streamErr error

	lastMessages []llm.Message
	lastModel    string
}

func (g *fakeGenerator) Complete(ctx context.Context, messages []llm.Message, model string) (string, error) {
	g.lastMessages = messages
	g.lastModel = model
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func (g *fakeGenerator) Stream(ctx context.Context, messages []llm.Message, model string) (<-chan llm.Fragment, error) {
	g.lastMessages = messages
	g.lastModel = model
	if g.err != nil {
		return nil, g.err
	}

	out := make(chan llm.Fragment)
	go func() {
		defer close(out)
		for _, text := range g.fragments {
			out <- llm.Fragment{Text: text}
		}
		if g.streamErr != nil {
			out <- llm.Fragment{Err: g.streamErr}
		}
	}()
	return out, nil
}

// newTestService builds a service over a registry seeded with one collection
// of the given chunk texts, returning the service, the generator, and the
// collection id.
func newTestService(embedder *fakeEmbedder, generator *fakeGenerator, chunkTexts ...string) (*Service, string, error) {
	reg := registry.New(embedder, zap.NewNop())

	chunks := make([]chunker.Chunk, len(chunkTexts))
	for i, text := range chunkTexts {
		chunks[i] = chunker.Chunk{Index: i, Text: text}
	}

	id, err := reg.Create(context.Background(), chunks)
	if err != nil {
		return nil, "", err
	}

	return NewService(reg, generator, zap.NewNop()), id, nil
}
