// Package chunker splits raw document text into overlapping character windows.
//
// Chunks are the atomic unit of ingestion and retrieval: each chunk is
// embedded independently and stored alongside its text, so chunk boundaries
// determine retrieval granularity. Splitting is purely character-based; no
// attempt is made to respect word or sentence boundaries.
package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig indicates bad chunking parameters.
var ErrInvalidConfig = errors.New("invalid chunking configuration")

// Document is a raw text source queued for chunking.
type Document struct {
	// Source identifies where the text came from (file name or path).
	Source string

	// Content is the full extracted text.
	Content string
}

// Chunk is a contiguous window of a document's text.
type Chunk struct {
	// Source is the originating document's source name.
	Source string

	// Index is the 0-based position of the chunk within its document.
	Index int

	// Text is the chunk content.
	Text string
}

// Split splits text into windows of size characters, each overlapping its
// predecessor by overlap characters. Chunk i starts at i*(size-overlap); the
// last chunk may be shorter than size. Empty text yields no chunks.
//
// Split is pure: identical inputs always produce identical output.
func Split(text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, size), got %d", ErrInvalidConfig, overlap)
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	step := size - overlap

	var chunks []Chunk
	for start, idx := 0, 0; start < len(runes); start, idx = start+step, idx+1 {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Index: idx,
			Text:  string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}

// SplitAll chunks every document and returns the concatenation of the
// per-document chunk sequences in input order. Each chunk carries its source
// document's name for traceability.
func SplitAll(docs []Document, size, overlap int) ([]Chunk, error) {
	var all []Chunk
	for _, doc := range docs {
		chunks, err := Split(doc.Content, size, overlap)
		if err != nil {
			return nil, err
		}
		for i := range chunks {
			chunks[i].Source = doc.Source
		}
		all = append(all, chunks...)
	}
	return all, nil
}
