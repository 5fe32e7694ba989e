package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/embeddings"
)

var (
	// ErrDimensionMismatch indicates an embedding whose length differs from
	// the index's established dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidArgument indicates an invalid search argument.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIngestionFailed indicates a failed index build.
	ErrIngestionFailed = errors.New("ingestion failed")
)

// Searcher is the read-side contract of an index.
//
// Implementations must return results ordered by descending similarity with
// ties broken by insertion order. The current implementation is exact; an
// approximate index can satisfy the same contract.
type Searcher interface {
	Search(query []float32, k int) ([]SearchResult, error)
	SearchByText(ctx context.Context, query string, k int) ([]SearchResult, error)
	Len() int
}

// Index is an in-memory vector index with exact cosine-similarity search.
//
// The embedding dimension is fixed by the first inserted record. All methods
// are safe for concurrent use.
type Index struct {
	mu        sync.RWMutex
	dimension int
	records   []Record
	byKey     map[string]int
	embedder  embeddings.Embedder
	metrics   *Metrics
}

// NewIndex creates an empty index backed by the given embedder.
func NewIndex(embedder embeddings.Embedder) *Index {
	return &Index{
		byKey:    make(map[string]int),
		embedder: embedder,
		metrics:  NewMetrics(zap.NewNop()),
	}
}

// Len returns the number of stored records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Dimension returns the established embedding dimension, or 0 before the
// first insert.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimension
}

// Add inserts one record. The first insert fixes the index dimension;
// subsequent embeddings of a different length are rejected with
// ErrDimensionMismatch. Inserting an existing key overwrites the previous
// record (last write wins); callers are responsible for key uniqueness.
func (ix *Index) Add(key string, embedding []float32, text string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.addLocked(key, embedding, text)
}

func (ix *Index) addLocked(key string, embedding []float32, text string) error {
	if ix.dimension == 0 {
		ix.dimension = len(embedding)
	} else if len(embedding) != ix.dimension {
		return fmt.Errorf("%w: got %d, index dimension is %d", ErrDimensionMismatch, len(embedding), ix.dimension)
	}

	rec := Record{Key: key, Embedding: embedding, Text: text}
	if pos, ok := ix.byKey[key]; ok {
		ix.records[pos] = rec
		return nil
	}
	ix.byKey[key] = len(ix.records)
	ix.records = append(ix.records, rec)
	return nil
}

// BuildFrom embeds every chunk in one batch call and inserts the resulting
// records. The operation is all-or-nothing: any embedding failure leaves the
// index in its prior state and is reported as ErrIngestionFailed wrapping the
// provider error.
func (ix *Index) BuildFrom(ctx context.Context, chunks []chunker.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: embedding %d chunks: %v", ErrIngestionFailed, len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", ErrIngestionFailed, len(vectors), len(chunks))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	// Validate every vector before mutating so a bad batch cannot leave a
	// partial build behind.
	dim := ix.dimension
	if dim == 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: chunk %d: %v", ErrIngestionFailed,
				i, fmt.Errorf("%w: got %d, index dimension is %d", ErrDimensionMismatch, len(v), dim))
		}
	}

	base := len(ix.records)
	for i, c := range chunks {
		key := fmt.Sprintf("chunk-%d", base+i)
		if err := ix.addLocked(key, vectors[i], c.Text); err != nil {
			return fmt.Errorf("%w: chunk %d: %v", ErrIngestionFailed, i, err)
		}
	}
	return nil
}

// Search computes cosine similarity between query and every stored embedding
// and returns the top k records by descending score. Ties keep insertion
// order. k <= 0 is rejected with ErrInvalidArgument; k larger than the record
// count is clamped. An empty index yields an empty result.
func (ix *Index) Search(query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	scored := make([]SearchResult, 0, len(ix.records))
	for _, rec := range ix.records {
		scored = append(scored, SearchResult{
			Key:   rec.Key,
			Text:  rec.Text,
			Score: cosineSimilarity(query, rec.Embedding),
		})
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// SearchByText embeds the query via the index's embedder and searches with
// the resulting vector.
func (ix *Index) SearchByText(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}

	vector, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := ix.Search(vector, k)
	ix.metrics.RecordSearch(ctx, ix.Len(), len(results), err)
	return results, err
}

// cosineSimilarity computes cosine similarity between two vectors.
//
// Formula: cos(θ) = (A · B) / (||A|| * ||B||)
// Returns a value in [-1, 1]. Mismatched lengths and zero-magnitude vectors
// score 0 rather than erroring, keeping the search ordering total.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}

	magA = math.Sqrt(magA)
	magB = math.Sqrt(magB)

	// Avoid division by zero
	if magA == 0 || magB == 0 {
		return 0
	}

	return float32(dot / (magA * magB))
}

var _ Searcher = (*Index)(nil)
