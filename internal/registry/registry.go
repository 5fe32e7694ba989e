// Package registry manages collection registration with UUID tracking.
//
// A collection owns exactly one vector index and is the unit of ingestion and
// deletion. The registry is the exclusive owner of all collections: it is
// process-wide mutable state, initialized empty at startup, passed by
// reference to request handlers, and torn down at process exit. No durability
// is provided.
//
// Collection identifiers are random UUIDs, which keeps them collision-free
// for the registry's lifetime. The registry map is guarded by its own lock
// while each index carries its own; operations on different collections do
// not serialize, and deleting a collection mid-search on the same identifier
// is safe because the searcher holds its own reference to the index.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// ErrCollectionNotFound is returned when a collection does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// CollectionInfo contains metadata about one registered collection.
type CollectionInfo struct {
	// ID is the collection identifier.
	ID string `json:"collection_id"`

	// RecordCount is the number of records in the collection's index.
	RecordCount int `json:"chunks_count"`
}

// Registry maps collection identifiers to vector indexes.
type Registry struct {
	mu          sync.RWMutex
	collections map[string]*vectorstore.Index
	embedder    embeddings.Embedder
	logger      *zap.Logger
}

// New creates an empty registry whose collections embed via embedder.
func New(embedder embeddings.Embedder, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		collections: make(map[string]*vectorstore.Index),
		embedder:    embedder,
		logger:      logger,
	}
}

// Create builds a new index from the supplied chunks and registers it under a
// fresh identifier. Ingestion is all-or-nothing: if the build fails, nothing
// is registered and the index build error is returned.
func (r *Registry) Create(ctx context.Context, chunks []chunker.Chunk) (string, error) {
	index := vectorstore.NewIndex(r.embedder)
	if err := index.BuildFrom(ctx, chunks); err != nil {
		return "", fmt.Errorf("building collection index: %w", err)
	}

	id := uuid.NewString()

	r.mu.Lock()
	r.collections[id] = index
	r.mu.Unlock()

	r.logger.Info("collection created",
		zap.String("collection_id", id),
		zap.Int("chunks", index.Len()),
	)
	return id, nil
}

// Get returns the index owned by the given collection.
func (r *Registry) Get(id string) (*vectorstore.Index, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, ok := r.collections[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, id)
	}
	return index, nil
}

// List returns a snapshot of all collections, ordered by identifier so the
// listing is stable within one process lifetime.
func (r *Registry) List() []CollectionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]CollectionInfo, 0, len(r.collections))
	for id, index := range r.collections {
		infos = append(infos, CollectionInfo{ID: id, RecordCount: index.Len()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Delete removes a collection and its index. Deleting an absent collection
// returns ErrCollectionNotFound so callers can distinguish "nothing to
// delete" from success; a second delete of the same identifier fails the
// same way.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.collections[id]; !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, id)
	}
	delete(r.collections, id)

	r.logger.Info("collection deleted", zap.String("collection_id", id))
	return nil
}
