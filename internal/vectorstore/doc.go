// Package vectorstore provides an in-memory vector index with exact search.
//
// The index stores (key, embedding, text) records and answers similarity
// queries by brute-force cosine scan over every stored vector. This is O(n*d)
// per search, which is the right trade-off for session-scoped document
// collections: no index build cost, exact results, and no external
// dependencies. The Searcher contract is deliberately narrow so an
// approximate index could be dropped in behind it later.
//
// Indexes are rebuilt per session and never persisted. All state is lost at
// process exit.
//
// # Usage
//
//	idx := vectorstore.NewIndex(embedder)
//	if err := idx.BuildFrom(ctx, chunks); err != nil {
//	    return err
//	}
//	results, err := idx.SearchByText(ctx, "query", 3)
package vectorstore
