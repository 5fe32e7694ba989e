package vectorstore

// Record is one stored (key, embedding, text) entry.
type Record struct {
	// Key is the index-local unique identifier.
	Key string

	// Embedding is the vector produced by the embedding provider.
	Embedding []float32

	// Text is the original chunk content, preserved for retrieval.
	Text string
}

// SearchResult is one similarity match.
type SearchResult struct {
	// Key is the matched record's identifier.
	Key string

	// Text is the matched record's content.
	Text string

	// Score is the cosine similarity in [-1, 1] (higher = more similar).
	Score float32
}
