// Package index defines the document index adapters the retrieval pipeline
// draws candidates from: dense vector spaces and a lexical BM25 index.
package index

import "context"

// Source identifies a retrieval source.
type Source string

const (
	// SourceVectorPrimary is the primary dense embedding space.
	SourceVectorPrimary Source = "vector_primary"
	// SourceVectorSecondary is the optional secondary dense embedding space.
	SourceVectorSecondary Source = "vector_secondary"
	// SourceLexical is the in-memory BM25 lexical index.
	SourceLexical Source = "lexical"
)

// Filter narrows a search to a subset of the corpus.
type Filter struct {
	// FileID restricts results to chunks of a single source file.
	FileID string
}

// Candidate is a single raw hit from one source, before fusion.
type Candidate struct {
	DocumentID string
	FileID     string
	FileName   string
	ChunkID    string
	Content    string
	// Score is the source-native relevance score. Scales differ between
	// sources and are only comparable after normalization.
	Score float64
	// Rank is the 1-based position within this source's result list.
	Rank   int
	Source Source
}

// Index is a searchable document source.
type Index interface {
	// Name returns the source identity for scoring and diagnostics.
	Name() Source

	// Search returns up to k candidates for the query, best first.
	// An empty result is not an error.
	Search(ctx context.Context, query string, k int, filter *Filter) ([]Candidate, error)
}

// SourceError wraps a failure of a single index so callers can tell
// which source degraded without parsing error strings.
type SourceError struct {
	Source Source
	Err    error
}

func (e *SourceError) Error() string {
	return "index source " + string(e.Source) + " failed: " + e.Err.Error()
}

func (e *SourceError) Unwrap() error { return e.Err }
