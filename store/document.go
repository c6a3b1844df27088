package store

import (
	"context"

	"github.com/pkg/errors"
)

// Document represents a rule-corpus chunk. Immutable once stored.
type Document struct {
	ID        string
	FileID    string
	FileName  string
	ChunkID   string
	Source    string
	Content   string
	CreatedTs int64
}

// FindDocument is the find condition for documents.
type FindDocument struct {
	ID     *string
	FileID *string
	Limit  *int
}

// DocumentEmbedding represents the vector embedding of a document chunk.
// A chunk may carry one embedding per model, enabling multiple dense
// retrieval spaces over the same corpus.
type DocumentEmbedding struct {
	DocumentID string
	Model      string
	Embedding  []float32
	CreatedTs  int64
}

// DocumentWithScore represents a vector search result with similarity score.
type DocumentWithScore struct {
	Document *Document
	Score    float32 // cosine similarity, higher is more similar
}

// VectorSearchOptions represents the options for document vector search.
type VectorSearchOptions struct {
	Vector []float32
	Model  string
	Limit  int
	FileID *string // optional partition filter
}

// Validate validates the VectorSearchOptions.
func (o *VectorSearchOptions) Validate() error {
	if len(o.Vector) == 0 {
		return errors.New("vector cannot be empty")
	}
	if o.Model == "" {
		return errors.New("embedding model cannot be empty")
	}
	if o.Limit < 0 {
		return errors.Errorf("limit cannot be negative: %d", o.Limit)
	}
	if o.Limit == 0 {
		o.Limit = 10
	}
	if o.Limit > 1000 {
		return errors.Errorf("limit too large (max 1000): %d", o.Limit)
	}
	return nil
}

// CreateDocument stores a new document chunk.
func (s *Store) CreateDocument(ctx context.Context, doc *Document) (*Document, error) {
	return s.driver.CreateDocument(ctx, doc)
}

// ListDocuments lists document chunks matching the find condition.
func (s *Store) ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error) {
	return s.driver.ListDocuments(ctx, find)
}

// CountDocuments counts document chunks matching the find condition.
// Used as a cheap existence check before running the retrieval pipeline.
func (s *Store) CountDocuments(ctx context.Context, find *FindDocument) (int64, error) {
	return s.driver.CountDocuments(ctx, find)
}

// UpsertDocumentEmbedding inserts or updates a document embedding.
func (s *Store) UpsertDocumentEmbedding(ctx context.Context, embedding *DocumentEmbedding) error {
	return s.driver.UpsertDocumentEmbedding(ctx, embedding)
}

// VectorSearch performs similarity search over document embeddings.
func (s *Store) VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*DocumentWithScore, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return s.driver.VectorSearch(ctx, opts)
}
