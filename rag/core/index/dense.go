package index

import (
	"context"
	"log/slog"

	"github.com/hrygo/nutriscreen/rag/core/embedding"
	"github.com/hrygo/nutriscreen/store"
)

// DenseIndex retrieves candidates by embedding the query and running a
// vector similarity search against one embedding space.
type DenseIndex struct {
	store    *store.Store
	provider embedding.Provider
	source   Source
}

// NewDenseIndex creates a dense adapter over the given embedding space.
// source distinguishes the primary and secondary spaces; each space is
// keyed by the provider's model name in storage.
func NewDenseIndex(s *store.Store, provider embedding.Provider, source Source) *DenseIndex {
	return &DenseIndex{store: s, provider: provider, source: source}
}

func (d *DenseIndex) Name() Source { return d.source }

func (d *DenseIndex) Search(ctx context.Context, query string, k int, filter *Filter) ([]Candidate, error) {
	vector, err := d.provider.Embed(ctx, query)
	if err != nil {
		return nil, &SourceError{Source: d.source, Err: err}
	}

	opts := &store.VectorSearchOptions{
		Vector: vector,
		Model:  d.provider.Model(),
		Limit:  k,
	}
	if filter != nil && filter.FileID != "" {
		opts.FileID = &filter.FileID
	}

	results, err := d.store.VectorSearch(ctx, opts)
	if err != nil {
		return nil, &SourceError{Source: d.source, Err: err}
	}

	slog.Debug("dense search completed",
		"source", d.source,
		"model", d.provider.Model(),
		"results", len(results),
	)

	candidates := make([]Candidate, len(results))
	for i, r := range results {
		candidates[i] = Candidate{
			DocumentID: r.Document.ID,
			FileID:     r.Document.FileID,
			FileName:   r.Document.FileName,
			ChunkID:    r.Document.ChunkID,
			Content:    r.Document.Content,
			Score:      float64(r.Score),
			Rank:       i + 1,
			Source:     d.source,
		}
	}
	return candidates, nil
}
