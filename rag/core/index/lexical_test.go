package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/nutriscreen/internal/profile"
	"github.com/hrygo/nutriscreen/store"
)

type memoryDriver struct {
	documents []*store.Document
}

func (m *memoryDriver) GetDB() any                       { return nil }
func (m *memoryDriver) Migrate(_ context.Context) error { return nil }
func (m *memoryDriver) Close() error                    { return nil }

func (m *memoryDriver) CreateDocument(_ context.Context, doc *store.Document) (*store.Document, error) {
	m.documents = append(m.documents, doc)
	return doc, nil
}

func (m *memoryDriver) ListDocuments(_ context.Context, find *store.FindDocument) ([]*store.Document, error) {
	var out []*store.Document
	for _, doc := range m.documents {
		if find.FileID != nil && doc.FileID != *find.FileID {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func (m *memoryDriver) CountDocuments(ctx context.Context, find *store.FindDocument) (int64, error) {
	docs, err := m.ListDocuments(ctx, find)
	return int64(len(docs)), err
}

func (m *memoryDriver) UpsertDocumentEmbedding(_ context.Context, _ *store.DocumentEmbedding) error {
	return nil
}

func (m *memoryDriver) VectorSearch(_ context.Context, _ *store.VectorSearchOptions) ([]*store.DocumentWithScore, error) {
	return nil, nil
}

func newLexicalOverDocs(t *testing.T, docs []*store.Document) *LexicalIndex {
	t.Helper()
	s := store.New(&memoryDriver{documents: docs}, &profile.Profile{Mode: "dev"})
	lexical, err := NewLexicalIndex(context.Background(), s)
	require.NoError(t, err)
	return lexical
}

func TestLexicalSearchFindsMatchingChunk(t *testing.T) {
	lexical := newLexicalOverDocs(t, []*store.Document{
		{ID: "d1", FileID: "f1", Content: "hip fracture scores one point"},
		{ID: "d2", FileID: "f1", Content: "intensive care scores three points"},
	})

	candidates, err := lexical.Search(context.Background(), "hip fracture", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "d1", candidates[0].DocumentID)
	assert.Equal(t, SourceLexical, candidates[0].Source)
	assert.Equal(t, 1, candidates[0].Rank)
}

func TestLexicalSearchCollapsesDuplicateContent(t *testing.T) {
	lexical := newLexicalOverDocs(t, []*store.Document{
		{ID: "d1", FileID: "f1", Content: "weight loss over five percent"},
		{ID: "d2", FileID: "f2", Content: "weight loss over five percent"},
	})

	candidates, err := lexical.Search(context.Background(), "weight loss", 5, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "d1", candidates[0].DocumentID)
}

func TestLexicalSearchFiltersByFile(t *testing.T) {
	lexical := newLexicalOverDocs(t, []*store.Document{
		{ID: "d1", FileID: "f1", Content: "dialysis patients score one"},
		{ID: "d2", FileID: "f2", Content: "dialysis monitoring score notes"},
	})

	candidates, err := lexical.Search(context.Background(), "dialysis score", 5, &Filter{FileID: "f2"})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "d2", candidates[0].DocumentID)
}

func TestLexicalSearchServesPlaceholderOnEmptyCorpus(t *testing.T) {
	lexical := newLexicalOverDocs(t, nil)

	candidates, err := lexical.Search(context.Background(), "anything", 5, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, PlaceholderDocumentID, candidates[0].DocumentID)
	assert.NotEmpty(t, candidates[0].Content)
}

func TestLexicalRefreshPicksUpNewDocuments(t *testing.T) {
	driver := &memoryDriver{}
	s := store.New(driver, &profile.Profile{Mode: "dev"})
	lexical, err := NewLexicalIndex(context.Background(), s)
	require.NoError(t, err)

	_, err = s.CreateDocument(context.Background(), &store.Document{
		ID: "d1", FileID: "f1", Content: "bedridden patients score two",
	})
	require.NoError(t, err)

	// Snapshot semantics: the new document is invisible until Refresh.
	candidates, err := lexical.Search(context.Background(), "bedridden", 5, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, PlaceholderDocumentID, candidates[0].DocumentID)

	require.NoError(t, lexical.Refresh(context.Background()))

	candidates, err = lexical.Search(context.Background(), "bedridden", 5, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "d1", candidates[0].DocumentID)
}
