package retrieval

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/nutriscreen/rag/core/index"
)

// stubIndex is a scripted retrieval source for tests.
type stubIndex struct {
	name       index.Source
	candidates []index.Candidate
	err        error
	calls      atomic.Int32
}

func (s *stubIndex) Name() index.Source { return s.name }

func (s *stubIndex) Search(ctx context.Context, _ string, _ int, _ *index.Filter) ([]index.Candidate, error) {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

func hit(id, content string, score float64, rank int, source index.Source) index.Candidate {
	return index.Candidate{
		DocumentID: id,
		Content:    content,
		Score:      score,
		Rank:       rank,
		Source:     source,
	}
}

func TestAggregatorMergesDuplicateContent(t *testing.T) {
	vector := &stubIndex{
		name: index.SourceVectorPrimary,
		candidates: []index.Candidate{
			hit("v1", "refeeding syndrome risk", 0.9, 1, index.SourceVectorPrimary),
			hit("v2", "BMI below 18.5", 0.4, 2, index.SourceVectorPrimary),
		},
	}
	lexical := &stubIndex{
		name: index.SourceLexical,
		candidates: []index.Candidate{
			// Same text as v2 modulo case: must merge, not duplicate.
			hit("l1", "bmi BELOW 18.5", 6.0, 1, index.SourceLexical),
		},
	}

	agg := NewAggregator([]index.Index{vector, lexical}, time.Second)
	got, err := agg.Retrieve(context.Background(), "bmi", 10, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "refeeding syndrome risk", got[0].Content)

	merged := got[1]
	assert.Equal(t, 0.4, merged.SourceScores[index.SourceVectorPrimary])
	assert.Equal(t, 6.0, merged.SourceScores[index.SourceLexical])
	assert.Equal(t, 2, merged.SourceRanks[index.SourceVectorPrimary])
	assert.Equal(t, 1, merged.SourceRanks[index.SourceLexical])
}

func TestAggregatorMergeIsIdempotent(t *testing.T) {
	same := []index.Candidate{
		hit("a", "weight loss over 5 percent", 0.8, 1, index.SourceVectorPrimary),
	}
	first := &stubIndex{name: index.SourceVectorPrimary, candidates: same}
	second := &stubIndex{name: index.SourceVectorSecondary, candidates: []index.Candidate{
		hit("a2", "weight loss over 5 percent", 0.6, 1, index.SourceVectorSecondary),
	}}

	agg := NewAggregator([]index.Index{first, second}, time.Second)
	got, err := agg.Retrieve(context.Background(), "weight loss", 10, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].SourceScores, 2)
}

func TestAggregatorSurvivesPartialFailure(t *testing.T) {
	broken := &stubIndex{name: index.SourceVectorPrimary, err: errors.New("connection refused")}
	healthy := &stubIndex{
		name: index.SourceLexical,
		candidates: []index.Candidate{
			hit("l1", "severe pneumonia scores two", 4.0, 1, index.SourceLexical),
		},
	}

	agg := NewAggregator([]index.Index{broken, healthy}, time.Second)
	got, err := agg.Retrieve(context.Background(), "pneumonia", 10, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "severe pneumonia scores two", got[0].Content)
}

func TestAggregatorFailsWhenAllSourcesFail(t *testing.T) {
	a := &stubIndex{name: index.SourceVectorPrimary, err: errors.New("down")}
	b := &stubIndex{name: index.SourceLexical, err: errors.New("also down")}

	agg := NewAggregator([]index.Index{a, b}, time.Second)
	got, err := agg.Retrieve(context.Background(), "anything", 10, nil)
	require.Error(t, err)
	assert.Nil(t, got)
}

func TestAggregatorHonorsParentCancellation(t *testing.T) {
	healthy := &stubIndex{
		name: index.SourceLexical,
		candidates: []index.Candidate{
			hit("l1", "some rule", 1.0, 1, index.SourceLexical),
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := NewAggregator([]index.Index{healthy}, time.Second)
	got, err := agg.Retrieve(ctx, "rule", 10, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}

func TestAggregatorInsertionOrderFollowsSourceOrder(t *testing.T) {
	first := &stubIndex{name: index.SourceVectorPrimary, candidates: []index.Candidate{
		hit("a", "alpha", 0.1, 1, index.SourceVectorPrimary),
		hit("b", "beta", 0.05, 2, index.SourceVectorPrimary),
	}}
	second := &stubIndex{name: index.SourceLexical, candidates: []index.Candidate{
		hit("c", "gamma", 9.0, 1, index.SourceLexical),
	}}

	agg := NewAggregator([]index.Index{first, second}, time.Second)
	got, err := agg.Retrieve(context.Background(), "q", 10, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Insertion order is by source declaration, then per-source rank,
	// regardless of raw score.
	assert.Equal(t, "alpha", got[0].Content)
	assert.Equal(t, "beta", got[1].Content)
	assert.Equal(t, "gamma", got[2].Content)
}
