package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/nutriscreen/rag/core/index"
)

func TestFusionWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		weights FusionWeights
		wantErr bool
	}{
		{"default split", FusionWeights{Vector: 0.6, Lexical: 0.4}, false},
		{"all vector", FusionWeights{Vector: 1.0, Lexical: 0.0}, false},
		{"within tolerance", FusionWeights{Vector: 0.601, Lexical: 0.4}, false},
		{"sum too low", FusionWeights{Vector: 0.5, Lexical: 0.3}, true},
		{"sum too high", FusionWeights{Vector: 0.8, Lexical: 0.4}, true},
		{"negative weight", FusionWeights{Vector: 1.4, Lexical: -0.4}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr {
				require.Error(t, err)
				var cfgErr *ConfigurationError
				assert.ErrorAs(t, err, &cfgErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func candidate(id string, scores map[index.Source]float64, ranks map[index.Source]int) *ScoredCandidate {
	return &ScoredCandidate{
		DocumentID:   id,
		Content:      id,
		Fingerprint:  Fingerprint(id),
		SourceScores: scores,
		SourceRanks:  ranks,
	}
}

func TestWeightedFusionRejectsBadWeights(t *testing.T) {
	candidates := []*ScoredCandidate{
		candidate("a", map[index.Source]float64{index.SourceLexical: 1}, map[index.Source]int{index.SourceLexical: 1}),
	}
	err := WeightedFusion(candidates, FusionWeights{Vector: 0.9, Lexical: 0.4})
	require.Error(t, err)
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestWeightedFusionOrdersByCombinedScore(t *testing.T) {
	candidates := []*ScoredCandidate{
		candidate("a",
			map[index.Source]float64{index.SourceVectorPrimary: 0.2, index.SourceLexical: 8.0},
			map[index.Source]int{index.SourceVectorPrimary: 3, index.SourceLexical: 1}),
		candidate("b",
			map[index.Source]float64{index.SourceVectorPrimary: 0.9, index.SourceLexical: 2.0},
			map[index.Source]int{index.SourceVectorPrimary: 1, index.SourceLexical: 2}),
		candidate("c",
			map[index.Source]float64{index.SourceVectorPrimary: 0.5},
			map[index.Source]int{index.SourceVectorPrimary: 2}),
	}

	err := WeightedFusion(candidates, FusionWeights{Vector: 0.6, Lexical: 0.4})
	require.NoError(t, err)

	// b: vector 1.0*0.6 + lexical 0.0*0.4 = 0.6
	// a: vector 0.0*0.6 + lexical 1.0*0.4 = 0.4
	// c: vector ~0.43*0.6 lexical absent    = ~0.257
	assert.Equal(t, "b", candidates[0].DocumentID)
	assert.Equal(t, "a", candidates[1].DocumentID)
	assert.Equal(t, "c", candidates[2].DocumentID)
	assert.InDelta(t, 0.6, candidates[0].FusedScore, 1e-9)
}

func TestWeightedFusionEqualScoresAreNeutral(t *testing.T) {
	candidates := []*ScoredCandidate{
		candidate("a", map[index.Source]float64{index.SourceVectorPrimary: 0.7}, map[index.Source]int{index.SourceVectorPrimary: 1}),
		candidate("b", map[index.Source]float64{index.SourceVectorPrimary: 0.7}, map[index.Source]int{index.SourceVectorPrimary: 2}),
	}

	err := WeightedFusion(candidates, FusionWeights{Vector: 1.0, Lexical: 0.0})
	require.NoError(t, err)

	// Identical raw scores normalize to 0.5, not to 0 or 1.
	for _, c := range candidates {
		assert.InDelta(t, 0.5, c.FusedScore, 1e-9)
	}
}

func TestWeightedFusionTiesKeepInsertionOrder(t *testing.T) {
	candidates := []*ScoredCandidate{
		candidate("first", map[index.Source]float64{index.SourceLexical: 3.0}, map[index.Source]int{index.SourceLexical: 1}),
		candidate("second", map[index.Source]float64{index.SourceLexical: 3.0}, map[index.Source]int{index.SourceLexical: 2}),
		candidate("third", map[index.Source]float64{index.SourceLexical: 3.0}, map[index.Source]int{index.SourceLexical: 3}),
	}

	err := WeightedFusion(candidates, FusionWeights{Vector: 0.6, Lexical: 0.4})
	require.NoError(t, err)

	assert.Equal(t, "first", candidates[0].DocumentID)
	assert.Equal(t, "second", candidates[1].DocumentID)
	assert.Equal(t, "third", candidates[2].DocumentID)
}

func TestRRFFusion(t *testing.T) {
	candidates := []*ScoredCandidate{
		candidate("onlyVector",
			map[index.Source]float64{index.SourceVectorPrimary: 0.9},
			map[index.Source]int{index.SourceVectorPrimary: 1}),
		candidate("bothSources",
			map[index.Source]float64{index.SourceVectorPrimary: 0.5, index.SourceLexical: 2.0},
			map[index.Source]int{index.SourceVectorPrimary: 2, index.SourceLexical: 1}),
	}

	RRFFusion(candidates)

	// Appearing in two lists beats a single first place: 1/62 + 1/61 > 1/61.
	assert.Equal(t, "bothSources", candidates[0].DocumentID)
	assert.InDelta(t, 1.0/62.0+1.0/61.0, candidates[0].FusedScore, 1e-9)
	assert.InDelta(t, 1.0/61.0, candidates[1].FusedScore, 1e-9)
}

func TestFingerprintNormalizesWhitespaceAndCase(t *testing.T) {
	assert.Equal(t, Fingerprint("NRS 2002  screening"), Fingerprint("nrs\t2002\nscreening"))
	assert.NotEqual(t, Fingerprint("screening rules"), Fingerprint("scoring rules"))
}
