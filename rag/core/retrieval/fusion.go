package retrieval

import (
	"fmt"
	"math"
	"sort"

	"github.com/hrygo/nutriscreen/rag/core/index"
)

// rrfK is the standard reciprocal-rank-fusion constant.
const rrfK = 60

// FusionWeights controls the weighted score fusion between the dense and
// lexical channels.
type FusionWeights struct {
	Vector  float64
	Lexical float64
}

// Validate rejects weight pairs that do not sum to one. A small tolerance
// absorbs float formatting noise from configuration files.
func (w FusionWeights) Validate() error {
	if w.Vector < 0 || w.Lexical < 0 {
		return &ConfigurationError{
			Reason: fmt.Sprintf("fusion weights must be non-negative, got vector=%.3f lexical=%.3f", w.Vector, w.Lexical),
		}
	}
	if math.Abs(w.Vector+w.Lexical-1.0) > 0.01 {
		return &ConfigurationError{
			Reason: fmt.Sprintf("fusion weights must sum to 1.0, got vector=%.3f lexical=%.3f", w.Vector, w.Lexical),
		}
	}
	return nil
}

// FusionPolicy selects the algorithm that combines per-source results
// into a single ordering.
type FusionPolicy string

const (
	// FusionWeighted is score-based min-max fusion with channel weights.
	FusionWeighted FusionPolicy = "weighted"
	// FusionRRF is reciprocal rank fusion; raw scores are ignored.
	FusionRRF FusionPolicy = "rrf"
)

// Validate rejects policy names outside the known set. Empty means the
// configured default.
func (p FusionPolicy) Validate() error {
	switch p {
	case "", FusionWeighted, FusionRRF:
		return nil
	}
	return &ConfigurationError{Reason: "unknown fusion policy " + string(p)}
}

// WeightedFusion combines per-source scores into a single FusedScore via
// min-max normalization within each channel, then sorts candidates best
// first. Candidates missing from a channel contribute zero for it. Ties
// preserve the incoming (insertion) order.
func WeightedFusion(candidates []*ScoredCandidate, weights FusionWeights) error {
	if err := weights.Validate(); err != nil {
		return err
	}

	vectorNorm := normalizeChannel(candidates, isVectorSource)
	lexicalNorm := normalizeChannel(candidates, isLexicalSource)

	for i, c := range candidates {
		c.FusedScore = weights.Vector*vectorNorm[i] + weights.Lexical*lexicalNorm[i]
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].FusedScore > candidates[b].FusedScore
	})
	return nil
}

// RRFFusion ranks candidates by reciprocal rank fusion across all sources
// that returned them, then sorts best first. Ties preserve the incoming
// order. RRF ignores raw scores entirely, which makes it robust when
// source score scales are incomparable.
func RRFFusion(candidates []*ScoredCandidate) {
	for _, c := range candidates {
		score := 0.0
		for _, rank := range c.SourceRanks {
			score += 1.0 / float64(rrfK+rank)
		}
		c.FusedScore = score
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].FusedScore > candidates[b].FusedScore
	})
}

func isVectorSource(s index.Source) bool {
	return s == index.SourceVectorPrimary || s == index.SourceVectorSecondary
}

func isLexicalSource(s index.Source) bool {
	return s == index.SourceLexical
}

// normalizeChannel min-max normalizes the best score each candidate got
// from the channel's sources. When every present score is equal, all of
// them map to the neutral 0.5 rather than an arbitrary extreme. Absent
// candidates map to 0.
func normalizeChannel(candidates []*ScoredCandidate, inChannel func(index.Source) bool) []float64 {
	raw := make([]float64, len(candidates))
	present := make([]bool, len(candidates))

	minScore := math.Inf(1)
	maxScore := math.Inf(-1)
	for i, c := range candidates {
		best := math.Inf(-1)
		for src, score := range c.SourceScores {
			if inChannel(src) && score > best {
				best = score
			}
		}
		if math.IsInf(best, -1) {
			continue
		}
		raw[i] = best
		present[i] = true
		minScore = math.Min(minScore, best)
		maxScore = math.Max(maxScore, best)
	}

	normalized := make([]float64, len(candidates))
	for i := range candidates {
		if !present[i] {
			continue
		}
		if maxScore == minScore {
			normalized[i] = 0.5
			continue
		}
		normalized[i] = (raw[i] - minScore) / (maxScore - minScore)
	}
	return normalized
}
