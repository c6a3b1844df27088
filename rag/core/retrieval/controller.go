package retrieval

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/nutriscreen/rag/core/index"
	"github.com/hrygo/nutriscreen/rag/core/reranker"
	"github.com/hrygo/nutriscreen/rag/metrics"
	"github.com/hrygo/nutriscreen/store"
)

// Strategy selects a retrieval entry point.
type Strategy string

const (
	// StrategyVector queries only the dense embedding spaces.
	StrategyVector Strategy = "vector"
	// StrategyLexical queries only the BM25 index.
	StrategyLexical Strategy = "lexical"
	// StrategyHybrid queries all sources and orders by weighted fusion.
	StrategyHybrid Strategy = "hybrid"
	// StrategyMultiRerank is the full pipeline: all sources, weighted
	// fusion, reranked ordering, and the fallback cascade.
	StrategyMultiRerank Strategy = "multi_rerank"
	// StrategyPlaceholder is never requested; it marks results served
	// from the built-in rule document after the cascade came up empty.
	StrategyPlaceholder Strategy = "placeholder"
)

// multiRerankCascade is the ordered fallback chain for the full pipeline.
// Each step runs only when the previous one yielded nothing.
var multiRerankCascade = []Strategy{StrategyMultiRerank, StrategyLexical, StrategyPlaceholder}

// Result is the outcome of a retrieval.
type Result struct {
	Candidates []*ScoredCandidate
	// Strategy records the step that actually produced the candidates,
	// so degraded answers are visible to the caller.
	Strategy Strategy
}

// Options tunes a single retrieval call. Zero values take the controller
// defaults.
type Options struct {
	Strategy Strategy
	K        int
	TopN     int
	Filter   *index.Filter
	// Fusion overrides the configured fusion policy for this call.
	Fusion FusionPolicy
}

// ControllerConfig tunes the cascade defaults.
type ControllerConfig struct {
	// TopN is the number of candidates kept after ordering (default: 5).
	TopN int
	// RetrievalK is the per-source candidate budget (default: 10).
	RetrievalK int
	// Weights drive the weighted fusion step.
	Weights FusionWeights
	// Fusion picks the fusion algorithm (default: weighted).
	Fusion FusionPolicy
	// SourceTimeout bounds each source call.
	SourceTimeout time.Duration
}

// Controller dispatches retrieval strategies and runs the fallback
// cascade for the full pipeline.
type Controller struct {
	store    *store.Store
	all      *Aggregator
	dense    *Aggregator
	lexical  *index.LexicalIndex
	reranker reranker.Service
	cfg      ControllerConfig
}

// NewController wires the strategies over the given sources. The lexical
// index is both a fused source and the cascade's fallback.
func NewController(s *store.Store, dense []index.Index, lexical *index.LexicalIndex, rr reranker.Service, cfg ControllerConfig) (*Controller, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Fusion.Validate(); err != nil {
		return nil, err
	}
	if cfg.Fusion == "" {
		cfg.Fusion = FusionWeighted
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 5
	}
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = 10
	}

	all := make([]index.Index, 0, len(dense)+1)
	all = append(all, dense...)
	all = append(all, lexical)

	return &Controller{
		store:    s,
		all:      NewAggregator(all, cfg.SourceTimeout),
		dense:    NewAggregator(dense, cfg.SourceTimeout),
		lexical:  lexical,
		reranker: rr,
		cfg:      cfg,
	}, nil
}

// Retrieve runs the selected strategy. When the filter names a file, its
// existence is verified before any source is queried; an unknown file
// yields NotFoundError immediately.
func (c *Controller) Retrieve(ctx context.Context, query string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyMultiRerank
	}
	k := opts.K
	if k <= 0 {
		k = c.cfg.RetrievalK
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = c.cfg.TopN
	}
	if err := opts.Fusion.Validate(); err != nil {
		return nil, err
	}
	fusion := opts.Fusion
	if fusion == "" {
		fusion = c.cfg.Fusion
	}

	if opts.Filter != nil && opts.Filter.FileID != "" {
		count, err := c.store.CountDocuments(ctx, &store.FindDocument{FileID: &opts.Filter.FileID})
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, &NotFoundError{FileID: opts.Filter.FileID}
		}
	}

	var result *Result
	var err error
	switch strategy {
	case StrategyVector:
		result, err = c.retrieveVector(ctx, query, k, topN, opts.Filter)
	case StrategyLexical:
		result, err = c.retrieveLexical(ctx, query, k, topN, opts.Filter)
	case StrategyHybrid:
		result, err = c.retrieveHybrid(ctx, query, k, topN, opts.Filter, fusion)
	case StrategyMultiRerank:
		result, err = c.retrieveCascade(ctx, query, k, topN, opts.Filter, fusion)
	default:
		return nil, &ConfigurationError{Reason: "unknown retrieval strategy " + string(strategy)}
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordStrategy(string(result.Strategy))
	return result, nil
}

func (c *Controller) retrieveVector(ctx context.Context, query string, k, topN int, filter *index.Filter) (*Result, error) {
	candidates, err := c.dense.Retrieve(ctx, query, k, filter)
	if err != nil {
		return nil, err
	}
	if err := WeightedFusion(candidates, FusionWeights{Vector: 1.0}); err != nil {
		return nil, err
	}
	return &Result{Candidates: truncate(candidates, topN), Strategy: StrategyVector}, nil
}

func (c *Controller) retrieveLexical(ctx context.Context, query string, k, topN int, filter *index.Filter) (*Result, error) {
	lexCandidates, err := c.lexical.Search(ctx, query, k, filter)
	if err != nil {
		return nil, err
	}
	merged := mergeLexical(lexCandidates, topN)
	strategy := StrategyLexical
	if len(merged) > 0 && merged[0].DocumentID == index.PlaceholderDocumentID {
		strategy = StrategyPlaceholder
	}
	return &Result{Candidates: merged, Strategy: strategy}, nil
}

func (c *Controller) retrieveHybrid(ctx context.Context, query string, k, topN int, filter *index.Filter, fusion FusionPolicy) (*Result, error) {
	candidates, err := c.all.Retrieve(ctx, query, k, filter)
	if err != nil {
		return nil, err
	}
	if err := c.fuse(candidates, fusion); err != nil {
		return nil, err
	}
	return &Result{Candidates: truncate(candidates, topN), Strategy: StrategyHybrid}, nil
}

// fuse orders candidates in place with the selected algorithm.
func (c *Controller) fuse(candidates []*ScoredCandidate, fusion FusionPolicy) error {
	if fusion == FusionRRF {
		RRFFusion(candidates)
		return nil
	}
	return WeightedFusion(candidates, c.cfg.Weights)
}

// retrieveCascade walks multiRerankCascade until a step yields evidence.
// The final placeholder step guarantees non-empty context for unfiltered
// queries; a filtered query that matched nothing within its file surfaces
// NoEvidenceError instead, since base rules cannot answer for a specific
// document.
func (c *Controller) retrieveCascade(ctx context.Context, query string, k, topN int, filter *index.Filter, fusion FusionPolicy) (*Result, error) {
	var tried []Strategy

	for _, step := range multiRerankCascade {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tried = append(tried, step)
		if len(tried) > 1 {
			metrics.RecordFallback(string(tried[len(tried)-2]), string(step))
		}

		switch step {
		case StrategyMultiRerank:
			candidates, err := c.all.Retrieve(ctx, query, k, filter)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				slog.Warn("all retrieval sources failed, advancing cascade", "error", err)
				continue
			}
			if len(candidates) == 0 {
				continue
			}
			if err := c.fuse(candidates, fusion); err != nil {
				return nil, err
			}
			return c.rerank(ctx, query, candidates, k, topN)

		case StrategyLexical:
			lexCandidates, err := c.lexical.Search(ctx, query, k*2, filter)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				slog.Error("lexical fallback failed, advancing cascade", "error", err)
				continue
			}
			if len(lexCandidates) == 0 {
				continue
			}
			merged := mergeLexical(lexCandidates, topN)
			strategy := StrategyLexical
			if merged[0].DocumentID == index.PlaceholderDocumentID {
				strategy = StrategyPlaceholder
			}
			return &Result{Candidates: merged, Strategy: strategy}, nil

		case StrategyPlaceholder:
			if filter != nil && filter.FileID != "" {
				return nil, &NoEvidenceError{Query: query, Steps: tried}
			}
			slog.Warn("retrieval cascade exhausted, serving placeholder rules")
			m := newMerger()
			m.add(index.SourceLexical, []index.Candidate{index.PlaceholderCandidate()})
			return &Result{Candidates: m.list(), Strategy: StrategyPlaceholder}, nil
		}
	}

	return nil, &NoEvidenceError{Query: query, Steps: tried}
}

// rerank reorders the fused top pool with the reranker. Any reranker
// failure degrades to the fused ordering instead of failing the call,
// except cancellation of the parent context, which discards the partial
// result entirely.
func (c *Controller) rerank(ctx context.Context, query string, candidates []*ScoredCandidate, k, topN int) (*Result, error) {
	pool := truncate(candidates, k)

	if c.reranker == nil || !c.reranker.IsEnabled() {
		return &Result{Candidates: truncate(pool, topN), Strategy: StrategyHybrid}, nil
	}

	documents := make([]string, len(pool))
	for i, sc := range pool {
		documents[i] = sc.Content
	}

	ranked, err := c.reranker.Rerank(ctx, query, documents, topN)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("reranking failed, keeping fusion order", "error", err)
		metrics.RecordRerankDegradation()
		return &Result{Candidates: truncate(pool, topN), Strategy: StrategyHybrid}, nil
	}

	reordered := make([]*ScoredCandidate, 0, len(ranked))
	for _, r := range ranked {
		if r.Index < 0 || r.Index >= len(pool) {
			continue
		}
		sc := pool[r.Index]
		score := r.Score
		sc.RerankScore = &score
		reordered = append(reordered, sc)
	}
	if len(reordered) == 0 {
		return &Result{Candidates: truncate(pool, topN), Strategy: StrategyHybrid}, nil
	}
	return &Result{Candidates: reordered, Strategy: StrategyMultiRerank}, nil
}

func mergeLexical(candidates []index.Candidate, topN int) []*ScoredCandidate {
	m := newMerger()
	m.add(index.SourceLexical, candidates)
	merged := truncate(m.list(), topN)
	for _, sc := range merged {
		sc.FusedScore = sc.SourceScores[index.SourceLexical]
	}
	return merged
}

func truncate(candidates []*ScoredCandidate, n int) []*ScoredCandidate {
	if len(candidates) > n {
		return candidates[:n]
	}
	return candidates
}
