package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/nutriscreen/rag/core/index"
	"github.com/hrygo/nutriscreen/rag/metrics"
)

// defaultSourceTimeout bounds each source independently so one slow
// backend cannot stall the whole retrieval.
const defaultSourceTimeout = 10 * time.Second

// maxSourceWorkers caps the fan-out goroutines.
const maxSourceWorkers = 4

// Aggregator fans a query out to every configured source concurrently and
// merges the results into a deduplicated candidate list.
type Aggregator struct {
	sources []index.Index
	timeout time.Duration
}

// NewAggregator creates an aggregator over the given sources. Source order
// is significant: it determines candidate insertion order after merging.
func NewAggregator(sources []index.Index, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = defaultSourceTimeout
	}
	return &Aggregator{sources: sources, timeout: timeout}
}

type sourceResult struct {
	candidates []index.Candidate
	err        error
}

// Retrieve queries all sources and merges their candidates. A failing
// source degrades the result set but does not fail the call; only when
// every source fails, or the parent context is cancelled, is an error
// returned. The merged order is deterministic for a fixed source
// configuration and fixed per-source results.
func (a *Aggregator) Retrieve(ctx context.Context, query string, k int, filter *index.Filter) ([]*ScoredCandidate, error) {
	results := make([]sourceResult, len(a.sources))

	// Source errors are captured per slot, never returned to the group,
	// so one failing source cannot cancel its siblings.
	var g errgroup.Group
	g.SetLimit(maxSourceWorkers)
	for i, src := range a.sources {
		i, src := i, src
		g.Go(func() error {
			srcCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			start := time.Now()
			candidates, err := src.Search(srcCtx, query, k, filter)
			if err != nil {
				slog.Warn("retrieval source failed",
					"source", src.Name(),
					"error", err,
					"duration_ms", time.Since(start).Milliseconds(),
				)
				metrics.RecordSourceFailure(string(src.Name()))
				results[i] = sourceResult{err: err}
				return nil
			}
			results[i] = sourceResult{candidates: candidates}
			return nil
		})
	}
	_ = g.Wait()

	// A cancelled parent invalidates whatever partial results arrived.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var errs []error
	merged := newMerger()
	for i, res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		merged.add(a.sources[i].Name(), res.candidates)
	}

	if len(errs) == len(a.sources) {
		return nil, errors.Join(errs...)
	}

	candidates := merged.list()
	slog.Debug("aggregation completed",
		"sources", len(a.sources),
		"failed", len(errs),
		"candidates", len(candidates),
	)
	return candidates, nil
}

// merger deduplicates candidates by content fingerprint, keeping all
// per-source evidence and first-seen insertion order.
type merger struct {
	byFingerprint map[string]*ScoredCandidate
	ordered       []*ScoredCandidate
}

func newMerger() *merger {
	return &merger{byFingerprint: make(map[string]*ScoredCandidate)}
}

func (m *merger) add(source index.Source, candidates []index.Candidate) {
	for _, c := range candidates {
		fp := Fingerprint(c.Content)
		existing, ok := m.byFingerprint[fp]
		if !ok {
			sc := &ScoredCandidate{
				DocumentID:   c.DocumentID,
				FileID:       c.FileID,
				FileName:     c.FileName,
				ChunkID:      c.ChunkID,
				Content:      c.Content,
				Fingerprint:  fp,
				SourceScores: map[index.Source]float64{source: c.Score},
				SourceRanks:  map[index.Source]int{source: c.Rank},
			}
			m.byFingerprint[fp] = sc
			m.ordered = append(m.ordered, sc)
			continue
		}
		if prev, seen := existing.SourceScores[source]; !seen || c.Score > prev {
			existing.SourceScores[source] = c.Score
		}
		if prev, seen := existing.SourceRanks[source]; !seen || c.Rank < prev {
			existing.SourceRanks[source] = c.Rank
		}
	}
}

func (m *merger) list() []*ScoredCandidate { return m.ordered }
