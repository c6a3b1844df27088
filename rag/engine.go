// Package rag is the entry point to the nutrition risk assessment engine:
// hybrid retrieval over the guideline corpus, score synthesis, and strict
// rubric validation.
package rag

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/nutriscreen/rag/core/assess"
	"github.com/hrygo/nutriscreen/rag/core/embedding"
	"github.com/hrygo/nutriscreen/rag/core/index"
	"github.com/hrygo/nutriscreen/rag/core/llm"
	"github.com/hrygo/nutriscreen/rag/core/reranker"
	"github.com/hrygo/nutriscreen/rag/core/retrieval"
	"github.com/hrygo/nutriscreen/rag/metrics"
	"github.com/hrygo/nutriscreen/store"
)

// evidenceSnippetRunes bounds evidence snippets returned to callers. The
// model still sees the full chunk text.
const evidenceSnippetRunes = 200

// AssessRequest asks for an NRS-2002 score.
type AssessRequest struct {
	// PatientInfo is the free-text patient description.
	PatientInfo string
	// FileID restricts evidence to one source file when set.
	FileID string
	// Strategy selects the retrieval entry point. Empty means the full
	// multi_rerank pipeline.
	Strategy string
	// K and TopN override the configured retrieval budgets when positive.
	K    int
	TopN int
}

// AnswerRequest asks for an advisory free-form answer.
type AnswerRequest struct {
	Question string
	FileID   string
	Strategy string
	K        int
	TopN     int
}

// Evidence is one chunk that grounded the result.
type Evidence struct {
	FileName string  `json:"file_name,omitempty"`
	ChunkID  string  `json:"chunk_id,omitempty"`
	Snippet  string  `json:"snippet"`
	Score    float64 `json:"score"`
}

// AssessmentResult is a validated score with its supporting evidence.
type AssessmentResult struct {
	Score    *assess.Score `json:"score"`
	Evidence []Evidence    `json:"evidence"`
	// Strategy names the retrieval step that produced the evidence, so
	// degraded results are visible to the caller.
	Strategy string `json:"strategy"`
}

// AnswerResult is an advisory answer with its supporting evidence.
type AnswerResult struct {
	Answer   string     `json:"answer"`
	Evidence []Evidence `json:"evidence"`
	Strategy string     `json:"strategy"`
}

// Engine wires retrieval, reranking, and synthesis together.
type Engine struct {
	store       *store.Store
	controller  *retrieval.Controller
	lexical     *index.LexicalIndex
	synthesizer *assess.Synthesizer
	// embedders holds every active embedding space; ingestion writes a
	// vector per space.
	embedders []embedding.Provider
}

// NewEngine builds the engine from config. The secondary embedding space
// and the reranker are probed at startup and silently dropped when their
// backends are unreachable; the primary space is mandatory.
func NewEngine(ctx context.Context, s *store.Store, cfg *Config) (*Engine, error) {
	llmService, err := llm.NewService(&cfg.LLM)
	if err != nil {
		return nil, err
	}
	go llmService.Warmup(context.WithoutCancel(ctx))

	primaryProvider, err := embedding.NewProvider(&cfg.Embedding)
	if err != nil {
		return nil, err
	}
	primary := embedding.NewCachedProvider(primaryProvider, cfg.EmbeddingCacheSize, cfg.EmbeddingCacheTTL)

	lexical, err := index.NewLexicalIndex(ctx, s)
	if err != nil {
		return nil, err
	}

	dense := []index.Index{
		index.NewDenseIndex(s, primary, index.SourceVectorPrimary),
	}
	embedders := []embedding.Provider{primary}

	if cfg.SecondaryEmbedding != nil {
		secondaryProvider, err := embedding.NewProvider(cfg.SecondaryEmbedding)
		if err != nil {
			return nil, err
		}
		secondary := embedding.NewCachedProvider(secondaryProvider, cfg.EmbeddingCacheSize, cfg.EmbeddingCacheTTL)
		if probeEmbedding(ctx, secondary) {
			dense = append(dense, index.NewDenseIndex(s, secondary, index.SourceVectorSecondary))
			embedders = append(embedders, secondary)
		} else {
			slog.Warn("secondary embedding space unavailable, continuing without it",
				"model", cfg.SecondaryEmbedding.Model,
			)
		}
	}

	var rr reranker.Service
	if cfg.Rerank != nil {
		service := reranker.NewService(cfg.Rerank)
		if p, ok := service.(interface{ Probe(context.Context) }); ok {
			p.Probe(ctx)
		}
		rr = service
	} else {
		rr = reranker.NewDisabledService()
	}

	controller, err := retrieval.NewController(s, dense, lexical, rr, retrieval.ControllerConfig{
		TopN:       cfg.TopN,
		RetrievalK: cfg.RetrievalK,
		Weights:    cfg.Weights,
		Fusion:     cfg.Fusion,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		store:       s,
		controller:  controller,
		lexical:     lexical,
		synthesizer: assess.NewSynthesizer(llmService),
		embedders:   embedders,
	}, nil
}

// Assess retrieves evidence for the patient description and synthesizes a
// validated NRS-2002 score.
func (e *Engine) Assess(ctx context.Context, req *AssessRequest) (*AssessmentResult, error) {
	start := time.Now()

	result, err := e.retrieve(ctx, req.PatientInfo, req.FileID, req.Strategy, req.K, req.TopN)
	if err != nil {
		metrics.RecordAssessDuration("error", time.Since(start).Seconds())
		return nil, err
	}

	score, err := e.synthesizer.Assess(ctx, req.PatientInfo, contents(result.Candidates))
	if err != nil {
		metrics.RecordAssessDuration(assessStatus(err), time.Since(start).Seconds())
		return nil, err
	}

	metrics.RecordAssessDuration("ok", time.Since(start).Seconds())
	slog.Info("assessment completed",
		"total", score.Total,
		"at_risk", score.AtRisk(),
		"strategy", result.Strategy,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &AssessmentResult{
		Score:    score,
		Evidence: evidenceList(result.Candidates),
		Strategy: string(result.Strategy),
	}, nil
}

// Answer retrieves evidence for the question and produces an advisory
// free-form reply.
func (e *Engine) Answer(ctx context.Context, req *AnswerRequest) (*AnswerResult, error) {
	result, err := e.retrieve(ctx, req.Question, req.FileID, req.Strategy, req.K, req.TopN)
	if err != nil {
		return nil, err
	}

	answer, err := e.synthesizer.Answer(ctx, req.Question, contents(result.Candidates))
	if err != nil {
		return nil, err
	}

	return &AnswerResult{
		Answer:   answer,
		Evidence: evidenceList(result.Candidates),
		Strategy: string(result.Strategy),
	}, nil
}

// RefreshIndex rebuilds the lexical snapshot after corpus changes.
func (e *Engine) RefreshIndex(ctx context.Context) error {
	return e.lexical.Refresh(ctx)
}

func (e *Engine) retrieve(ctx context.Context, query, fileID, strategy string, k, topN int) (*retrieval.Result, error) {
	opts := &retrieval.Options{
		Strategy: retrieval.Strategy(strategy),
		K:        k,
		TopN:     topN,
	}
	if fileID != "" {
		opts.Filter = &index.Filter{FileID: fileID}
	}
	return e.controller.Retrieve(ctx, query, opts)
}

func probeEmbedding(ctx context.Context, p embedding.Provider) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := p.Embed(probeCtx, "ping")
	return err == nil
}

func contents(candidates []*retrieval.ScoredCandidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Content
	}
	return out
}

func evidenceList(candidates []*retrieval.ScoredCandidate) []Evidence {
	out := make([]Evidence, len(candidates))
	for i, c := range candidates {
		score := c.FusedScore
		if c.RerankScore != nil {
			score = *c.RerankScore
		}
		out[i] = Evidence{
			FileName: c.FileName,
			ChunkID:  c.ChunkID,
			Snippet:  snippet(c.Content),
			Score:    score,
		}
	}
	return out
}

func snippet(content string) string {
	runes := []rune(content)
	if len(runes) > evidenceSnippetRunes {
		return string(runes[:evidenceSnippetRunes]) + "..."
	}
	return content
}

func assessStatus(err error) string {
	switch err.(type) {
	case *MalformedOutputError:
		return "malformed"
	case *ValidationError:
		return "invalid"
	default:
		return "error"
	}
}
