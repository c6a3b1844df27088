// Package reranker provides LLM-based relevance rescoring of retrieval
// candidates, with graceful degradation when the scoring backend is
// unavailable.
package reranker

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

const (
	// scoreConcurrency bounds parallel scoring calls per rerank.
	scoreConcurrency = 4
	// scoreTimeout bounds each individual scoring call.
	scoreTimeout = 10 * time.Second
	// neutralScore is assigned when a single candidate cannot be scored,
	// so one bad call does not sink the whole rerank.
	neutralScore = 0.5
)

// Result is one reranked candidate: its index in the input slice and its
// relevance score in [0, 1].
type Result struct {
	Index int
	Score float64
}

// Service rescores candidate documents against a query.
type Service interface {
	// Rerank scores documents against the query and returns the topN best,
	// ordered by descending score. Index refers to the input slice.
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]Result, error)

	// IsEnabled reports whether the reranker is operational. Callers skip
	// reranking entirely when it is not.
	IsEnabled() bool
}

// Config represents reranker configuration.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

type service struct {
	client  *openai.Client
	model   string
	enabled atomic.Bool
}

// NewService creates a reranker backed by an OpenAI-compatible chat model.
// The service starts enabled; call Probe at startup to verify the backend
// and self-disable on failure.
func NewService(cfg *Config) Service {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	s := &service{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
	s.enabled.Store(true)
	return s
}

// disabledService is the identity reranker used when no reranker is
// configured.
type disabledService struct{}

func (disabledService) Rerank(_ context.Context, _ string, _ []string, _ int) ([]Result, error) {
	return nil, fmt.Errorf("reranker is disabled")
}

func (disabledService) IsEnabled() bool { return false }

// NewDisabledService returns a reranker that reports itself unavailable.
func NewDisabledService() Service { return disabledService{} }

func (s *service) IsEnabled() bool { return s.enabled.Load() }

// Probe verifies the scoring backend with a trivial request and disables
// the service when it fails. Retrieval then runs on fusion order alone.
func (s *service) Probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, scoreTimeout)
	defer cancel()

	_, err := s.scoreOne(probeCtx, "营养风险", "NRS2002营养风险筛查")
	if err != nil {
		slog.Warn("reranker probe failed, disabling reranker",
			"model", s.model,
			"error", err,
		)
		s.enabled.Store(false)
		return
	}
	slog.Info("reranker probe succeeded", "model", s.model)
}

func (s *service) Rerank(ctx context.Context, query string, documents []string, topN int) ([]Result, error) {
	if !s.enabled.Load() {
		return nil, fmt.Errorf("reranker is disabled")
	}
	if len(documents) == 0 {
		return nil, nil
	}

	start := time.Now()
	scores := make([]float64, len(documents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scoreConcurrency)
	for i, doc := range documents {
		i, doc := i, doc
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, scoreTimeout)
			defer cancel()

			score, err := s.scoreOne(callCtx, query, doc)
			if err != nil {
				slog.Debug("rerank scoring failed for candidate, using neutral score",
					"candidate", i,
					"error", err,
				)
				scores[i] = neutralScore
				return nil
			}
			scores[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Per-candidate failures got the neutral score, but a cancelled parent
	// invalidates the whole batch.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]Result, len(documents))
	for i, score := range scores {
		results[i] = Result{Index: i, Score: score}
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}

	slog.Debug("reranking completed",
		"documents", len(documents),
		"top_n", len(results),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results, nil
}

const scorePromptTemplate = `请评估以下文档片段与查询的相关性，只输出一个0到1之间的小数，不要输出其他内容。

查询：%s

文档片段：%s

相关性分数：`

var scorePattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

func (s *service) scoreOne(ctx context.Context, query, document string) (float64, error) {
	req := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   16,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(scorePromptTemplate, query, document),
			},
		},
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return 0, err
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("empty response from rerank model")
	}

	return parseScore(resp.Choices[0].Message.Content)
}

// parseScore extracts the first number from the model reply and clamps it
// to [0, 1]. Chat models occasionally wrap the number in prose.
func parseScore(reply string) (float64, error) {
	match := scorePattern.FindString(reply)
	if match == "" {
		return 0, fmt.Errorf("no score found in reply %q", reply)
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score %q: %w", match, err)
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
