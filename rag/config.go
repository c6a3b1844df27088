package rag

import (
	"time"

	"github.com/hrygo/nutriscreen/internal/profile"
	"github.com/hrygo/nutriscreen/rag/core/embedding"
	"github.com/hrygo/nutriscreen/rag/core/llm"
	"github.com/hrygo/nutriscreen/rag/core/reranker"
	"github.com/hrygo/nutriscreen/rag/core/retrieval"
)

// Config assembles every knob of the assessment engine.
type Config struct {
	LLM llm.Config

	// Embedding is the primary embedding space.
	Embedding embedding.Config
	// SecondaryEmbedding is the optional second embedding space. Nil
	// disables the secondary dense source.
	SecondaryEmbedding *embedding.Config

	// Rerank is nil when no reranker is configured.
	Rerank *reranker.Config

	// Weights drive weighted score fusion.
	Weights retrieval.FusionWeights
	// Fusion picks the fusion algorithm.
	Fusion retrieval.FusionPolicy
	// RetrievalK is the per-source candidate budget.
	RetrievalK int
	// TopN is the number of evidence chunks kept for the model.
	TopN int

	// EmbeddingCacheSize bounds the query embedding cache.
	EmbeddingCacheSize int
	// EmbeddingCacheTTL bounds cache entry lifetime.
	EmbeddingCacheTTL time.Duration
}

// ConfigFromProfile derives an engine config from the service profile.
func ConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		LLM: llm.Config{
			Provider: p.LLMProvider,
			Model:    p.LLMModel,
			APIKey:   p.LLMAPIKey,
			BaseURL:  p.LLMBaseURL,
			Timeout:  p.LLMTimeout,
		},
		Embedding: embedding.Config{
			Model:      p.EmbeddingModel,
			APIKey:     p.EmbeddingAPIKey,
			BaseURL:    p.EmbeddingBaseURL,
			Dimensions: p.EmbeddingDimensions,
		},
		Weights: retrieval.FusionWeights{
			Vector:  p.VectorWeight,
			Lexical: p.LexicalWeight,
		},
		Fusion:             retrieval.FusionPolicy(p.FusionPolicy),
		RetrievalK:         p.RetrievalK,
		TopN:               p.RerankTopN,
		EmbeddingCacheSize: 1000,
		EmbeddingCacheTTL:  time.Hour,
	}

	if p.Embedding2Enabled {
		cfg.SecondaryEmbedding = &embedding.Config{
			Model:      p.Embedding2Model,
			APIKey:     p.EmbeddingAPIKey,
			BaseURL:    p.EmbeddingBaseURL,
			Dimensions: p.Embedding2Dimensions,
		}
	}

	if p.RerankModel != "" {
		cfg.Rerank = &reranker.Config{
			Provider: p.RerankProvider,
			Model:    p.RerankModel,
			APIKey:   p.RerankAPIKey,
			BaseURL:  p.RerankBaseURL,
		}
	}

	return cfg
}
