// Package embedding provides vector embedding providers for retrieval.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/nutriscreen/rag/cache"
)

// Provider generates vector embeddings for text.
// Providers must be deterministic for identical input within a session.
type Provider interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the embedding model identifier.
	Model() string

	// Dimensions returns the vector dimension.
	Dimensions() int
}

// Config represents embedding provider configuration.
type Config struct {
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}

type provider struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewProvider creates a Provider backed by any OpenAI-compatible
// embeddings endpoint (openai, siliconflow, ollama, etc.).
func NewProvider(cfg *Config) (Provider, error) {
	if cfg.Model == "" {
		return nil, errors.New("embedding model required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	return &provider{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (p *provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("empty embedding result")
	}
	return vectors[0], nil
}

func (p *provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided for embedding")
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vectors[i] = data.Embedding
	}

	return vectors, nil
}

func (p *provider) Model() string {
	return p.model
}

func (p *provider) Dimensions() int {
	return p.dimensions
}

// cachedProvider wraps a Provider with an LRU cache keyed by content hash.
// Query embedding is the hottest path of the retrieval pipeline; identical
// queries within a session skip the network round-trip.
type cachedProvider struct {
	inner Provider
	cache *cache.LRUCache[string, []float32]
}

// NewCachedProvider wraps p with an in-process embedding cache.
func NewCachedProvider(p Provider, capacity int, ttl time.Duration) Provider {
	return &cachedProvider{
		inner: p,
		cache: cache.NewLRUCache[string, []float32](capacity, ttl),
	}
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return model + ":" + hex.EncodeToString(sum[:])
}

func (p *cachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(p.inner.Model(), text)
	if vec, ok := p.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := p.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	p.cache.Set(key, vec)
	return vec, nil
}

func (p *cachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return p.inner.EmbedBatch(ctx, texts)
}

func (p *cachedProvider) Model() string {
	return p.inner.Model()
}

func (p *cachedProvider) Dimensions() int {
	return p.inner.Dimensions()
}
