package embedding

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls atomic.Int32
}

func (p *countingProvider) Embed(_ context.Context, text string) ([]float32, error) {
	p.calls.Add(1)
	return []float32{float32(len(text)), 1}, nil
}

func (p *countingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (p *countingProvider) Model() string   { return "counting" }
func (p *countingProvider) Dimensions() int { return 2 }

func TestCachedProviderHitsCacheOnRepeatQuery(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedProvider(inner, 10, time.Minute)

	first, err := cached.Embed(context.Background(), "营养风险")
	require.NoError(t, err)

	second, err := cached.Embed(context.Background(), "营养风险")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.calls.Load())

	_, err = cached.Embed(context.Background(), "另一个查询")
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedProviderExposesInnerIdentity(t *testing.T) {
	cached := NewCachedProvider(&countingProvider{}, 10, time.Minute)
	assert.Equal(t, "counting", cached.Model())
	assert.Equal(t, 2, cached.Dimensions())
}

func TestCacheKeyDistinguishesModels(t *testing.T) {
	assert.NotEqual(t, cacheKey("model-a", "text"), cacheKey("model-b", "text"))
	assert.Equal(t, cacheKey("model-a", "text"), cacheKey("model-a", "text"))
}
