package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "ollama", p.LLMProvider)
	assert.Equal(t, "http://localhost:11434/v1", p.LLMBaseURL)
	assert.NotEmpty(t, p.LLMModel)
	assert.Equal(t, 120, p.LLMTimeout)

	assert.Equal(t, "bge-m3:latest", p.EmbeddingModel)
	assert.Equal(t, 1024, p.EmbeddingDimensions)
	assert.False(t, p.Embedding2Enabled)

	assert.InDelta(t, 0.6, p.VectorWeight, 1e-9)
	assert.InDelta(t, 0.4, p.LexicalWeight, 1e-9)
	assert.Equal(t, 5, p.RetrievalK)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("NUTRISCREEN_LLM_PROVIDER", "deepseek")
	t.Setenv("NUTRISCREEN_EMBEDDING2_MODEL", "nomic-embed-text")
	t.Setenv("NUTRISCREEN_VECTOR_WEIGHT", "0.7")
	t.Setenv("NUTRISCREEN_LEXICAL_WEIGHT", "0.3")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "deepseek", p.LLMProvider)
	assert.Equal(t, "https://api.deepseek.com", p.LLMBaseURL)
	assert.True(t, p.Embedding2Enabled)
	assert.Equal(t, "nomic-embed-text", p.Embedding2Model)
	assert.InDelta(t, 0.7, p.VectorWeight, 1e-9)
	assert.InDelta(t, 0.3, p.LexicalWeight, 1e-9)
}

func TestFromEnvUnknownProviderFallsBack(t *testing.T) {
	t.Setenv("NUTRISCREEN_LLM_PROVIDER", "nonexistent")

	p := &Profile{}
	p.FromEnv()
	assert.Equal(t, "ollama", p.LLMProvider)
}

func TestValidateDriver(t *testing.T) {
	p := &Profile{Mode: "dev", Driver: "mysql"}
	require.Error(t, p.Validate())

	p = &Profile{Mode: "dev", Driver: "postgres"}
	require.Error(t, p.Validate())

	p = &Profile{Mode: "dev", Driver: "postgres", DSN: "postgresql://localhost/nutriscreen"}
	require.NoError(t, p.Validate())
}

func TestValidateSQLiteDefaultsDSN(t *testing.T) {
	p := &Profile{Mode: "dev", Driver: "sqlite", Data: t.TempDir()}
	require.NoError(t, p.Validate())
	assert.Contains(t, p.DSN, "nutriscreen_dev.db")
}

func TestValidateNormalizesMode(t *testing.T) {
	p := &Profile{Mode: "staging", Driver: "sqlite", Data: t.TempDir()}
	require.NoError(t, p.Validate())
	assert.Equal(t, "demo", p.Mode)
}
