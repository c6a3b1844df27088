package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the screening server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol)
	// All providers (ollama, deepseek, openai, siliconflow) use the same config
	LLMProvider string // Provider identifier: ollama, deepseek, openai, siliconflow
	LLMAPIKey   string // LLM API key (ollama accepts any value)
	LLMBaseURL  string // LLM base URL (optional, has default per provider)
	LLMModel    string // Model name: qwen3:0.6b, deepseek-chat, gpt-4o, etc.
	LLMTimeout  int    // LLM request timeout in seconds (default: 120)

	// Primary embedding space
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int

	// Secondary embedding space (optional second dense retrieval source)
	Embedding2Model      string
	Embedding2Dimensions int
	Embedding2Enabled    bool

	// Reranker configuration
	RerankProvider string
	RerankModel    string
	RerankAPIKey   string
	RerankBaseURL  string
	RerankTopN     int

	// Retrieval tuning
	RetrievalK    int     // candidates per source (default: 5)
	VectorWeight  float64 // weighted-hybrid vector weight (default: 0.6)
	LexicalWeight float64 // weighted-hybrid lexical weight (default: 0.4)
	FusionPolicy  string  // fusion algorithm: weighted or rrf (default: weighted)

	// Server / storage
	Mode    string
	Addr    string
	Port    int
	Data    string
	Driver  string
	DSN     string
	Version string
}

// Provider default configurations for LLM.
// Used when NUTRISCREEN_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "qwen3:0.6b",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	// Unified LLM configuration
	p.LLMProvider = getEnvOrDefault("NUTRISCREEN_LLM_PROVIDER", "ollama")
	p.LLMAPIKey = getEnvOrDefault("NUTRISCREEN_LLM_API_KEY", "ollama")
	p.LLMBaseURL = getEnvOrDefault("NUTRISCREEN_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("NUTRISCREEN_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("NUTRISCREEN_LLM_TIMEOUT_SECONDS", 120)

	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("Unknown LLM provider, using default: ollama", "provider", p.LLMProvider)
			p.LLMProvider = "ollama"
		}
	}
	if p.LLMBaseURL == "" || p.LLMModel == "" {
		if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
			if p.LLMBaseURL == "" {
				p.LLMBaseURL = defaults.BaseURL
			}
			if p.LLMModel == "" {
				p.LLMModel = defaults.Model
			}
		}
	}

	// Primary embedding space
	p.EmbeddingProvider = getEnvOrDefault("NUTRISCREEN_EMBEDDING_PROVIDER", "ollama")
	p.EmbeddingModel = getEnvOrDefault("NUTRISCREEN_EMBEDDING_MODEL", "bge-m3:latest")
	p.EmbeddingAPIKey = getEnvOrDefault("NUTRISCREEN_EMBEDDING_API_KEY", p.LLMAPIKey)
	p.EmbeddingBaseURL = getEnvOrDefault("NUTRISCREEN_EMBEDDING_BASE_URL", p.LLMBaseURL)
	p.EmbeddingDimensions = getEnvOrDefaultInt("NUTRISCREEN_EMBEDDING_DIMENSIONS", 1024)

	// Secondary embedding space, disabled unless a model is configured
	p.Embedding2Model = getEnvOrDefault("NUTRISCREEN_EMBEDDING2_MODEL", "")
	p.Embedding2Dimensions = getEnvOrDefaultInt("NUTRISCREEN_EMBEDDING2_DIMENSIONS", 768)
	p.Embedding2Enabled = p.Embedding2Model != ""

	// Reranker configuration
	p.RerankProvider = getEnvOrDefault("NUTRISCREEN_RERANK_PROVIDER", "ollama")
	p.RerankModel = getEnvOrDefault("NUTRISCREEN_RERANK_MODEL", "bge-reranker-v2-m3:latest")
	p.RerankAPIKey = getEnvOrDefault("NUTRISCREEN_RERANK_API_KEY", p.LLMAPIKey)
	p.RerankBaseURL = getEnvOrDefault("NUTRISCREEN_RERANK_BASE_URL", p.LLMBaseURL)
	p.RerankTopN = getEnvOrDefaultInt("NUTRISCREEN_RERANK_TOP_N", 5)

	// Retrieval tuning
	p.RetrievalK = getEnvOrDefaultInt("NUTRISCREEN_RETRIEVAL_K", 5)
	p.VectorWeight = getEnvOrDefaultFloat("NUTRISCREEN_VECTOR_WEIGHT", 0.6)
	p.LexicalWeight = getEnvOrDefaultFloat("NUTRISCREEN_LEXICAL_WEIGHT", 0.4)
	p.FusionPolicy = getEnvOrDefault("NUTRISCREEN_FUSION_POLICY", "weighted")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "postgres" && p.Driver != "sqlite" {
		return errors.Errorf("unsupported database driver: %s", p.Driver)
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	if p.Driver == "sqlite" {
		if p.Data == "" {
			p.Data = "."
		}
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			dbFile := fmt.Sprintf("nutriscreen_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile) + "?_loc=auto"
		}
	}

	if p.RetrievalK <= 0 {
		p.RetrievalK = 5
	}
	if p.RerankTopN <= 0 {
		p.RerankTopN = 5
	}

	return nil
}
