// Package config loads the environment-style configuration from §6 into a
// typed struct, with an optional YAML file overlay for local overrides —
// the same two-layer approach (env-first, YAML overlay) the teacher's
// config package uses for its own schema.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
)

// SearchMode selects which retrieval lists Hybrid Search consults.
type SearchMode string

const (
	SearchModeVector SearchMode = "vector"
	SearchModeHybrid SearchMode = "hybrid"
)

// Config is the full set of environment-style settings from §6.
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	StorageRoot string `yaml:"storage_root"`

	SearchMode        SearchMode `yaml:"search_mode"`
	HybridVectorWeight float64   `yaml:"hybrid_vector_weight"`
	HybridBM25Weight   float64   `yaml:"hybrid_bm25_weight"`
	HybridRRFK         int       `yaml:"hybrid_rrf_k"`

	DocEmbeddingProvider     string `yaml:"doc_embedding_provider"`
	CodeEmbeddingProvider    string `yaml:"code_embedding_provider"`
	WritingEmbeddingProvider string `yaml:"writing_embedding_provider"`

	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	VoyageAPIKey    string `yaml:"-"`
	OllamaBaseURL   string `yaml:"ollama_base_url"`
	BedrockRegion   string `yaml:"bedrock_region"`

	JudgeProvider string `yaml:"judge_provider"` // "openai" or "anthropic"

	RerankerProvider string `yaml:"reranker_provider"`

	EnableSynthesis              bool    `yaml:"enable_synthesis"`
	EnableContradictionDetection bool    `yaml:"enable_contradiction_detection"`
	ContradictionMinSimilarity   float64 `yaml:"contradiction_min_similarity"`
	ContradictionMaxSimilarity   float64 `yaml:"contradiction_max_similarity"`

	MonthlyBudgetUSD float64 `yaml:"monthly_budget_usd"`

	CodeChunking     bool `yaml:"code_chunking"`
	PreserveImports  bool `yaml:"preserve_imports"`
	CodeMaxChunkLines int  `yaml:"code_max_chunk_lines"`
}

// Default returns the configuration defaults named throughout §4.
func Default() Config {
	return Config{
		StorageRoot:        "./storage",
		SearchMode:         SearchModeVector,
		HybridVectorWeight: 0.7,
		HybridBM25Weight:   0.3,
		HybridRRFK:         60,

		DocEmbeddingProvider:     "ollama",
		CodeEmbeddingProvider:    "voyage",
		WritingEmbeddingProvider: "openai",
		OllamaBaseURL:            "http://localhost:11434",

		RerankerProvider: "local",
		JudgeProvider:    "openai",

		EnableSynthesis:              true,
		EnableContradictionDetection: true,
		ContradictionMinSimilarity:   0.2,
		ContradictionMaxSimilarity:   0.7,

		MonthlyBudgetUSD: 0,

		CodeChunking:      true,
		PreserveImports:   true,
		CodeMaxChunkLines: 200,
	}
}

// LoadEnv overlays environment variables named in §6 onto the defaults.
func LoadEnv() Config {
	cfg := Default()

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("STORAGE_ROOT"); v != "" {
		cfg.StorageRoot = v
	}
	if v := os.Getenv("SEARCH_MODE"); v != "" {
		cfg.SearchMode = SearchMode(v)
	}
	if v, ok := getFloat("HYBRID_VECTOR_WEIGHT"); ok {
		cfg.HybridVectorWeight = v
	}
	if v, ok := getFloat("HYBRID_BM25_WEIGHT"); ok {
		cfg.HybridBM25Weight = v
	}
	if v, ok := getInt("HYBRID_RRF_K"); ok {
		cfg.HybridRRFK = v
	}
	if v := os.Getenv("DOC_EMBEDDING_PROVIDER"); v != "" {
		cfg.DocEmbeddingProvider = v
	}
	if v := os.Getenv("CODE_EMBEDDING_PROVIDER"); v != "" {
		cfg.CodeEmbeddingProvider = v
	}
	if v := os.Getenv("WRITING_EMBEDDING_PROVIDER"); v != "" {
		cfg.WritingEmbeddingProvider = v
	}
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.VoyageAPIKey = os.Getenv("VOYAGE_API_KEY")
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.OllamaBaseURL = v
	}
	if v := os.Getenv("BEDROCK_REGION"); v != "" {
		cfg.BedrockRegion = v
	}
	if v := os.Getenv("RERANKER_PROVIDER"); v != "" {
		cfg.RerankerProvider = v
	}
	if v := os.Getenv("JUDGE_PROVIDER"); v != "" {
		cfg.JudgeProvider = v
	}
	if v, ok := getBool("ENABLE_SYNTHESIS"); ok {
		cfg.EnableSynthesis = v
	}
	if v, ok := getBool("ENABLE_CONTRADICTION_DETECTION"); ok {
		cfg.EnableContradictionDetection = v
	}
	if v, ok := getFloat("CONTRADICTION_MIN_SIMILARITY"); ok {
		cfg.ContradictionMinSimilarity = v
	}
	if v, ok := getFloat("CONTRADICTION_MAX_SIMILARITY"); ok {
		cfg.ContradictionMaxSimilarity = v
	}
	if v, ok := getFloat("MONTHLY_BUDGET_USD"); ok {
		cfg.MonthlyBudgetUSD = v
	}
	if v, ok := getBool("CODE_CHUNKING"); ok {
		cfg.CodeChunking = v
	}
	if v, ok := getBool("PRESERVE_IMPORTS"); ok {
		cfg.PreserveImports = v
	}
	if v, ok := getInt("CODE_MAX_CHUNK_LINES"); ok {
		cfg.CodeMaxChunkLines = v
	}

	return cfg
}

// LoadFile overlays a YAML file's values onto cfg. Only fields present in
// the file are overwritten; secrets (API keys) are never read from YAML.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

func getFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func getInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func getBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
