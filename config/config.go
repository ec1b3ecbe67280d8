package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	OpenAI    OpenAIConfig
	Pinecone  PineconeConfig
	RateLimit RateLimitConfig
	Catalog   CatalogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// OpenAIConfig holds embedding and chat provider configuration
type OpenAIConfig struct {
	APIKey              string        `mapstructure:"api_key"`
	BaseURL             string        `mapstructure:"base_url"`
	EmbeddingModel      string        `mapstructure:"embedding_model"`
	EmbeddingDimensions int           `mapstructure:"embedding_dimensions"`
	ChatModel           string        `mapstructure:"chat_model"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// PineconeConfig holds vector store and reranker configuration
type PineconeConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	IndexHost     string        `mapstructure:"index_host"`
	RerankBaseURL string        `mapstructure:"rerank_base_url"`
	RerankModel   string        `mapstructure:"rerank_model"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig holds admission-control configuration
type RateLimitConfig struct {
	Limit          int           `mapstructure:"limit"`
	Window         time.Duration `mapstructure:"window"`
	SweepThreshold int           `mapstructure:"sweep_threshold"`
}

// CatalogConfig holds static catalog data configuration
type CatalogConfig struct {
	IngredientsFile string `mapstructure:"ingredients_file"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/blendwise/")

	// Environment variable settings
	v.SetEnvPrefix("BLENDWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// OpenAI defaults
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.embedding_dimensions", 512)
	v.SetDefault("openai.chat_model", "gpt-3.5-turbo")
	v.SetDefault("openai.timeout", "30s")

	// Pinecone defaults
	v.SetDefault("pinecone.rerank_base_url", "https://api.pinecone.io")
	v.SetDefault("pinecone.rerank_model", "bge-reranker-v2-m3")
	v.SetDefault("pinecone.timeout", "30s")

	// Rate limit defaults: 10 requests per client per hour
	v.SetDefault("ratelimit.limit", 10)
	v.SetDefault("ratelimit.window", "1h")
	v.SetDefault("ratelimit.sweep_threshold", 1000)

	// Catalog defaults
	v.SetDefault("catalog.ingredients_file", "")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required (set BLENDWISE_OPENAI_API_KEY)")
	}

	if config.Pinecone.APIKey == "" {
		return fmt.Errorf("Pinecone API key is required (set BLENDWISE_PINECONE_API_KEY)")
	}

	if config.Pinecone.IndexHost == "" {
		return fmt.Errorf("Pinecone index host is required (set BLENDWISE_PINECONE_INDEX_HOST)")
	}

	if config.OpenAI.EmbeddingDimensions < 1 {
		return fmt.Errorf("embedding dimensions must be positive, got: %d", config.OpenAI.EmbeddingDimensions)
	}

	if config.RateLimit.Limit < 1 {
		return fmt.Errorf("rate limit must be at least 1, got: %d", config.RateLimit.Limit)
	}

	if config.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got: %s", config.RateLimit.Window)
	}

	return nil
}
