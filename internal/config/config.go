package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LLM provider names.
const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// Config holds all application configuration.
type Config struct {
	// HTTP server
	Port        string
	CORSOrigins []string

	// Uploads
	UploadDir      string
	MaxUploadBytes int64

	// Caches
	BookCacheSize    int // Parsed EPUBs kept in memory
	BookRegistrySize int // Uploaded book records kept in memory
	ParseTimeout     time.Duration

	// LLM
	LLMProvider          string
	GeminiAPIKey         string
	GeminiModel          string
	AnthropicAPIKey      string
	ClaudeModel          string
	OpenAIAPIKey         string
	OpenAIModel          string
	LLMRequestsPerMinute int
	LLMTimeout           time.Duration

	// Database
	DatabasePath string

	// Logging
	LogMode  string
	LogLevel string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "3001"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),
		UploadDir:       getEnv("UPLOAD_DIR", "./epub-uploads"),
		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash-exp"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		ClaudeModel:     getEnv("CLAUDE_MODEL", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		DatabasePath:    getEnv("DATABASE_PATH", "data/novelquiz.db"),
		LogMode:         getEnv("LOG_MODE", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	// Parse durations
	var err error
	cfg.ParseTimeout, err = time.ParseDuration(getEnv("PARSE_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PARSE_TIMEOUT: %w", err)
	}

	cfg.LLMTimeout, err = time.ParseDuration(getEnv("LLM_TIMEOUT", "120s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TIMEOUT: %w", err)
	}

	// Parse integers
	maxMB, err := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err)
	}
	cfg.MaxUploadBytes = int64(maxMB) << 20

	cfg.BookCacheSize, err = strconv.Atoi(getEnv("BOOK_CACHE_SIZE", "32"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOK_CACHE_SIZE: %w", err)
	}

	cfg.BookRegistrySize, err = strconv.Atoi(getEnv("BOOK_REGISTRY_SIZE", "256"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOK_REGISTRY_SIZE: %w", err)
	}

	cfg.LLMRequestsPerMinute, err = strconv.Atoi(getEnv("LLM_REQUESTS_PER_MINUTE", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_REQUESTS_PER_MINUTE: %w", err)
	}

	return cfg, nil
}

// LLMAPIKey returns the API key of the selected provider.
// An empty key means quizzes are served from the built-in mock.
func (c *Config) LLMAPIKey() string {
	switch c.LLMProvider {
	case ProviderClaude:
		return c.AnthropicAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	default:
		return c.GeminiAPIKey
	}
}

// LLMModel returns the model override of the selected provider.
func (c *Config) LLMModel() string {
	switch c.LLMProvider {
	case ProviderClaude:
		return c.ClaudeModel
	case ProviderOpenAI:
		return c.OpenAIModel
	default:
		return c.GeminiModel
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}

// ValidateForQuiz checks configuration needed to generate quizzes.
// A missing API key is allowed; it selects the mock quiz mode.
func (c *Config) ValidateForQuiz() error {
	switch c.LLMProvider {
	case ProviderGemini, ProviderClaude, ProviderOpenAI:
	default:
		return fmt.Errorf("invalid LLM_PROVIDER: %s (must be 'gemini', 'claude' or 'openai')", c.LLMProvider)
	}
	if c.BookCacheSize <= 0 {
		return fmt.Errorf("BOOK_CACHE_SIZE must be positive")
	}
	if c.BookRegistrySize <= 0 {
		return fmt.Errorf("BOOK_REGISTRY_SIZE must be positive")
	}
	if c.ParseTimeout <= 0 {
		return fmt.Errorf("PARSE_TIMEOUT must be positive")
	}
	if c.LLMRequestsPerMinute < 0 {
		return fmt.Errorf("LLM_REQUESTS_PER_MINUTE must not be negative")
	}
	return nil
}

// ValidateForServe checks all configuration needed for serve mode.
func (c *Config) ValidateForServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.ValidateForQuiz(); err != nil {
		return err
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// splitList splits a comma separated value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
