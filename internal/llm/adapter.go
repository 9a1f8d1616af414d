package llm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/abdulachik/novelquiz/internal/logger"
)

// Factory builds a provider client.
type Factory func(ctx context.Context, cfg Config) (Client, error)

// Config holds configuration for the adapter.
type Config struct {
	Provider          string
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int // 0 disables client-side rate limiting
	Logger            *logger.Logger

	// Factory overrides provider selection. Used by tests.
	Factory Factory
}

// Adapter constructs its provider client on first use and sends one
// request per call. There is no retry.
type Adapter struct {
	cfg     Config
	factory Factory
	limiter *rate.Limiter
	log     *logger.Logger

	mu     sync.Mutex
	client Client
}

// NewAdapter creates an adapter. No network or credential check happens
// until the first Generate.
func NewAdapter(cfg Config) *Adapter {
	if cfg.Provider == "" {
		cfg.Provider = ProviderGemini
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	a := &Adapter{
		cfg:     cfg,
		factory: cfg.Factory,
		log:     cfg.Logger,
	}
	if a.factory == nil {
		a.factory = NewProviderClient
	}
	if cfg.RequestsPerMinute > 0 {
		a.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return a
}

// Configured reports whether an API key is available.
func (a *Adapter) Configured() bool {
	return strings.TrimSpace(a.cfg.APIKey) != ""
}

// Provider returns the configured provider name.
func (a *Adapter) Provider() string {
	return a.cfg.Provider
}

func (a *Adapter) getClient(ctx context.Context) (Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}
	if !a.Configured() {
		return nil, &ConfigurationError{
			Message: fmt.Sprintf("%s is not set", apiKeyEnv(a.cfg.Provider)),
		}
	}

	client, err := a.factory(ctx, a.cfg)
	if err != nil {
		return nil, classify(a.cfg.Provider, err)
	}

	a.log.Info("llm client ready", "provider", a.cfg.Provider, "model", a.cfg.Model)
	a.client = client
	return client, nil
}

// Generate sends the prompt pair and returns the raw response text.
func (a *Adapter) Generate(ctx context.Context, system, user string) (string, error) {
	client, err := a.getClient(ctx)
	if err != nil {
		return "", err
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for rate limit: %w", err)
		}
	}

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := client.Complete(ctx, system, user)
	if err != nil {
		a.log.Warn("llm request failed",
			"provider", a.cfg.Provider,
			"duration", time.Since(start),
			"error", err,
		)
		return "", classify(a.cfg.Provider, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	a.log.Debug("llm response received",
		"provider", a.cfg.Provider,
		"duration", time.Since(start),
		"chars", len(text),
	)
	return text, nil
}

// NewProviderClient builds the client for cfg.Provider.
func NewProviderClient(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model})
	case ProviderClaude:
		return NewClaudeClient(ClaudeConfig{APIKey: cfg.APIKey, Model: cfg.Model, Timeout: cfg.Timeout}), nil
	case ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model}), nil
	default:
		return nil, &ConfigurationError{Message: fmt.Sprintf("unknown LLM provider %q", cfg.Provider)}
	}
}

// Close releases the provider client, if one was built and holds
// resources. A later Generate builds a new client.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	closer, ok := a.client.(io.Closer)
	a.client = nil
	if !ok {
		return nil
	}
	if err := closer.Close(); err != nil {
		return fmt.Errorf("close %s client: %w", a.cfg.Provider, err)
	}
	return nil
}
