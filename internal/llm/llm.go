// Package llm sends prompt pairs to a generative language model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Fixed generation parameters.
const (
	Temperature     = 0.7
	MaxOutputTokens = 2048
)

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// Client completes a system+user prompt pair.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty response from model")

// ConfigurationError reports missing or rejected credentials. It is not
// retried.
type ConfigurationError struct {
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// UpstreamError wraps a failure of the model provider.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// apiKeyEnv names the environment variable holding a provider's key.
func apiKeyEnv(provider string) string {
	switch provider {
	case ProviderClaude:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return "GEMINI_API_KEY"
	}
}

// classify turns a provider error into the package's error taxonomy.
func classify(provider string, err error) error {
	var cfgErr *ConfigurationError
	if errors.Is(err, ErrEmptyResponse) || errors.As(err, &cfgErr) {
		return err
	}
	if looksLikeKeyError(err.Error()) {
		return &ConfigurationError{
			Message: fmt.Sprintf("invalid or missing %s API key, check %s", provider, apiKeyEnv(provider)),
			Err:     err,
		}
	}
	return &UpstreamError{Provider: provider, Err: err}
}

func looksLikeKeyError(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range []string{
		"api_key_invalid",
		"api key not valid",
		"invalid api key",
		"invalid_api_key",
		"incorrect api key",
		"invalid x-api-key",
		"authentication_error",
		"status 401",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// StripCodeFence removes a surrounding markdown code fence such as
// ```json ... ``` from a model response.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	// Drop the opening fence line, language tag included.
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
