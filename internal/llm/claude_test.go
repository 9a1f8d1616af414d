package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaudeClient_Complete(t *testing.T) {
	t.Run("successful completion", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
			assert.Equal(t, claudeAPIVersion, r.Header.Get("anthropic-version"))

			var req claudeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "system prompt", req.System)
			assert.Equal(t, MaxOutputTokens, req.MaxTokens)
			assert.InDelta(t, Temperature, req.Temperature, 0.0001)
			require.Len(t, req.Messages, 1)
			assert.Equal(t, "user prompt", req.Messages[0].Content)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"msg_123","type":"message","role":"assistant",
				"content":[{"type":"text","text":"{\"questions\":"},{"type":"text","text":"[]}"}],
				"stop_reason":"end_turn"}`))
		}))
		defer server.Close()

		client := NewClaudeClient(ClaudeConfig{APIKey: "test-api-key", BaseURL: server.URL})
		text, err := client.Complete(context.Background(), "system prompt", "user prompt")
		require.NoError(t, err)
		assert.Equal(t, `{"questions":[]}`, text)
	})

	t.Run("handles API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
		}))
		defer server.Close()

		client := NewClaudeClient(ClaudeConfig{APIKey: "invalid", BaseURL: server.URL})
		_, err := client.Complete(context.Background(), "system", "user")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 401")
	})

	t.Run("empty content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"msg_1","content":[]}`))
		}))
		defer server.Close()

		client := NewClaudeClient(ClaudeConfig{APIKey: "k", BaseURL: server.URL})
		_, err := client.Complete(context.Background(), "system", "user")
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}

func TestNewClaudeClient(t *testing.T) {
	t.Run("uses default model", func(t *testing.T) {
		client := NewClaudeClient(ClaudeConfig{APIKey: "test"})
		assert.Equal(t, defaultClaudeModel, client.model)
		assert.Equal(t, claudeAPIURL, client.baseURL)
	})

	t.Run("uses custom model", func(t *testing.T) {
		client := NewClaudeClient(ClaudeConfig{
			APIKey: "test",
			Model:  "claude-3-opus",
		})
		assert.Equal(t, "claude-3-opus", client.model)
	})
}
