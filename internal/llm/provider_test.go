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

func TestGeminiChat(t *testing.T) {
	var gotPath, gotKey string
	var gotReq geminiGenerateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "Rice needs standing water."}], "role": "model"}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 7, "totalTokenCount": 19}
		}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider(&ProviderConfig{Endpoint: srv.URL, APIKey: "test-key", Model: "gemini-1.5-flash"})

	resp, err := p.Chat(context.Background(), &ChatRequest{
		SystemPrompt: "You are a farming assistant.",
		Messages:     []Message{{Role: "user", Content: "How much water does rice need?"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Rice needs standing water.", resp.Content)
	assert.Equal(t, 19, resp.TokensUsed)
	assert.Equal(t, "/models/gemini-1.5-flash:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.NotNil(t, gotReq.SystemInstruction)
	assert.Equal(t, "You are a farming assistant.", gotReq.SystemInstruction.Parts[0].Text)
}

func TestGeminiChatMissingKey(t *testing.T) {
	p := NewGeminiProvider(&ProviderConfig{})
	_, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	assert.Error(t, err)
	assert.False(t, p.Available())
}

func TestGeminiChatUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewGeminiProvider(&ProviderConfig{Endpoint: srv.URL, APIKey: "k"})
	_, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestOllamaChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		// System prompt must be prepended as the first message.
		require.NotEmpty(t, req.Messages)
		assert.Equal(t, "system", req.Messages[0].Role)

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:           "llama3.2",
			Message:         ollamaMessage{Role: "assistant", Content: "Sow wheat in November."},
			Done:            true,
			PromptEvalCount: 20,
			EvalCount:       5,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(&ProviderConfig{Endpoint: srv.URL, Model: "llama3.2"})
	resp, err := p.Chat(context.Background(), &ChatRequest{
		SystemPrompt: "Answer briefly.",
		Messages:     []Message{{Role: "user", Content: "When to sow wheat?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sow wheat in November.", resp.Content)
	assert.Equal(t, 25, resp.TokensUsed)
}

func TestOllamaAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llama3.2"}]}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(&ProviderConfig{Endpoint: srv.URL})
	assert.True(t, p.Available())

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[]}`))
	}))
	defer empty.Close()

	p2 := NewOllamaProvider(&ProviderConfig{Endpoint: empty.URL})
	assert.False(t, p2.Available())
}

func TestNewProviderByName(t *testing.T) {
	p, err := NewProviderByName("gemini", nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())

	p, err = NewProviderByName("ollama", nil)
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	_, err = NewProviderByName("mystery", nil)
	assert.Error(t, err)
}
