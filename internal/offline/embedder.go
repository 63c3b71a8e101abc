// Package offline answers queries from the local chat history when the
// network is unreachable. Stored questions are ranked by embedding
// cosine similarity, with a token-overlap heuristic as fallback when no
// embedding model is available.
package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultEmbeddingModel is the default model for embeddings.
const DefaultEmbeddingModel = "nomic-embed-text"

// DefaultOllamaHost is the default Ollama API endpoint.
const DefaultOllamaHost = "http://127.0.0.1:11434"

// Embedding is a dense vector representation of a text.
type Embedding []float32

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// Available returns true if the embedder is ready to use.
	Available() bool
}

// OllamaEmbedder generates embeddings using Ollama's local models.
type OllamaEmbedder struct {
	host   string
	model  string
	client *http.Client
	log    zerolog.Logger

	available     bool
	availableMu   sync.RWMutex
	lastCheck     time.Time
	checkInterval time.Duration
}

// OllamaEmbedderConfig configures the Ollama embedder.
type OllamaEmbedderConfig struct {
	Host          string        // Ollama API host (default: http://127.0.0.1:11434)
	Model         string        // Embedding model (default: nomic-embed-text)
	Timeout       time.Duration // HTTP request timeout (default: 10s)
	CheckInterval time.Duration // How often to re-check availability
}

// NewOllamaEmbedder creates a new Ollama-based embedder and checks the
// server once for the configured model.
func NewOllamaEmbedder(cfg *OllamaEmbedderConfig, logger zerolog.Logger) *OllamaEmbedder {
	if cfg == nil {
		cfg = &OllamaEmbedderConfig{}
	}

	host := cfg.Host
	if host == "" {
		host = DefaultOllamaHost
	}
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	checkInterval := cfg.CheckInterval
	if checkInterval == 0 {
		checkInterval = 5 * time.Minute
	}

	e := &OllamaEmbedder{
		host:          host,
		model:         model,
		client:        &http.Client{Timeout: timeout},
		log:           logger.With().Str("component", "embedder").Logger(),
		checkInterval: checkInterval,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.available = e.checkAvailability(ctx)
	e.lastCheck = time.Now()

	return e
}

// Embed generates an embedding for a single text via the Ollama API.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) (Embedding, error) {
	if !e.Available() {
		return nil, fmt.Errorf("embedder not available")
	}

	reqBody, err := json.Marshal(map[string]string{
		"model":  e.model,
		"prompt": text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.host+"/api/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		e.setAvailable(false)
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	embedding := make(Embedding, len(result.Embedding))
	for i, v := range result.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// Available returns true if the embedder is ready to use, re-checking
// the server after the check interval elapses.
func (e *OllamaEmbedder) Available() bool {
	e.availableMu.RLock()
	available := e.available
	lastCheck := e.lastCheck
	e.availableMu.RUnlock()

	if !available && time.Since(lastCheck) > e.checkInterval {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if e.checkAvailability(ctx) {
			e.setAvailable(true)
			return true
		}
		e.setAvailable(false)
	}

	return available
}

func (e *OllamaEmbedder) setAvailable(available bool) {
	e.availableMu.Lock()
	e.available = available
	e.lastCheck = time.Now()
	e.availableMu.Unlock()
}

// checkAvailability checks if Ollama is running and the model is present.
func (e *OllamaEmbedder) checkAvailability(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", e.host+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	for _, m := range result.Models {
		// Handle both "nomic-embed-text" and "nomic-embed-text:latest".
		if m.Name == e.model || strings.HasPrefix(m.Name, e.model+":") {
			return true
		}
	}

	e.log.Debug().Str("model", e.model).Msg("embedding model not found in Ollama")
	return false
}

// NullEmbedder is a never-available embedder that forces the
// token-overlap fallback.
type NullEmbedder struct{}

// Embed always fails.
func (NullEmbedder) Embed(context.Context, string) (Embedding, error) {
	return nil, fmt.Errorf("embedder not available")
}

// Available always returns false.
func (NullEmbedder) Available() bool { return false }
