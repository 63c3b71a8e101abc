package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/paharikhet/sahayak/internal/config"
)

// NewProvider creates an LLM provider based on configuration.
func NewProvider(cfg *config.Config) (Provider, error) {
	providerName := cfg.LLM.DefaultProvider
	if providerName == "" {
		providerName = "gemini"
	}

	providerCfg, exists := cfg.LLM.Providers[providerName]
	if !exists {
		return nil, fmt.Errorf("provider '%s' not found in configuration", providerName)
	}

	apiKey := providerCfg.APIKey
	if apiKey == "" {
		apiKey = getAPIKeyFromEnv(providerName)
	}

	llmCfg := &ProviderConfig{
		Name:     providerName,
		Endpoint: providerCfg.Endpoint,
		APIKey:   apiKey,
		Model:    providerCfg.Model,
	}
	if providerCfg.TimeoutSec > 0 {
		llmCfg.Timeout = time.Duration(providerCfg.TimeoutSec) * time.Second
	}

	return NewProviderByName(providerName, llmCfg)
}

// getAPIKeyFromEnv retrieves the API key from standard environment variables.
func getAPIKeyFromEnv(providerName string) string {
	envVars := map[string]string{
		"gemini": "GEMINI_API_KEY",
	}
	if envVar, ok := envVars[providerName]; ok {
		if key := os.Getenv(envVar); key != "" {
			return key
		}
	}
	// The original deployment keys Gemini off the shared Google credential.
	if providerName == "gemini" {
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}

// NewProviderByName creates a provider by name with the given configuration.
func NewProviderByName(name string, cfg *ProviderConfig) (Provider, error) {
	switch name {
	case "gemini":
		return NewGeminiProvider(cfg), nil
	case "ollama":
		return NewOllamaProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}
