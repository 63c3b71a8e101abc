// Package config loads and persists configuration for the Sahayak
// agricultural assistant. Configuration lives in ~/.sahayak/config.yaml
// and can be overridden by SAHAYAK_-prefixed environment variables.
// Upstream API credentials may also be supplied through the conventional
// unprefixed variables (OPENWEATHER_API_KEY, DATA_GOV_API_KEY,
// GOOGLE_API_KEY, GOOGLE_CSE_ID), typically via a .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	APIs    APIConfig     `mapstructure:"apis" yaml:"apis"`
	Offline OfflineConfig `mapstructure:"offline" yaml:"offline"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LLMConfig contains configuration for Language Model providers.
type LLMConfig struct {
	// DefaultProvider specifies which provider to use by default ("gemini" or "ollama")
	DefaultProvider string `mapstructure:"default_provider" yaml:"default_provider"`
	// Providers maps provider names to their specific configuration
	Providers map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
}

// ProviderConfig contains configuration for a specific LLM provider.
type ProviderConfig struct {
	// Endpoint is the API endpoint URL (primarily used for local providers like Ollama)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	// APIKey is the authentication key for the provider
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	// Model is the specific model to use with this provider
	Model string `mapstructure:"model" yaml:"model,omitempty"`
	// TimeoutSec bounds a single chat call (default 30s)
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec,omitempty"`
}

// APIConfig contains credentials and endpoints for the external tool adapters.
type APIConfig struct {
	// OpenWeatherKey authenticates against the OpenWeatherMap current-weather API
	OpenWeatherKey string `mapstructure:"openweather_key" yaml:"openweather_key,omitempty"`
	// DataGovKey authenticates against the data.gov.in AGMARKNET resource
	DataGovKey string `mapstructure:"datagov_key" yaml:"datagov_key,omitempty"`
	// GoogleKey authenticates against the Google Custom Search JSON API
	GoogleKey string `mapstructure:"google_key" yaml:"google_key,omitempty"`
	// GoogleCSEID is the Custom Search Engine identifier
	GoogleCSEID string `mapstructure:"google_cse_id" yaml:"google_cse_id,omitempty"`
	// TimeoutSec bounds each adapter HTTP call (default 10s)
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// OfflineConfig controls the offline similarity-search fallback.
type OfflineConfig struct {
	// OllamaURL is the Ollama server used for embeddings
	OllamaURL string `mapstructure:"ollama_url" yaml:"ollama_url"`
	// EmbeddingModel is the model used to embed queries (e.g. "nomic-embed-text")
	EmbeddingModel string `mapstructure:"embedding_model" yaml:"embedding_model"`
	// SimilarityThreshold is the minimum cosine score for an embedding match
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
}

// HistoryConfig contains configuration for the persisted chat log.
type HistoryConfig struct {
	// DBPath is the path to the SQLite chat history database
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error")
	Level string `mapstructure:"level" yaml:"level"`
	// File is the path to the log file
	File string `mapstructure:"file" yaml:"file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".sahayak")

	return &Config{
		LLM: LLMConfig{
			DefaultProvider: "gemini",
			Providers: map[string]ProviderConfig{
				"gemini": {
					APIKey: "",
					Model:  "gemini-1.5-flash",
				},
				"ollama": {
					Endpoint: "http://127.0.0.1:11434",
					Model:    "llama3.2",
				},
			},
		},
		APIs: APIConfig{
			TimeoutSec: 10,
		},
		Offline: OfflineConfig{
			OllamaURL:           "http://127.0.0.1:11434",
			EmbeddingModel:      "nomic-embed-text",
			SimilarityThreshold: 0.3,
		},
		History: HistoryConfig{
			DBPath: filepath.Join(dataDir, "history.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dataDir, "logs", "sahayak.log"),
		},
	}
}

// Load reads configuration from the default location (~/.sahayak/config.yaml)
// and merges with environment variables. If no config file exists, it creates
// one with default values.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".sahayak", "config.yaml")
	return LoadFromPath(configPath)
}

// LoadFromPath reads configuration from a specific file path and merges with
// environment variables. If the file doesn't exist, it creates one with
// default values.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := writeConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Example override: SAHAYAK_LLM_DEFAULT_PROVIDER
	v.SetEnvPrefix("SAHAYAK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.History.DBPath = expandPath(cfg.History.DBPath)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	cfg.applyEnvCredentials()

	return &cfg, nil
}

// applyEnvCredentials fills empty credentials from the conventional
// environment variables the upstream services document.
func (c *Config) applyEnvCredentials() {
	if c.APIs.OpenWeatherKey == "" {
		c.APIs.OpenWeatherKey = os.Getenv("OPENWEATHER_API_KEY")
	}
	if c.APIs.DataGovKey == "" {
		c.APIs.DataGovKey = os.Getenv("DATA_GOV_API_KEY")
	}
	if c.APIs.GoogleKey == "" {
		c.APIs.GoogleKey = os.Getenv("GOOGLE_API_KEY")
	}
	if c.APIs.GoogleCSEID == "" {
		c.APIs.GoogleCSEID = os.Getenv("GOOGLE_CSE_ID")
	}

	// The Gemini provider reuses the Google API key when none is set explicitly.
	if p, ok := c.LLM.Providers["gemini"]; ok && p.APIKey == "" {
		p.APIKey = os.Getenv("GOOGLE_API_KEY")
		c.LLM.Providers["gemini"] = p
	}
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return writeConfigFile(path, c)
}

// GetDataDir returns the Sahayak data directory path (~/.sahayak).
func (c *Config) GetDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".sahayak")
}

// EnsureDirectories creates all directories needed at runtime.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.GetDataDir(),
		filepath.Dir(c.Logging.File),
		filepath.Dir(c.History.DBPath),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// AdapterTimeout returns the HTTP timeout for tool adapter calls.
func (c *Config) AdapterTimeout() time.Duration {
	if c.APIs.TimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.APIs.TimeoutSec) * time.Second
}

// Validate checks the configuration for common errors and inconsistencies.
func (c *Config) Validate() error {
	if c.LLM.DefaultProvider == "" {
		return fmt.Errorf("llm.default_provider cannot be empty")
	}

	if _, exists := c.LLM.Providers[c.LLM.DefaultProvider]; !exists {
		return fmt.Errorf("default provider '%s' not found in providers map", c.LLM.DefaultProvider)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	if c.Offline.SimilarityThreshold < 0 || c.Offline.SimilarityThreshold > 1 {
		return fmt.Errorf("offline.similarity_threshold must be in [0,1]")
	}

	return nil
}

// writeConfigFile writes a Config struct to a YAML file.
// Uses gopkg.in/yaml.v3 directly to ensure proper tag-based serialization.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
