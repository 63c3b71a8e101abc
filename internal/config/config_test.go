package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "gemini", cfg.LLM.DefaultProvider)
	assert.Equal(t, "gemini-1.5-flash", cfg.LLM.Providers["gemini"].Model)
	assert.Equal(t, "llama3.2", cfg.LLM.Providers["ollama"].Model)
	assert.Equal(t, 10, cfg.APIs.TimeoutSec)
	assert.Equal(t, "nomic-embed-text", cfg.Offline.EmbeddingModel)
	assert.InDelta(t, 0.3, cfg.Offline.SimilarityThreshold, 1e-9)
	assert.NotEmpty(t, cfg.History.DBPath)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromPathCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.DefaultProvider)

	// A default file must now exist on disk.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestLoadFromPathReadsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `llm:
  default_provider: ollama
  providers:
    ollama:
      endpoint: http://127.0.0.1:11434
      model: llama3.2
apis:
  timeout_sec: 25
offline:
  similarity_threshold: 0.5
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.LLM.DefaultProvider)
	assert.Equal(t, 25, cfg.APIs.TimeoutSec)
	assert.InDelta(t, 0.5, cfg.Offline.SimilarityThreshold, 1e-9)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 25*time.Second, cfg.AdapterTimeout())
}

func TestApplyEnvCredentials(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "ow-key")
	t.Setenv("DATA_GOV_API_KEY", "dg-key")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("GOOGLE_CSE_ID", "cse-id")

	cfg := Default()
	cfg.applyEnvCredentials()

	assert.Equal(t, "ow-key", cfg.APIs.OpenWeatherKey)
	assert.Equal(t, "dg-key", cfg.APIs.DataGovKey)
	assert.Equal(t, "g-key", cfg.APIs.GoogleKey)
	assert.Equal(t, "cse-id", cfg.APIs.GoogleCSEID)
	assert.Equal(t, "g-key", cfg.LLM.Providers["gemini"].APIKey)
}

func TestApplyEnvCredentialsDoesNotOverride(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "from-env")

	cfg := Default()
	cfg.APIs.OpenWeatherKey = "from-file"
	cfg.applyEnvCredentials()

	assert.Equal(t, "from-file", cfg.APIs.OpenWeatherKey)
}

func TestSaveToPathRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.APIs.TimeoutSec = 42
	require.NoError(t, cfg.SaveToPath(path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.APIs.TimeoutSec)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.LLM.DefaultProvider = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.LLM.DefaultProvider = "missing"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Logging.Level = "chatty"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Offline.SimilarityThreshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestAdapterTimeoutDefault(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 10*time.Second, cfg.AdapterTimeout())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".sahayak"), expandPath("~/.sahayak"))
	assert.Equal(t, "/absolute/path", expandPath("/absolute/path"))
}
