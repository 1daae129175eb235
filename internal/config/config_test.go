package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearKeys(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LLM_API_KEY", "API_KEY", "VOICE_API_KEY", "LLM_PROVIDER", "LLM_MODEL", "REDIS_URL", "SESSION_REDIS_URL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearKeys(t)
	t.Setenv("LLM_API_KEY", "test-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ProviderGroq, cfg.LLM.Provider)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, float32(0.7), cfg.LLM.Temperature)
	assert.Equal(t, 1000, cfg.LLM.MaxTokens)
	assert.Equal(t, 5, cfg.LLM.HistoryWindow)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, DefaultKeywords, cfg.Extractor.Keywords)
	assert.Equal(t, 45*time.Second, cfg.HTTP.TurnTimeout)
	assert.Equal(t, 300.0, cfg.Voice.EnergyThreshold)
}

func TestLoad_FailsClosedWithoutKey(t *testing.T) {
	clearKeys(t)

	_, err := Load("")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoad_APIKeyAlias(t *testing.T) {
	clearKeys(t)
	t.Setenv("API_KEY", "alias-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "alias-key", cfg.LLM.APIKey)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearKeys(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
llm:
  provider: openai
  model: gpt-4o-mini
  api_key: yaml-key
  timeout: 10s
  history_window: 3
extractor:
  keywords: [ski, wine]
  category_tags: true
http:
  addr: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("LLM_MODEL", "gpt-4o")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model, "env overrides yaml")
	assert.Equal(t, "yaml-key", cfg.LLM.APIKey)
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 3, cfg.LLM.HistoryWindow)
	assert.Equal(t, []string{"ski", "wine"}, cfg.Extractor.Keywords)
	assert.True(t, cfg.Extractor.CategoryTags)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestLoad_BadYAML(t *testing.T) {
	clearKeys(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
		anyErr  bool
	}{
		{name: "hosted provider without key", mutate: func(c *Config) {}, wantErr: ErrMissingAPIKey},
		{name: "ollama needs no key", mutate: func(c *Config) { c.LLM.Provider = "Ollama" }},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "acme"; c.LLM.APIKey = "k" }, wantErr: ErrUnknownProvider},
		{name: "negative retries", mutate: func(c *Config) { c.LLM.APIKey = "k"; c.LLM.MaxRetries = -1 }, anyErr: true},
		{name: "redis without url", mutate: func(c *Config) { c.LLM.APIKey = "k"; c.Session.Store = "redis" }, anyErr: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.LLM.APIKey = "k"; c.Handoff.Sink = "postgres" }, anyErr: true},
		{name: "valid", mutate: func(c *Config) { c.LLM.APIKey = "k" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_VoiceKeyFallsBackToLLMKey(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "shared"
	cfg.Voice.Enabled = true

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "shared", cfg.Voice.APIKey)
}
