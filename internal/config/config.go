// Package config loads assistant settings: defaults, then config.yaml, then environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingAPIKey   = errors.New("llm api key is required (set LLM_API_KEY)")
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// Supported LLM providers
const (
	ProviderGroq     = "groq"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
	ProviderDeepSeek = "deepseek"
	ProviderArk      = "ark"
	ProviderGemini   = "gemini"
)

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json, console
	Output     string `yaml:"output"` // stdout, stderr, file
	FilePath   string `yaml:"file_path" split_words:"true"`
	TimeFormat string `yaml:"time_format" split_words:"true"`
}

// LLMConfig selects the chat provider. BaseURL and Model fall back to per-provider defaults when empty.
type LLMConfig struct {
	Provider      string        `yaml:"provider"`
	BaseURL       string        `yaml:"base_url" split_words:"true"`
	Model         string        `yaml:"model"`
	APIKey        string        `yaml:"api_key" envconfig:"API_KEY"`
	Temperature   float32       `yaml:"temperature"`
	MaxTokens     int           `yaml:"max_tokens" split_words:"true"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries" split_words:"true"`
	RetryDelay    time.Duration `yaml:"retry_delay" split_words:"true"`
	HistoryWindow int           `yaml:"history_window" split_words:"true"`
}

type VoiceConfig struct {
	Enabled              bool          `yaml:"enabled"`
	Language             string        `yaml:"language"`
	ListenTimeout        time.Duration `yaml:"listen_timeout" split_words:"true"`
	RecorderCommand      []string      `yaml:"recorder_command" split_words:"true"`
	EnergyThreshold      float64       `yaml:"energy_threshold" split_words:"true"`
	SynthesizerCommand   []string      `yaml:"synthesizer_command" split_words:"true"`
	SpeechRate           int           `yaml:"speech_rate" split_words:"true"`
	TranscriptionBaseURL string        `yaml:"transcription_base_url" split_words:"true"`
	TranscriptionModel   string        `yaml:"transcription_model" split_words:"true"`
	APIKey               string        `yaml:"api_key" envconfig:"API_KEY"`
}

type ExtractorConfig struct {
	Keywords     []string `yaml:"keywords"`
	CategoryTags bool     `yaml:"category_tags" split_words:"true"`
}

type SessionConfig struct {
	Store    string        `yaml:"store"` // memory, redis
	RedisURL string        `yaml:"redis_url" envconfig:"REDIS_URL"`
	TTL      time.Duration `yaml:"ttl"`
}

type HTTPConfig struct {
	Addr        string        `yaml:"addr"`
	TurnTimeout time.Duration `yaml:"turn_timeout" split_words:"true"`
}

type HandoffConfig struct {
	Sink        string `yaml:"sink"` // stdout, file, postgres
	Path        string `yaml:"path"`
	DatabaseURL string `yaml:"database_url" envconfig:"DATABASE_URL"`
}

// Config holds all configuration for the assistant and its surfaces
type Config struct {
	Log       LogConfig       `yaml:"log"`
	LLM       LLMConfig       `yaml:"llm"`
	Voice     VoiceConfig     `yaml:"voice"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Session   SessionConfig   `yaml:"session"`
	HTTP      HTTPConfig      `yaml:"http"`
	Handoff   HandoffConfig   `yaml:"handoff"`
}

// DefaultKeywords is the interest vocabulary matched against user input.
var DefaultKeywords = []string{
	"beach", "mountain", "culture", "luxury", "adventure",
	"history", "food", "shopping", "nature", "relaxation",
}

// Default returns the built-in configuration. It carries no API key.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stderr",
			FilePath:   "logs/assistant.log",
			TimeFormat: "rfc3339",
		},
		LLM: LLMConfig{
			Provider:      ProviderGroq,
			Temperature:   0.7,
			MaxTokens:     1000,
			Timeout:       30 * time.Second,
			MaxRetries:    1,
			RetryDelay:    500 * time.Millisecond,
			HistoryWindow: 5,
		},
		Voice: VoiceConfig{
			Language:             "en-US",
			ListenTimeout:        5 * time.Second,
			RecorderCommand:      []string{"arecord", "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav"},
			EnergyThreshold:      300,
			SynthesizerCommand:   []string{"espeak-ng"},
			SpeechRate:           150,
			TranscriptionBaseURL: "https://api.groq.com/openai/v1",
			TranscriptionModel:   "whisper-large-v3",
		},
		Extractor: ExtractorConfig{
			Keywords: append([]string{}, DefaultKeywords...),
		},
		Session: SessionConfig{
			Store: "memory",
			TTL:   60 * time.Minute,
		},
		HTTP: HTTPConfig{
			Addr:        ":8080",
			TurnTimeout: 45 * time.Second,
		},
		Handoff: HandoffConfig{
			Sink: "file",
			Path: "data/handoffs.jsonl",
		},
	}
}

// Load reads the YAML file at path (a missing file is not an error), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing YAML %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate refuses configurations the assistant cannot run with. There is no
// fallback credential: a hosted provider without a key is an error.
func (c *Config) Validate() error {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	switch c.LLM.Provider {
	case ProviderGroq, ProviderOpenAI, ProviderDeepSeek, ProviderArk, ProviderGemini:
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			return ErrMissingAPIKey
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.LLM.Provider)
	}

	if c.LLM.MaxRetries < 0 {
		return errors.New("llm max_retries cannot be negative")
	}
	if c.LLM.HistoryWindow <= 0 {
		return errors.New("llm history_window must be positive")
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("llm timeout must be positive")
	}

	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Session.RedisURL == "" {
			return errors.New("session store redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}

	switch c.Handoff.Sink {
	case "stdout", "file":
	case "postgres":
		if c.Handoff.DatabaseURL == "" {
			return errors.New("handoff sink postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown handoff sink %q", c.Handoff.Sink)
	}

	if c.Voice.Enabled && c.Voice.APIKey == "" {
		c.Voice.APIKey = c.LLM.APIKey
	}
	return nil
}
