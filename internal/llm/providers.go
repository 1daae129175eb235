package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/ollama/ollama/api"

	"destination_assistant/internal/config"
)

var defaultBaseURLs = map[string]string{
	config.ProviderGroq:   "https://api.groq.com/openai/v1",
	config.ProviderOllama: "http://localhost:11434",
}

var defaultModels = map[string]string{
	config.ProviderGroq:     "llama-3.3-70b-versatile",
	config.ProviderOpenAI:   "gpt-4o-mini",
	config.ProviderOllama:   "llama3.1",
	config.ProviderDeepSeek: "deepseek-chat",
	config.ProviderGemini:   "gemini-2.0-flash",
}

// ApplyDefaults fills BaseURL and Model from the provider when unset.
func ApplyDefaults(cfg *config.LLMConfig) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURLs[cfg.Provider]
	}
	if cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Provider]
	}
}

// NewChatModel builds the eino chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	ApplyDefaults(&cfg)
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required for provider %q", cfg.Provider)
	}

	maxTokens := cfg.MaxTokens
	temperature := cfg.Temperature

	switch cfg.Provider {
	case config.ProviderGroq, config.ProviderOpenAI:
		m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating chat model: %w", err)
		}
		return m, nil

	case config.ProviderOllama:
		m, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Options: &api.Options{
				Temperature: temperature,
				NumPredict:  maxTokens,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("error creating ollama model: %w", err)
		}
		return m, nil

	case config.ProviderDeepSeek:
		m, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating deepseek model: %w", err)
		}
		return m, nil

	case config.ProviderArk:
		m, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating ark model: %w", err)
		}
		return m, nil

	case config.ProviderGemini:
		return NewGeminiChatModel(ctx, cfg.APIKey, cfg.Model, temperature, maxTokens)
	}

	return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.Provider)
}

// New builds a Client for cfg.
func New(ctx context.Context, cfg config.LLMConfig) (*Client, error) {
	m, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(m, cfg.Provider, Options{
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}), nil
}
