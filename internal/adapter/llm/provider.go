package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"pdf-quiz/internal/config"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	GroqBaseURL      = "https://api.groq.com/openai/v1"
	DefaultGroqModel = "llama-3.1-70b-versatile"
	DefaultOpenAI    = "gpt-4o-mini"
	DefaultGemini    = "gemini-1.5-flash"
	DefaultOllama    = "llama3.1"
	DefaultOllamaURL = "http://localhost:11434"
)

// DefaultModel returns the model used when none is configured for provider.
func DefaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case config.ProviderGroq:
		return DefaultGroqModel
	case config.ProviderOpenAI:
		return DefaultOpenAI
	case config.ProviderGemini:
		return DefaultGemini
	case config.ProviderOllama:
		return DefaultOllama
	default:
		return ""
	}
}

// NewModel builds the chat model for the configured provider.
func NewModel(ctx context.Context, cfg config.LLMConfig) (llms.Model, error) {
	provider := strings.ToLower(cfg.Provider)
	model := cfg.Model
	if model == "" {
		model = DefaultModel(provider)
	}

	switch provider {
	case config.ProviderGroq, config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s API key cannot be empty", provider)
		}
		baseURL := cfg.BaseURL
		if baseURL == "" && provider == config.ProviderGroq {
			baseURL = GroqBaseURL
		}
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(model),
			openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		}
		if baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create LangchainGo OpenAI-compatible client for %s: %w", provider, err)
		}
		return client, nil

	case config.ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key cannot be empty")
		}
		client, err := googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create LangchainGo Gemini client: %w", err)
		}
		return client, nil

	case config.ProviderOllama:
		serverURL := cfg.BaseURL
		if serverURL == "" {
			serverURL = DefaultOllamaURL
		}
		client, err := ollama.New(
			ollama.WithModel(model),
			ollama.WithServerURL(serverURL),
			ollama.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create LangchainGo Ollama client: %w", err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}
