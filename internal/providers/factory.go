package providers

import (
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/gitchat/internal/engine"
)

// Config selects and authenticates a chat provider.
type Config struct {
	Provider   string // azure | openai | anthropic | ollama | groq | deepseek
	APIKey     string
	Endpoint   string // base URL; Azure resource endpoint for azure
	APIVersion string // Azure only
}

// compatibleBaseURLs are the default endpoints of OpenAI-compatible providers.
var compatibleBaseURLs = map[string]string{
	"deepseek": "https://api.deepseek.com/v1",
	"groq":     "https://api.groq.com/openai/v1",
	"ollama":   "http://localhost:11434/v1",
}

// SupportedProviders lists the provider names accepted by NewLLMClient.
var SupportedProviders = []string{"azure", "openai", "anthropic", "ollama", "groq", "deepseek"}

// NewLLMClient creates an engine.LLMClient for cfg.Provider. An empty
// provider means azure.
func NewLLMClient(cfg Config) (engine.LLMClient, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "azure"
	}

	switch provider {
	case "azure":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("endpoint is required for the azure provider")
		}
		client, err := NewAzureOpenAIClient(cfg.APIKey, cfg.Endpoint, cfg.APIVersion)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure OpenAI client: %w", err)
		}
		return client, nil

	case "openai":
		client, err := NewOpenAIClient(cfg.APIKey, cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		return client, nil

	case "anthropic":
		client, err := NewAnthropicClient(cfg.APIKey, cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create Anthropic client: %w", err)
		}
		return client, nil

	case "ollama", "groq", "deepseek":
		baseURL := cfg.Endpoint
		if baseURL == "" {
			baseURL = compatibleBaseURLs[provider]
		}
		apiKey := cfg.APIKey
		if apiKey == "" && provider == "ollama" {
			// Ollama ignores the key but the SDK sends one
			apiKey = "ollama"
		}
		client, err := NewOpenAIClient(apiKey, baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: %s)", cfg.Provider, strings.Join(SupportedProviders, ", "))
	}
}
