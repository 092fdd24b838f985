// Package config loads gitchat settings from a TOML file with environment
// overrides and validates the required ones.
package config

import (
	"github.com/ChamsBouzaiene/gitchat/internal/engine"
	"github.com/ChamsBouzaiene/gitchat/internal/gitops"
	"github.com/ChamsBouzaiene/gitchat/internal/indexer"
)

// Config holds every setting of the assistant.
type Config struct {
	Provider   string `toml:"provider" validate:"oneof=azure openai anthropic ollama groq deepseek"`
	ModelName  string `toml:"model_name" validate:"required"`
	Endpoint   string `toml:"endpoint" validate:"required"`
	APIKey     string `toml:"api_key" validate:"required"`
	APIVersion string `toml:"api_version,omitempty"` // Azure only

	EmbeddingModel      string `toml:"embedding_model" validate:"required"`
	EmbeddingProvider   string `toml:"embedding_provider,omitempty"` // Default: provider, or openai when provider has no embeddings API
	EmbeddingEndpoint   string `toml:"embedding_endpoint,omitempty"` // Default: endpoint
	EmbeddingAPIKey     string `toml:"embedding_api_key,omitempty"`  // Default: api_key
	EmbeddingDimensions int    `toml:"embedding_dimensions" validate:"gte=0"`

	GitHub GitHubConfig `toml:"github"`
	Index  IndexConfig  `toml:"index"`
	Chat   ChatConfig   `toml:"chat"`
	Git    GitConfig    `toml:"git"`
}

// GitHubConfig holds the credentials used for push and pull.
type GitHubConfig struct {
	Username string `toml:"username" validate:"required"`
	Token    string `toml:"token" validate:"required"`
	APIURL   string `toml:"api_url,omitempty"` // GitHub Enterprise API; default api.github.com
}

// IndexConfig configures codebase ingestion and retrieval.
type IndexConfig struct {
	DBPath           string  `toml:"db_path"` // Default: <user cache dir>/gitchat/index.db
	Collection       string  `toml:"collection" validate:"required"`
	Chunking         string  `toml:"chunking" validate:"oneof=boundary window"`
	BoundaryPattern  string  `toml:"boundary_pattern,omitempty"`
	WindowTokens     int     `toml:"window_tokens" validate:"gt=0"`
	WindowStride     int     `toml:"window_stride" validate:"gt=0,ltfield=WindowTokens"`
	Mode             string  `toml:"mode" validate:"oneof=replace append"`
	Hybrid           bool    `toml:"hybrid"`
	TopK             int     `toml:"top_k" validate:"gt=0"`
	RespectGitignore bool    `toml:"respect_gitignore"`
	MaxFileBytes     int64   `toml:"max_file_bytes" validate:"gt=0"`
	EmbedConcurrency int     `toml:"embed_concurrency" validate:"gt=0"`
	EmbedRPS         float64 `toml:"embed_rps" validate:"gt=0"`
	Watch            bool    `toml:"watch"`
}

// ChatConfig configures the chat session.
type ChatConfig struct {
	Stream           bool    `toml:"stream"`
	Temperature      float32 `toml:"temperature" validate:"gte=0,lte=2"`
	MaxOutputTokens  int     `toml:"max_output_tokens" validate:"gte=0"`
	MaxHistoryTokens int     `toml:"max_history_tokens" validate:"gt=0"`
	MaxHistoryTurns  int     `toml:"max_history_turns" validate:"gt=0"`
	MaxToolRounds    int     `toml:"max_tool_rounds" validate:"gt=0"`
	Verbose          bool    `toml:"verbose"` // Log every model call and tool result
}

// GitConfig configures commits, push and pull.
type GitConfig struct {
	AuthorName  string `toml:"author_name" validate:"required"`
	AuthorEmail string `toml:"author_email" validate:"required,email"`
	Remote      string `toml:"remote" validate:"required"`
	Branch      string `toml:"branch,omitempty"` // Default: current branch
	CheckToken  bool   `toml:"check_token"`
	CommitCount int    `toml:"commit_count" validate:"gt=0"`
}

// Default returns a Config with every optional setting filled in.
func Default() *Config {
	return &Config{
		Provider:            "azure",
		APIVersion:          "2024-06-01",
		EmbeddingDimensions: indexer.DefaultEmbeddingDimension,
		Index: IndexConfig{
			Collection:       indexer.DefaultCollection,
			Chunking:         indexer.ChunkingBoundary,
			WindowTokens:     indexer.DefaultWindowTokens,
			WindowStride:     indexer.DefaultWindowStride,
			Mode:             indexer.ModeReplace,
			TopK:             indexer.DefaultTopK,
			MaxFileBytes:     indexer.DefaultMaxFileBytes,
			EmbedConcurrency: indexer.DefaultEmbedConcurrency,
			EmbedRPS:         indexer.DefaultRequestsPerSecond,
			Watch:            true,
		},
		Chat: ChatConfig{
			Stream:           true,
			MaxHistoryTokens: engine.DefaultHistoryMaxTokens,
			MaxHistoryTurns:  engine.DefaultHistoryMaxTurns,
			MaxToolRounds:    engine.DefaultMaxToolRounds,
		},
		Git: GitConfig{
			AuthorName:  gitops.DefaultSignature.Name,
			AuthorEmail: gitops.DefaultSignature.Email,
			Remote:      gitops.DefaultRemote,
			CheckToken:  true,
			CommitCount: 10,
		},
	}
}

// embeddingProviders are the providers with an OpenAI-style embeddings API.
var embeddingProviders = map[string]bool{"azure": true, "openai": true, "ollama": true}

// Embedding returns the embedder settings, falling back to the chat
// endpoint and key.
func (c *Config) Embedding() indexer.EmbedderConfig {
	provider := c.EmbeddingProvider
	if provider == "" {
		provider = c.Provider
		if !embeddingProviders[provider] {
			provider = "openai"
		}
	}
	endpoint := c.EmbeddingEndpoint
	if endpoint == "" && provider == c.Provider {
		endpoint = c.Endpoint
	}
	apiKey := c.EmbeddingAPIKey
	if apiKey == "" {
		apiKey = c.APIKey
	}
	return indexer.EmbedderConfig{
		Provider:  provider,
		APIKey:    apiKey,
		Endpoint:  endpoint,
		Model:     c.EmbeddingModel,
		Dimension: c.EmbeddingDimensions,
	}
}

// Signature returns the commit signature.
func (c *Config) Signature() gitops.Signature {
	return gitops.Signature{Name: c.Git.AuthorName, Email: c.Git.AuthorEmail}
}

// Credentials returns the GitHub credentials for push and pull.
func (c *Config) Credentials() gitops.Credentials {
	return gitops.Credentials{Username: c.GitHub.Username, Token: c.GitHub.Token}
}
