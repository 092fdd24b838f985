package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validTOML = `
model_name = "gpt-4o"
endpoint = "https://example.openai.azure.com"
api_key = "secret"
embedding_model = "text-embedding-3-large"

[github]
username = "octocat"
token = "ghp_token"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GITCHAT_PROVIDER", "GITCHAT_MODEL_NAME", "GITCHAT_ENDPOINT", "GITCHAT_API_KEY",
		"GITCHAT_EMBEDDING_MODEL", "GITCHAT_GITHUB_USERNAME", "GITCHAT_GITHUB_TOKEN",
		"GITCHAT_INDEX_DB_PATH", "GITCHAT_INDEX_MODE", "GITCHAT_INDEX_HYBRID", "GITCHAT_INDEX_TOP_K",
		"GITCHAT_CHAT_STREAM",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_FileWithDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := NewManagerWithPath(writeConfig(t, validTOML)).Load()
	require.NoError(t, err)

	assert.Equal(t, "azure", cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.ModelName)
	assert.Equal(t, "octocat", cfg.GitHub.Username)
	assert.Equal(t, "code_docs", cfg.Index.Collection)
	assert.Equal(t, "replace", cfg.Index.Mode)
	assert.Equal(t, 5, cfg.Index.TopK)
	assert.Equal(t, 3072, cfg.EmbeddingDimensions)
	assert.Equal(t, 8000, cfg.Chat.MaxHistoryTokens)
	assert.Equal(t, 5, cfg.Chat.MaxToolRounds)
	assert.Equal(t, "ChatBot", cfg.Git.AuthorName)
	assert.Equal(t, "chatbot@example.com", cfg.Git.AuthorEmail)
	assert.True(t, filepath.IsAbs(cfg.Index.DBPath))
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		drop    string
		wantErr string
	}{
		{"model", `model_name = "gpt-4o"`, "model_name not found"},
		{"endpoint", `endpoint = "https://example.openai.azure.com"`, "endpoint not found"},
		{"api key", `api_key = "secret"`, "api_key not found"},
		{"embedding model", `embedding_model = "text-embedding-3-large"`, "embedding_model not found"},
		{"github user", `username = "octocat"`, "github.username not found"},
		{"github token", `token = "ghp_token"`, "github.token not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			content := strings.Replace(validTOML, tt.drop, "", 1)
			_, err := NewManagerWithPath(writeConfig(t, content)).Load()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLoad_NoFileNoEnv(t *testing.T) {
	clearEnv(t)
	_, err := NewManagerWithPath(filepath.Join(t.TempDir(), "missing.toml")).Load()
	require.Error(t, err)
	assert.Equal(t, "model_name not found", err.Error())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITCHAT_PROVIDER", "OpenAI")
	t.Setenv("GITCHAT_API_KEY", "from-env")
	t.Setenv("GITCHAT_GITHUB_TOKEN", "env-token")
	t.Setenv("GITCHAT_INDEX_MODE", "append")
	t.Setenv("GITCHAT_INDEX_HYBRID", "true")
	t.Setenv("GITCHAT_INDEX_TOP_K", "not-a-number")

	cfg, err := NewManagerWithPath(writeConfig(t, validTOML)).Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, "env-token", cfg.GitHub.Token)
	assert.Equal(t, "append", cfg.Index.Mode)
	assert.True(t, cfg.Index.Hybrid)
	assert.Equal(t, 5, cfg.Index.TopK, "invalid override is ignored")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		extra   string
		wantErr string
	}{
		{"provider", `provider = "palm"`, "provider must be one of"},
		{"mode", "[index]\nmode = \"merge\"", "index.mode must be one of: replace, append"},
		{"stride", "[index]\nwindow_tokens = 100\nwindow_stride = 200", "index.window_stride must be less than"},
		{"email", "[git]\nauthor_email = \"nope\"", "git.author_email is invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			content := tt.extra + "\n" + validTOML
			if tt.name != "provider" {
				content = validTOML + "\n" + tt.extra
			}
			_, err := NewManagerWithPath(writeConfig(t, content)).Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_BadTOML(t *testing.T) {
	clearEnv(t)
	_, err := NewManagerWithPath(writeConfig(t, "model_name = ")).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestSaveAndExists(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	m := NewManagerWithPath(path)
	assert.False(t, m.Exists())

	cfg, err := NewManagerWithPath(writeConfig(t, validTOML)).Load()
	require.NoError(t, err)
	require.NoError(t, m.Save(cfg))
	assert.True(t, m.Exists())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEmbedding_FallsBackToChatSettings(t *testing.T) {
	cfg := Default()
	cfg.Provider = "azure"
	cfg.Endpoint = "https://example.openai.azure.com"
	cfg.APIKey = "k"
	cfg.EmbeddingModel = "emb"

	e := cfg.Embedding()
	assert.Equal(t, "azure", e.Provider)
	assert.Equal(t, "https://example.openai.azure.com", e.Endpoint)
	assert.Equal(t, "k", e.APIKey)
	assert.Equal(t, 3072, e.Dimension)

	cfg.Provider = "anthropic"
	cfg.EmbeddingAPIKey = "openai-key"
	e = cfg.Embedding()
	assert.Equal(t, "openai", e.Provider, "anthropic has no embeddings API")
	assert.Empty(t, e.Endpoint)
	assert.Equal(t, "openai-key", e.APIKey)
}
