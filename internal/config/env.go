package config

import (
	"log"
	"os"
	"strconv"
)

// applyEnvOverrides overrides file settings with GITCHAT_* variables.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Provider, "GITCHAT_PROVIDER")
	setString(&cfg.ModelName, "GITCHAT_MODEL_NAME")
	setString(&cfg.Endpoint, "GITCHAT_ENDPOINT")
	setString(&cfg.APIKey, "GITCHAT_API_KEY")
	setString(&cfg.APIVersion, "GITCHAT_API_VERSION")

	setString(&cfg.EmbeddingModel, "GITCHAT_EMBEDDING_MODEL")
	setString(&cfg.EmbeddingProvider, "GITCHAT_EMBEDDING_PROVIDER")
	setString(&cfg.EmbeddingEndpoint, "GITCHAT_EMBEDDING_ENDPOINT")
	setString(&cfg.EmbeddingAPIKey, "GITCHAT_EMBEDDING_API_KEY")
	setInt(&cfg.EmbeddingDimensions, "GITCHAT_EMBEDDING_DIMENSIONS")

	setString(&cfg.GitHub.Username, "GITCHAT_GITHUB_USERNAME")
	setString(&cfg.GitHub.Token, "GITCHAT_GITHUB_TOKEN")
	setString(&cfg.GitHub.APIURL, "GITCHAT_GITHUB_API_URL")

	setString(&cfg.Index.DBPath, "GITCHAT_INDEX_DB_PATH")
	setString(&cfg.Index.Chunking, "GITCHAT_INDEX_CHUNKING")
	setString(&cfg.Index.Mode, "GITCHAT_INDEX_MODE")
	setBool(&cfg.Index.Hybrid, "GITCHAT_INDEX_HYBRID")
	setInt(&cfg.Index.TopK, "GITCHAT_INDEX_TOP_K")
	setBool(&cfg.Index.Watch, "GITCHAT_INDEX_WATCH")
	setInt(&cfg.Index.EmbedConcurrency, "GITCHAT_INDEX_EMBED_CONCURRENCY")
	if v := os.Getenv("GITCHAT_INDEX_EMBED_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Index.EmbedRPS = f
		} else {
			log.Printf("⚠️  Ignoring GITCHAT_INDEX_EMBED_RPS=%q: %v", v, err)
		}
	}

	setBool(&cfg.Chat.Stream, "GITCHAT_CHAT_STREAM")
	setBool(&cfg.Chat.Verbose, "GITCHAT_CHAT_VERBOSE")

	setString(&cfg.Git.Remote, "GITCHAT_GIT_REMOTE")
	setString(&cfg.Git.Branch, "GITCHAT_GIT_BRANCH")
	setBool(&cfg.Git.CheckToken, "GITCHAT_GIT_CHECK_TOKEN")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("⚠️  Ignoring %s=%q: %v", key, v, err)
		return
	}
	*dst = n
}

func setBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("⚠️  Ignoring %s=%q: %v", key, v, err)
		return
	}
	*dst = b
}
