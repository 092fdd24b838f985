package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ChamsBouzaiene/gitchat/internal/assistant"
	"github.com/ChamsBouzaiene/gitchat/internal/codeqa"
	"github.com/ChamsBouzaiene/gitchat/internal/config"
	"github.com/ChamsBouzaiene/gitchat/internal/engine"
	"github.com/ChamsBouzaiene/gitchat/internal/gitops"
	"github.com/ChamsBouzaiene/gitchat/internal/indexer"
	"github.com/ChamsBouzaiene/gitchat/internal/providers"
)

// runtimeEnv holds the long-lived services behind the assistant.
type runtimeEnv struct {
	llm      engine.LLMClient
	db       *indexer.DB
	bm25     *indexer.BM25Index
	ingester *indexer.Ingester
	composer *codeqa.Composer
	tokens   *gitops.TokenChecker
}

func (r *runtimeEnv) Close() {
	if r.bm25 != nil {
		if err := r.bm25.Close(); err != nil {
			log.Printf("⚠️  Failed to close BM25 index: %v", err)
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			log.Printf("⚠️  Failed to close index database: %v", err)
		}
	}
}

func prepareRuntimeEnv(ctx context.Context, cfg *config.Config) (*runtimeEnv, error) {
	llm, err := providers.NewLLMClient(providers.Config{
		Provider:   cfg.Provider,
		APIKey:     cfg.APIKey,
		Endpoint:   cfg.Endpoint,
		APIVersion: cfg.APIVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	embedder, err := indexer.NewEmbedder(cfg.Embedding())
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	chunker, err := newChunker(cfg.Index)
	if err != nil {
		return nil, err
	}

	env := &runtimeEnv{llm: llm}

	env.db, err = indexer.NewDB(ctx, cfg.Index.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	log.Printf("Index database: %s", cfg.Index.DBPath)

	if cfg.Index.Hybrid {
		env.bm25, err = indexer.NewBM25Index(cfg.Index.DBPath)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("failed to open BM25 index: %w", err)
		}
	}

	env.ingester = indexer.NewIngester(env.db, env.bm25, chunker, embedder, indexer.IngesterConfig{
		Collection: cfg.Index.Collection,
		Dimension:  cfg.EmbeddingDimensions,
		Mode:       cfg.Index.Mode,
		Walker: indexer.WalkerConfig{
			RespectGitignore: cfg.Index.RespectGitignore,
			MaxFileBytes:     cfg.Index.MaxFileBytes,
		},
		Pool: indexer.PoolConfig{
			Concurrency:       cfg.Index.EmbedConcurrency,
			RequestsPerSecond: cfg.Index.EmbedRPS,
		},
	})

	retriever := indexer.NewRetriever(env.db, env.bm25, embedder, cfg.Index.Collection, cfg.Index.TopK)
	env.composer = codeqa.NewComposer(retriever, llm, cfg.ModelName, chatOptions(cfg.Chat, false))

	if cfg.Git.CheckToken {
		env.tokens, err = gitops.NewTokenChecker(ctx, cfg.GitHub.Token, cfg.GitHub.APIURL)
		if err != nil {
			log.Printf("⚠️  GitHub token check disabled: %v", err)
			env.tokens = nil
		}
	}

	return env, nil
}

func (r *runtimeEnv) assistantOptions(cfg *config.Config, console *assistant.Console) assistant.Options {
	opts := assistant.Options{
		Console:       console,
		LLM:           r.llm,
		Model:         cfg.ModelName,
		Chat:          chatOptions(cfg.Chat, cfg.Chat.Stream),
		MaxToolRounds: cfg.Chat.MaxToolRounds,
		History: engine.HistoryConfig{
			MaxTokens: cfg.Chat.MaxHistoryTokens,
			MaxTurns:  cfg.Chat.MaxHistoryTurns,
			Model:     cfg.ModelName,
		},
		Ingester: r.ingester,
		Answerer: r.composer,
		Git: assistant.GitOptions{
			Signature: cfg.Signature(),
			Sync: gitops.SyncOptions{
				Remote:      cfg.Git.Remote,
				Branch:      cfg.Git.Branch,
				Credentials: cfg.Credentials(),
			},
			CommitCount: cfg.Git.CommitCount,
		},
	}
	if r.tokens != nil {
		opts.TokenChecker = r.tokens
	}
	if cfg.Index.Watch {
		opts.Watch = watchRepository
	}
	if cfg.Chat.Verbose {
		opts.Hooks = append(opts.Hooks, engine.LoggerHook{L: log.New(os.Stderr, "", log.LstdFlags)})
	}
	return opts
}

func chatOptions(c config.ChatConfig, stream bool) engine.ChatOptions {
	return engine.ChatOptions{
		Temperature:     c.Temperature,
		MaxOutputTokens: c.MaxOutputTokens,
		Stream:          stream,
	}
}

func newChunker(c config.IndexConfig) (indexer.Chunker, error) {
	if c.Chunking == indexer.ChunkingBoundary && c.BoundaryPattern != "" {
		chunker, err := indexer.NewBoundaryChunkerWithPattern(c.BoundaryPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid index.boundary_pattern: %w", err)
		}
		return chunker, nil
	}
	chunker, err := indexer.NewChunker(c.Chunking, indexer.WindowConfig{
		Size:   c.WindowTokens,
		Stride: c.WindowStride,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}
	return chunker, nil
}

// watchRepository reports changes under root, skipping the same paths the
// ingestion walker skips.
func watchRepository(root string, onChange func()) (func() error, error) {
	walker, err := indexer.NewWalker(root)
	if err != nil {
		return nil, err
	}
	watcher, err := indexer.NewFileWatcher(root, walker.Matcher())
	if err != nil {
		return nil, err
	}
	watcher.OnChange(func(paths []string) { onChange() })
	if err := watcher.Start(); err != nil {
		watcher.Stop()
		return nil, err
	}
	return watcher.Stop, nil
}
