package indexer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Pool defaults.
const (
	DefaultEmbedConcurrency  = 4
	DefaultRequestsPerSecond = 5.0
)

// PoolConfig bounds the embedding fan-out.
type PoolConfig struct {
	// Concurrency is the maximum number of in-flight requests. Default: 4
	Concurrency int
	// RequestsPerSecond caps the request rate; <= 0 uses the default.
	RequestsPerSecond float64
}

// EmbedJob is one chunk waiting for its embedding. ID indexes the results.
type EmbedJob struct {
	ID    int
	Chunk Chunk
}

// EmbedResult is the outcome of one job.
type EmbedResult struct {
	Vector []float32
	Err    error
}

// EmbedChunks embeds every job with at most Concurrency requests in flight and
// at most RequestsPerSecond requests started per second. Results are indexed by
// job ID; one failed job never cancels the others.
func EmbedChunks(ctx context.Context, embedder Embedder, jobs []EmbedJob, config PoolConfig) []EmbedResult {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultEmbedConcurrency
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = DefaultRequestsPerSecond
	}

	results := make([]EmbedResult, len(jobs))
	limiter := rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Concurrency)

	var g errgroup.Group
	g.SetLimit(config.Concurrency)

	for _, job := range jobs {
		if job.ID < 0 || job.ID >= len(results) {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			results[job.ID] = EmbedResult{Err: fmt.Errorf("embedding not scheduled: %w", err)}
			continue
		}

		g.Go(func() error {
			start := time.Now()
			vector, err := embedder.Embed(ctx, job.Chunk.Text)
			if err != nil {
				results[job.ID] = EmbedResult{Err: fmt.Errorf("failed to embed chunk %d of %s after %v: %w", job.Chunk.Ordinal, job.Chunk.FilePath, time.Since(start).Round(time.Millisecond), err)}
				return nil
			}
			results[job.ID] = EmbedResult{Vector: vector}
			return nil
		})
	}

	_ = g.Wait()
	return results
}
