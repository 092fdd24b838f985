package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type slowEmbedder struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func (s *slowEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		cur := s.maxInFlight.Load()
		if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(s.delay)
	if strings.HasPrefix(text, "bad") {
		return nil, errors.New("boom")
	}
	return []float32{float32(len(text))}, nil
}

func (s *slowEmbedder) Dimension() int { return 1 }

func makeJobs(texts ...string) []EmbedJob {
	jobs := make([]EmbedJob, len(texts))
	for i, text := range texts {
		jobs[i] = EmbedJob{ID: i, Chunk: Chunk{FilePath: "f.txt", Ordinal: i, Text: text}}
	}
	return jobs
}

func TestEmbedChunks_BoundsConcurrency(t *testing.T) {
	embedder := &slowEmbedder{delay: 20 * time.Millisecond}
	var texts []string
	for i := 0; i < 12; i++ {
		texts = append(texts, fmt.Sprintf("chunk %d", i))
	}

	results := EmbedChunks(context.Background(), embedder, makeJobs(texts...), PoolConfig{Concurrency: 3, RequestsPerSecond: 1000})

	if len(results) != len(texts) {
		t.Fatalf("got %d results, want %d", len(results), len(texts))
	}
	if got := embedder.maxInFlight.Load(); got > 3 {
		t.Errorf("max in-flight requests = %d, want <= 3", got)
	}
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("result %d error = %v", i, r.Err)
		}
		if len(r.Vector) != 1 || r.Vector[0] != float32(len(texts[i])) {
			t.Errorf("result %d = %v, not matched to its job", i, r.Vector)
		}
	}
}

func TestEmbedChunks_FailuresAreIsolated(t *testing.T) {
	embedder := &slowEmbedder{}
	results := EmbedChunks(context.Background(), embedder, makeJobs("good one", "bad one", "good two"), PoolConfig{Concurrency: 2, RequestsPerSecond: 1000})

	if results[1].Err == nil {
		t.Error("expected error for failing job")
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("sibling jobs failed: %v, %v", results[0].Err, results[2].Err)
	}
}

func TestEmbedChunks_RateLimit(t *testing.T) {
	embedder := &slowEmbedder{}
	start := time.Now()
	// Burst equals concurrency, so 4 jobs at 1 worker and 20/s need ~150ms.
	EmbedChunks(context.Background(), embedder, makeJobs("a", "b", "c", "d"), PoolConfig{Concurrency: 1, RequestsPerSecond: 20})
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("4 requests at 20/s finished in %v, limiter not applied", elapsed)
	}
}

func TestEmbedChunks_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := EmbedChunks(ctx, &slowEmbedder{}, makeJobs("a", "b"), PoolConfig{})
	for i, r := range results {
		if r.Err == nil {
			t.Errorf("result %d expected error on cancelled context", i)
		}
	}
}
