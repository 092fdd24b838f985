package indexer

import (
	"context"
	"fmt"
	"log"
	"sort"
)

// rrfOffset is the k constant of reciprocal rank fusion.
const rrfOffset = 60.0

// Retriever finds the chunks most relevant to a question.
type Retriever struct {
	db         *DB
	bm25       *BM25Index // nil disables hybrid search
	embedder   Embedder
	collection string
	topK       int
}

// NewRetriever creates a retriever over a collection. bm25 may be nil.
func NewRetriever(db *DB, bm25 *BM25Index, embedder Embedder, collection string, topK int) *Retriever {
	if collection == "" {
		collection = DefaultCollection
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{db: db, bm25: bm25, embedder: embedder, collection: collection, topK: topK}
}

// Retrieve embeds the query and returns up to K results, best first.
// An empty or missing collection yields no results.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]SearchResult, error) {
	count, err := r.db.Count(ctx, r.collection)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	vecResults, err := r.db.Search(ctx, r.collection, vector, r.topK)
	if err != nil {
		return nil, err
	}
	if r.bm25 == nil {
		return vecResults, nil
	}

	bm25Results, err := r.bm25.Search(query, r.collection, r.topK)
	if err != nil {
		log.Printf("⚠️  Keyword search failed, using vector results only: %v", err)
		return vecResults, nil
	}
	return r.merge(ctx, vecResults, bm25Results)
}

// merge combines both rankings with reciprocal rank fusion.
func (r *Retriever) merge(ctx context.Context, vecResults []SearchResult, bm25Results []BM25Result) ([]SearchResult, error) {
	scores := make(map[string]float64)
	byKey := make(map[string]SearchResult)
	var order []string

	for i, res := range vecResults {
		if _, seen := scores[res.Key]; !seen {
			order = append(order, res.Key)
		}
		scores[res.Key] += 1.0 / (rrfOffset + float64(i+1))
		byKey[res.Key] = res
	}
	for i, res := range bm25Results {
		if _, seen := scores[res.Key]; !seen {
			order = append(order, res.Key)
		}
		scores[res.Key] += 1.0 / (rrfOffset + float64(i+1))
	}

	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	if len(order) > r.topK {
		order = order[:r.topK]
	}

	merged := make([]SearchResult, 0, len(order))
	for _, key := range order {
		res, ok := byKey[key]
		if !ok {
			rec, err := r.db.Get(ctx, r.collection, key)
			if err != nil {
				log.Printf("⚠️  Failed to fetch chunk %s: %v", key, err)
				continue
			}
			res = SearchResult{Key: rec.Key, FilePath: rec.FilePath, Content: rec.Content}
		}
		res.Score = scores[key]
		merged = append(merged, res)
	}
	return merged, nil
}
