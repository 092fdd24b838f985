package indexer

import (
	"context"
	"strings"
	"testing"
)

func TestRetriever_EmptyCollection(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	embedder := newMockEmbedder(testVocab...)

	retriever := NewRetriever(db, nil, embedder, "", 0)
	results, err := retriever.Retrieve(ctx, "what does Add do?")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Retrieve() on missing collection = %d results, want 0", len(results))
	}
	if embedder.Calls() != 0 {
		t.Errorf("query was embedded %d times for an empty index", embedder.Calls())
	}
}

func TestRetriever_TwoMethodFile(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	embedder := newMockEmbedder(testVocab...)

	ingester := newTestIngester(t, db, nil, embedder, ModeReplace)
	if _, err := ingester.Ingest(ctx, []SourceFile{{Path: "/repo/Calc.cs", Content: twoMethodSource}}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	keys, _ := db.Keys(ctx, DefaultCollection)
	if strings.Join(keys, ",") != "chunk-0,chunk-1" {
		t.Fatalf("Keys() = %v, want [chunk-0 chunk-1]", keys)
	}

	retriever := NewRetriever(db, nil, embedder, DefaultCollection, DefaultTopK)
	results, err := retriever.Retrieve(ctx, "how is the report title built?")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Retrieve() returned %d results, want 2", len(results))
	}
	if results[0].Key != "chunk-1" {
		t.Errorf("top result = %s, want chunk-1 (FormatReport)", results[0].Key)
	}
	if !strings.Contains(results[0].Content, "FormatReport") {
		t.Errorf("top result content = %q", results[0].Content)
	}
	if results[0].FilePath != "/repo/Calc.cs" {
		t.Errorf("top result path = %q", results[0].FilePath)
	}
}

func TestRetriever_TopKLimit(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	embedder := newMockEmbedder(testVocab...)
	ingester := newTestIngester(t, db, nil, embedder, ModeReplace)

	var files []SourceFile
	for _, word := range []string{"add", "int", "return", "report", "title", "string", "format"} {
		files = append(files, SourceFile{Path: "/repo/" + word + ".txt", Content: word + " public"})
	}
	if _, err := ingester.Ingest(ctx, files); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	results, err := NewRetriever(db, nil, embedder, DefaultCollection, 0).Retrieve(ctx, "public")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != DefaultTopK {
		t.Errorf("Retrieve() returned %d results, want %d", len(results), DefaultTopK)
	}
}

func TestRetriever_HybridMerge(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	bm25, err := NewMemBM25Index()
	if err != nil {
		t.Fatalf("NewMemBM25Index() error = %v", err)
	}
	t.Cleanup(func() { bm25.Close() })

	embedder := newMockEmbedder(testVocab...)
	ingester := newTestIngester(t, db, bm25, embedder, ModeReplace)
	if _, err := ingester.Ingest(ctx, []SourceFile{{Path: "/repo/Calc.cs", Content: twoMethodSource}}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	kw, err := bm25.Search("FormatReport title", DefaultCollection, 5)
	if err != nil {
		t.Fatalf("BM25 Search() error = %v", err)
	}
	if len(kw) == 0 || kw[0].Key != "chunk-1" {
		t.Fatalf("BM25 Search() = %+v, want chunk-1 first", kw)
	}

	results, err := NewRetriever(db, bm25, embedder, DefaultCollection, 5).Retrieve(ctx, "report title")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) == 0 || results[0].Key != "chunk-1" {
		t.Fatalf("Retrieve() = %+v, want chunk-1 first", results)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Error("merged results not sorted by fused score")
		}
	}

	// Replace clears the keyword index for the collection too.
	if _, err := ingester.Ingest(ctx, nil); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	kw, err = bm25.Search("title", DefaultCollection, 5)
	if err != nil {
		t.Fatalf("BM25 Search() error = %v", err)
	}
	if len(kw) != 0 {
		t.Errorf("BM25 Search() after clear = %d hits, want 0", len(kw))
	}
}
