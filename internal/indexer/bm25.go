package indexer

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// BM25Result represents a BM25 search result.
type BM25Result struct {
	Key      string
	Score    float64
	FilePath string
}

// BM25Index provides BM25 keyword search over chunk records.
type BM25Index struct {
	index bleve.Index
	path  string
}

// NewBM25Index creates or opens the keyword index stored next to dbPath.
// A corrupted index is deleted and recreated.
func NewBM25Index(dbPath string) (*BM25Index, error) {
	indexPath := dbPath + ".bleve"

	index, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create BM25 index: %w", err)
		}
		log.Println("📚 BM25 index created")
	} else if err != nil {
		log.Printf("⚠️  BM25 index appears corrupted (error: %v), recreating...", err)
		if index != nil {
			index.Close()
		}
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("failed to remove corrupted BM25 index: %w", err)
		}
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to recreate BM25 index: %w", err)
		}
		log.Println("✅ BM25 index recreated (corrupted index was deleted)")
	}

	return &BM25Index{index: index, path: indexPath}, nil
}

// NewMemBM25Index creates an in-memory keyword index.
func NewMemBM25Index() (*BM25Index, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory BM25 index: %w", err)
	}
	return &BM25Index{index: index}, nil
}

// buildIndexMapping creates the index mapping for chunk records.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	recordMapping := bleve.NewDocumentMapping()

	for _, name := range []string{"key", "collection", "file_path"} {
		field := bleve.NewTextFieldMapping()
		field.Analyzer = keyword.Name
		field.Store = true
		field.Index = true
		recordMapping.AddFieldMappingsAt(name, field)
	}

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = false
	contentField.Index = true
	recordMapping.AddFieldMappingsAt("content", contentField)

	indexMapping.DefaultMapping = recordMapping
	return indexMapping
}

func docID(collection, key string) string {
	return collection + "/" + key
}

// IndexRecord indexes a record of a collection.
func (b *BM25Index) IndexRecord(collection string, rec ChunkRecord) error {
	doc := map[string]interface{}{
		"key":        rec.Key,
		"collection": collection,
		"file_path":  rec.FilePath,
		"content":    rec.Content,
	}
	return b.index.Index(docID(collection, rec.Key), doc)
}

// DeleteKeys removes records of a collection from the index.
func (b *BM25Index) DeleteKeys(collection string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	batch := b.index.NewBatch()
	for _, key := range keys {
		batch.Delete(docID(collection, key))
	}
	return b.index.Batch(batch)
}

// Search performs a BM25 search within a collection and returns the top k results.
func (b *BM25Index) Search(query, collection string, k int) ([]BM25Result, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil, nil
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")

	collectionQuery := bleve.NewTermQuery(collection)
	collectionQuery.SetField("collection")

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(matchQuery, collectionQuery))
	req.Size = k
	req.Fields = []string{"key", "file_path"}

	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("BM25 search failed: %w", err)
	}

	results := make([]BM25Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := BM25Result{Score: hit.Score}
		if key, ok := hit.Fields["key"].(string); ok {
			r.Key = key
		} else {
			r.Key = strings.TrimPrefix(hit.ID, collection+"/")
		}
		if fp, ok := hit.Fields["file_path"].(string); ok {
			r.FilePath = fp
		}
		results = append(results, r)
	}
	return results, nil
}

// Close closes the index.
func (b *BM25Index) Close() error {
	return b.index.Close()
}
