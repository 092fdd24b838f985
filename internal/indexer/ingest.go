package indexer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// IngesterConfig configures an Ingester.
type IngesterConfig struct {
	Collection string // Default: DefaultCollection
	Dimension  int    // Declared vector width of the collection
	Mode       string // ModeReplace (default) or ModeAppend
	Walker     WalkerConfig
	Pool       PoolConfig
}

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	RunID        string
	Files        int
	SkippedFiles int
	Chunks       int
	Records      int
	FirstKey     string
	Duration     time.Duration
}

// Ingester chunks, embeds and stores source files.
type Ingester struct {
	db       *DB
	bm25     *BM25Index // optional
	chunker  Chunker
	embedder Embedder
	config   IngesterConfig
}

// NewIngester creates an ingester. bm25 may be nil.
func NewIngester(db *DB, bm25 *BM25Index, chunker Chunker, embedder Embedder, config IngesterConfig) *Ingester {
	if config.Collection == "" {
		config.Collection = DefaultCollection
	}
	if config.Dimension == 0 {
		config.Dimension = embedder.Dimension()
	}
	if config.Mode == "" {
		config.Mode = ModeReplace
	}
	return &Ingester{db: db, bm25: bm25, chunker: chunker, embedder: embedder, config: config}
}

// IngestRepository collects the files under root and ingests them.
func (in *Ingester) IngestRepository(ctx context.Context, root string) (IngestStats, error) {
	walker, err := NewWalkerWithConfig(root, in.config.Walker)
	if err != nil {
		return IngestStats{}, err
	}
	log.Printf("🔍 Scanning repository: %s", walker.Root())
	files, err := walker.Collect(ctx)
	if err != nil {
		return IngestStats{}, err
	}
	log.Printf("📁 Discovered %d files", len(files))

	stats, err := in.Ingest(ctx, files)
	skipped := len(walker.Skipped())
	stats.Files += skipped
	stats.SkippedFiles += skipped
	return stats, err
}

type fileChunks struct {
	file   SourceFile
	chunks []Chunk
	jobs   []int // job IDs, one per chunk
}

// Ingest writes one record per chunk of files. Files whose chunking or
// embedding fails are logged and skipped without partial records.
func (in *Ingester) Ingest(ctx context.Context, files []SourceFile) (IngestStats, error) {
	start := time.Now()
	stats := IngestStats{RunID: uuid.NewString(), Files: len(files)}

	collection, next, err := in.prepareCollection(ctx)
	if err != nil {
		return stats, err
	}

	var pending []fileChunks
	var jobs []EmbedJob
	for _, file := range files {
		chunks, err := in.chunker.Chunk(ctx, file)
		if err != nil {
			log.Printf("Error processing file '%s': %v", file.Path, err)
			stats.SkippedFiles++
			continue
		}
		fc := fileChunks{file: file, chunks: chunks}
		for _, c := range chunks {
			fc.jobs = append(fc.jobs, len(jobs))
			jobs = append(jobs, EmbedJob{ID: len(jobs), Chunk: c})
		}
		pending = append(pending, fc)
	}
	stats.Chunks = len(jobs)

	results := EmbedChunks(ctx, in.embedder, jobs, in.config.Pool)

	for _, fc := range pending {
		if err := fileError(results, fc.jobs, collection); err != nil {
			log.Printf("Error processing file '%s': %v", fc.file.Path, err)
			stats.SkippedFiles++
			continue
		}

		for i, c := range fc.chunks {
			rec := ChunkRecord{
				Key:       ChunkKey(next),
				Content:   c.Text,
				FilePath:  c.FilePath,
				Embedding: results[fc.jobs[i]].Vector,
				RunID:     stats.RunID,
			}
			if err := in.db.Upsert(ctx, in.config.Collection, rec); err != nil {
				return stats, err
			}
			if in.bm25 != nil {
				if err := in.bm25.IndexRecord(in.config.Collection, rec); err != nil {
					log.Printf("⚠️  Failed to index %s for keyword search: %v", rec.Key, err)
				}
			}
			if stats.Records == 0 {
				stats.FirstKey = rec.Key
			}
			stats.Records++
			next++
		}
	}

	stats.Duration = time.Since(start)
	log.Printf("✅ Codebase chunks saved: %d records from %d files (%d skipped) in %v",
		stats.Records, stats.Files-stats.SkippedFiles, stats.SkippedFiles, stats.Duration.Round(time.Millisecond))
	return stats, nil
}

// prepareCollection applies the ingestion mode. Replace drops the collection
// and recreates it with the configured dimension; append keeps it and
// continues after its highest key. It returns the collection and the first
// key number.
func (in *Ingester) prepareCollection(ctx context.Context) (*Collection, int, error) {
	switch in.config.Mode {
	case ModeReplace:
		keys, c, err := in.db.RecreateCollection(ctx, in.config.Collection, in.config.Dimension)
		if err != nil {
			return nil, 0, err
		}
		if in.bm25 != nil {
			if err := in.bm25.DeleteKeys(in.config.Collection, keys); err != nil {
				log.Printf("⚠️  Failed to clear keyword index: %v", err)
			}
		}
		return c, 0, nil
	case ModeAppend:
		c, err := in.db.EnsureCollection(ctx, in.config.Collection, in.config.Dimension)
		if err != nil {
			return nil, 0, err
		}
		next, err := in.db.NextOrdinal(ctx, in.config.Collection)
		if err != nil {
			return nil, 0, err
		}
		return c, next, nil
	default:
		return nil, 0, fmt.Errorf("unknown ingestion mode: %s (supported: replace, append)", in.config.Mode)
	}
}

// fileError returns the first embedding failure among a file's jobs, or a
// dimension error when a vector does not fit the collection.
func fileError(results []EmbedResult, ids []int, collection *Collection) error {
	for _, id := range ids {
		if results[id].Err != nil {
			return results[id].Err
		}
		if n := len(results[id].Vector); n != collection.Dimension {
			return fmt.Errorf("%w: chunk %d has %d values, collection %s expects %d",
				ErrDimensionMismatch, id, n, collection.Name, collection.Dimension)
		}
	}
	return nil
}
