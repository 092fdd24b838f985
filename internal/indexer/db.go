package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrDimensionMismatch is returned when a vector does not match the collection width.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrCollectionNotFound is returned for operations on a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")
)

// Collection describes a named set of chunk records.
type Collection struct {
	Name      string
	Dimension int
	CreatedAt time.Time
}

// SearchResult is one retrieved record, best first.
type SearchResult struct {
	Key      string
	FilePath string
	Content  string
	Score    float64
}

// DB is a SQLite-backed vector store.
type DB struct {
	db *sql.DB
}

// NewDB opens (or creates) the store at dbPath and initializes the schema.
func NewDB(ctx context.Context, dbPath string) (*DB, error) {
	// WAL allows readers alongside the single writer
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't support multiple writers well
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{db: db}
	if err := d.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name       TEXT PRIMARY KEY,
		dimension  INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS records (
		collection TEXT NOT NULL,
		key        TEXT NOT NULL,
		ordinal    INTEGER NOT NULL,
		content    TEXT NOT NULL,
		file_path  TEXT NOT NULL,
		embedding  BLOB NOT NULL,
		run_id     TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (collection, key),
		FOREIGN KEY (collection) REFERENCES collections(name) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_records_file ON records(collection, file_path);
	`
	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// EnsureCollection creates the collection if it does not exist and returns it.
// An existing collection keeps its declared dimension.
func (d *DB) EnsureCollection(ctx context.Context, name string, dimension int) (*Collection, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d for collection %s", dimension, name)
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO collections (name, dimension, created_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, dimension, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	c, err := d.GetCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	if c.Dimension != dimension {
		log.Printf("⚠️  Collection %s keeps its declared dimension %d (requested %d)", name, c.Dimension, dimension)
	}
	return c, nil
}

// GetCollection returns a collection by name.
func (d *DB) GetCollection(ctx context.Context, name string) (*Collection, error) {
	var c Collection
	var createdAt int64
	err := d.db.QueryRowContext(ctx,
		`SELECT name, dimension, created_at FROM collections WHERE name = ?`, name,
	).Scan(&c.Name, &c.Dimension, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %s: %w", name, err)
	}
	c.CreatedAt = time.Unix(createdAt, 0)
	return &c, nil
}

// RecreateCollection drops a collection with all its records and creates it
// again with dimension. It returns the keys of the dropped records.
func (d *DB) RecreateCollection(ctx context.Context, name string, dimension int) ([]string, *Collection, error) {
	if dimension <= 0 {
		return nil, nil, fmt.Errorf("invalid dimension %d for collection %s", dimension, name)
	}
	keys, err := d.Keys(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, name); err != nil {
		return nil, nil, fmt.Errorf("failed to clear collection %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
		return nil, nil, fmt.Errorf("failed to drop collection %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (name, dimension, created_at) VALUES (?, ?, ?)`,
		name, dimension, time.Now().Unix(),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit collection %s: %w", name, err)
	}

	c, err := d.GetCollection(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return keys, c, nil
}

// Upsert inserts or replaces a record. The embedding length must equal the
// collection's declared dimension.
func (d *DB) Upsert(ctx context.Context, collection string, rec ChunkRecord) error {
	c, err := d.GetCollection(ctx, collection)
	if err != nil {
		return err
	}
	if len(rec.Embedding) != c.Dimension {
		return fmt.Errorf("%w: record %s has %d values, collection %s expects %d",
			ErrDimensionMismatch, rec.Key, len(rec.Embedding), collection, c.Dimension)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO records (collection, key, ordinal, content, file_path, embedding, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET
			ordinal = excluded.ordinal,
			content = excluded.content,
			file_path = excluded.file_path,
			embedding = excluded.embedding,
			run_id = excluded.run_id,
			created_at = excluded.created_at
	`, collection, rec.Key, keyOrdinal(rec.Key), rec.Content, rec.FilePath, encodeVector(rec.Embedding), rec.RunID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", rec.Key, err)
	}
	return nil
}

// Get returns a record by key.
func (d *DB) Get(ctx context.Context, collection, key string) (*ChunkRecord, error) {
	var rec ChunkRecord
	var blob []byte
	err := d.db.QueryRowContext(ctx, `
		SELECT key, content, file_path, embedding, run_id FROM records
		WHERE collection = ? AND key = ?
	`, collection, key).Scan(&rec.Key, &rec.Content, &rec.FilePath, &blob, &rec.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s not found in %s", key, collection)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", key, err)
	}
	if rec.Embedding, err = DecodeVector(blob); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Count returns the number of records in a collection.
func (d *DB) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// Keys returns the keys of a collection in insertion order.
func (d *DB) Keys(ctx context.Context, collection string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT key FROM records WHERE collection = ? ORDER BY rowid`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// NextOrdinal returns one past the highest chunk ordinal in the collection.
func (d *DB) NextOrdinal(ctx context.Context, collection string) (int, error) {
	var maxOrdinal sql.NullInt64
	err := d.db.QueryRowContext(ctx, `SELECT MAX(ordinal) FROM records WHERE collection = ?`, collection).Scan(&maxOrdinal)
	if err != nil {
		return 0, fmt.Errorf("failed to read max ordinal: %w", err)
	}
	if !maxOrdinal.Valid {
		return 0, nil
	}
	return int(maxOrdinal.Int64) + 1, nil
}

// Search returns the k records most similar to the query vector by cosine
// similarity, best first. Ties keep insertion order.
func (d *DB) Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	c, err := d.GetCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(query) != c.Dimension {
		return nil, fmt.Errorf("%w: query has %d values, collection %s expects %d",
			ErrDimensionMismatch, len(query), collection, c.Dimension)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT key, file_path, content, embedding FROM records
		WHERE collection = ? ORDER BY rowid
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var scored []SearchResult
	for rows.Next() {
		var r SearchResult
		var blob []byte
		if err := rows.Scan(&r.Key, &r.FilePath, &r.Content, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		vector, err := DecodeVector(blob)
		if err != nil {
			log.Printf("⚠️  Skipping record %s: %v", r.Key, err)
			continue
		}
		r.Score = cosineSimilarity(query, vector)
		scored = append(scored, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// cosineSimilarity computes the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// keyOrdinal extracts n from "chunk-n"; other keys sort before all chunks.
func keyOrdinal(key string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(key, "chunk-"))
	if err != nil || !strings.HasPrefix(key, "chunk-") {
		return -1
	}
	return n
}
