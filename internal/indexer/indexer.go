package indexer

import (
	"context"
	"fmt"
)

// SourceFile is one file discovered under a repository root.
type SourceFile struct {
	Path    string // Absolute path
	Content string
}

// Chunk is a contiguous span of one file's text.
type Chunk struct {
	FilePath string
	Ordinal  int // Position of the chunk within its file
	Text     string
}

// ChunkRecord is a chunk with its embedding, as stored in a collection.
type ChunkRecord struct {
	Key       string
	Content   string
	FilePath  string
	Embedding []float32
	RunID     string // Ingestion run that wrote the record
}

// Chunker splits a file into chunks.
type Chunker interface {
	Chunk(ctx context.Context, file SourceFile) ([]Chunk, error)
}

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Chunking strategies selectable by configuration.
const (
	ChunkingBoundary = "boundary"
	ChunkingWindow   = "window"
)

// Ingestion modes.
const (
	// ModeReplace clears the collection before writing new records.
	ModeReplace = "replace"
	// ModeAppend keeps existing records and numbers new keys after them.
	ModeAppend = "append"
)

// DefaultCollection is the collection used for code chunks.
const DefaultCollection = "code_docs"

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

// ChunkKey returns the record key for the n-th chunk of an ingestion.
func ChunkKey(n int) string {
	return fmt.Sprintf("chunk-%d", n)
}
