package indexer

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
)

// DefaultBoundaryPattern matches a method declaration: a visibility keyword,
// a return type, a name and a parameter list, up to the opening brace.
const DefaultBoundaryPattern = `(?s)(public|private|protected|internal)\s+[\w<>\[\]]+\s+\w+\s*\(.*?\)\s*\{`

// BoundaryChunker starts a new chunk at every declaration match.
type BoundaryChunker struct {
	pattern *regexp.Regexp
}

// NewBoundaryChunker creates a boundary chunker using DefaultBoundaryPattern.
func NewBoundaryChunker() *BoundaryChunker {
	return &BoundaryChunker{pattern: regexp.MustCompile(DefaultBoundaryPattern)}
}

// NewBoundaryChunkerWithPattern creates a boundary chunker with a custom pattern.
func NewBoundaryChunkerWithPattern(pattern string) (*BoundaryChunker, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid boundary pattern: %w", err)
	}
	return &BoundaryChunker{pattern: re}, nil
}

// Chunk splits the file at declaration boundaries. Text before the first
// boundary belongs to the first chunk, so the chunks always concatenate back
// to the original content. A file without boundaries is a single chunk.
func (c *BoundaryChunker) Chunk(ctx context.Context, file SourceFile) ([]Chunk, error) {
	if strings.TrimSpace(file.Content) == "" {
		return nil, nil
	}

	return splitWithFallback(file, c.split), nil
}

// splitWithFallback runs split and keeps the whole file as one chunk if it
// panics.
func splitWithFallback(file SourceFile, split func(SourceFile) []Chunk) (chunks []Chunk) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️  Chunking %s failed (%v), keeping whole file", file.Path, r)
			chunks = []Chunk{{FilePath: file.Path, Ordinal: 0, Text: file.Content}}
		}
	}()
	return split(file)
}

func (c *BoundaryChunker) split(file SourceFile) []Chunk {
	matches := c.pattern.FindAllStringIndex(file.Content, -1)
	if len(matches) == 0 {
		return []Chunk{{FilePath: file.Path, Ordinal: 0, Text: file.Content}}
	}

	chunks := make([]Chunk, 0, len(matches))
	for i := range matches {
		start := matches[i][0]
		if i == 0 {
			start = 0
		}
		end := len(file.Content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		chunks = append(chunks, Chunk{
			FilePath: file.Path,
			Ordinal:  i,
			Text:     file.Content[start:end],
		})
	}
	return chunks
}

// NewChunker returns the chunker for a strategy name.
func NewChunker(strategy string, window WindowConfig) (Chunker, error) {
	switch strategy {
	case "", ChunkingBoundary:
		return NewBoundaryChunker(), nil
	case ChunkingWindow:
		return NewWindowChunker(window)
	default:
		return nil, fmt.Errorf("unknown chunking strategy: %s (supported: boundary, window)", strategy)
	}
}
