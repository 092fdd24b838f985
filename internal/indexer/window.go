package indexer

import (
	"context"
	"fmt"
	"iter"

	"github.com/pkoukk/tiktoken-go"
)

// Window defaults.
const (
	DefaultWindowTokens = 2048
	DefaultWindowStride = 1024
	DefaultEncoding     = "cl100k_base"
)

// TokenCodec converts between text and subword tokens.
type TokenCodec interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// WindowConfig configures window chunking.
type WindowConfig struct {
	Size     int    // Maximum tokens per window. Default: DefaultWindowTokens
	Stride   int    // Tokens between window starts. Default: DefaultWindowStride
	Encoding string // tiktoken encoding name. Default: DefaultEncoding
	Codec    TokenCodec
}

// WindowChunker emits overlapping fixed-size token windows.
type WindowChunker struct {
	size   int
	stride int
	codec  TokenCodec
}

// NewWindowChunker creates a window chunker. When no codec is given the
// tiktoken encoding named in the config is loaded.
func NewWindowChunker(config WindowConfig) (*WindowChunker, error) {
	if config.Size == 0 {
		config.Size = DefaultWindowTokens
	}
	if config.Stride == 0 {
		config.Stride = DefaultWindowStride
	}
	if config.Size < 0 || config.Stride <= 0 || config.Stride >= config.Size {
		return nil, fmt.Errorf("invalid window: size %d, stride %d (need 0 < stride < size)", config.Size, config.Stride)
	}

	codec := config.Codec
	if codec == nil {
		encoding := config.Encoding
		if encoding == "" {
			encoding = DefaultEncoding
		}
		tc, err := NewTiktokenCodec(encoding)
		if err != nil {
			return nil, err
		}
		codec = tc
	}

	return &WindowChunker{size: config.Size, stride: config.Stride, codec: codec}, nil
}

// Windows returns the decoded windows of text. The sequence is lazy and can
// be ranged over any number of times.
func (c *WindowChunker) Windows(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		tokens := c.codec.Encode(text)
		for start := 0; start < len(tokens); start += c.stride {
			end := min(start+c.size, len(tokens))
			if !yield(c.codec.Decode(tokens[start:end])) {
				return
			}
			if end == len(tokens) {
				return
			}
		}
	}
}

// Chunk collects the windows of a file.
func (c *WindowChunker) Chunk(ctx context.Context, file SourceFile) ([]Chunk, error) {
	var chunks []Chunk
	for text := range c.Windows(file.Content) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if text == "" {
			continue
		}
		chunks = append(chunks, Chunk{FilePath: file.Path, Ordinal: len(chunks), Text: text})
	}
	return chunks, nil
}

// TiktokenCodec adapts a tiktoken encoding to TokenCodec.
type TiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCodec loads a tiktoken encoding such as "cl100k_base".
func NewTiktokenCodec(encoding string) (*TiktokenCodec, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %s: %w", encoding, err)
	}
	return &TiktokenCodec{enc: enc}, nil
}

// Encode tokenizes text, treating special-token text as ordinary text.
func (c *TiktokenCodec) Encode(text string) []int {
	return c.enc.Encode(text, nil, nil)
}

// Decode turns tokens back into text.
func (c *TiktokenCodec) Decode(tokens []int) string {
	return c.enc.Decode(tokens)
}
