package indexer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode"
)

// MockEmbedder builds bag-of-words vectors over a fixed vocabulary.
type MockEmbedder struct {
	vocab []string

	mu    sync.Mutex
	calls int
}

func newMockEmbedder(vocab ...string) *MockEmbedder {
	return &MockEmbedder{vocab: vocab}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	vec := make([]float32, len(m.vocab))
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		for i, v := range m.vocab {
			if w == v {
				vec[i]++
			}
		}
	}
	return vec, nil
}

func (m *MockEmbedder) Dimension() int {
	return len(m.vocab)
}

func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// failingEmbedder fails for any text containing marker.
type failingEmbedder struct {
	*MockEmbedder
	marker string
}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, f.marker) {
		return nil, errors.New("embedding service unavailable")
	}
	return f.MockEmbedder.Embed(ctx, text)
}

// runeCodec treats every rune as one token.
type runeCodec struct{}

func (runeCodec) Encode(text string) []int {
	tokens := make([]int, 0, len(text))
	for _, r := range text {
		tokens = append(tokens, int(r))
	}
	return tokens
}

func (runeCodec) Decode(tokens []int) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteRune(rune(t))
	}
	return b.String()
}

// truncatingEmbedder drops the last value of vectors for texts containing marker.
type truncatingEmbedder struct {
	*MockEmbedder
	marker string
}

func (e *truncatingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.MockEmbedder.Embed(ctx, text)
	if err != nil || !strings.Contains(text, e.marker) {
		return vec, err
	}
	return vec[:len(vec)-1], nil
}
