// Package codeqa answers questions about an indexed codebase by sending the
// retrieved chunks and the question to the chat model in one request.
package codeqa

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ChamsBouzaiene/gitchat/internal/engine"
	"github.com/ChamsBouzaiene/gitchat/internal/indexer"
	"github.com/ChamsBouzaiene/gitchat/internal/prompts"
)

const (
	// NoContentReply is returned when the model answers with nothing.
	NoContentReply = "No response content returned."
	// FailureReply is returned when retrieval or completion fails.
	FailureReply = "Sorry, something went wrong while answering your question."
)

// Retriever returns the chunks most relevant to a query, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]indexer.SearchResult, error)
}

// Composer builds a context block from retrieved chunks and asks the model.
type Composer struct {
	retriever Retriever
	llm       engine.LLMClient
	model     string
	opts      engine.ChatOptions
}

// NewComposer creates a composer.
func NewComposer(retriever Retriever, llm engine.LLMClient, model string, opts engine.ChatOptions) *Composer {
	return &Composer{retriever: retriever, llm: llm, model: model, opts: opts}
}

// Answer returns the model's answer to query. It never fails: errors are
// logged and replaced by FailureReply. An empty index still reaches the
// model with an empty context.
func (c *Composer) Answer(ctx context.Context, query string) string {
	answer, err := c.answer(ctx, query)
	if err != nil {
		log.Printf("⚠️  Codebase question failed: %v", err)
		return FailureReply
	}
	return answer
}

func (c *Composer) answer(ctx context.Context, query string) (string, error) {
	results, err := c.retriever.Retrieve(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve context: %w", err)
	}
	log.Printf("🔍 Retrieved %d chunks for question", len(results))

	prompt, err := prompts.Render(prompts.CodeQA, map[string]string{
		"context": BuildContext(results),
		"query":   query,
	})
	if err != nil {
		return "", err
	}

	reply, err := engine.Complete(ctx, c.llm, c.model, prompt, c.opts)
	if err != nil {
		return "", fmt.Errorf("failed to get completion: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		return NoContentReply, nil
	}
	return reply, nil
}

// BuildContext concatenates results in order, each preceded by a
// "// From: <path>" line and followed by a blank line.
func BuildContext(results []indexer.SearchResult) string {
	var b strings.Builder
	for _, r := range results {
		b.WriteString("// From: ")
		b.WriteString(r.FilePath)
		b.WriteString("\n")
		b.WriteString(r.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}
