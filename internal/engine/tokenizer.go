package engine

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// messageOverhead approximates the role and separator tokens providers add
// around every message.
const messageOverhead = 4

// Tokenizer counts tokens of text as the given model would.
type Tokenizer interface {
	CountTokens(text string, model string) (int, error)
}

// EstimateTokens guesses a token count at about four characters per token,
// plus one token per six whitespace runes. Non-empty text costs at least one.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	runes, spaces := 0, 0
	for _, r := range text {
		runes++
		if r == ' ' || r == '\n' || r == '\t' {
			spaces++
		}
	}
	return max(runes/4+spaces/6, 1)
}

// DefaultTokenizer estimates with EstimateTokens. It is used for models
// without a known BPE encoding.
type DefaultTokenizer struct{}

func (DefaultTokenizer) CountTokens(text string, model string) (int, error) {
	return EstimateTokens(text), nil
}

// CountTokensForMessages sums role, content and tool call tokens of messages
// plus a fixed per-message overhead.
func CountTokensForMessages(tokenizer Tokenizer, messages []ChatMessage, model string) (int, error) {
	total := 0
	count := func(what, text string) error {
		n, err := tokenizer.CountTokens(text, model)
		if err != nil {
			return fmt.Errorf("failed to count %s tokens: %w", what, err)
		}
		total += n
		return nil
	}

	for _, msg := range messages {
		if err := count("role", string(msg.Role)); err != nil {
			return 0, err
		}
		if err := count("content", msg.Content); err != nil {
			return 0, err
		}
		for _, tc := range msg.ToolCalls {
			if err := count("tool name", tc.Name); err != nil {
				return 0, err
			}
			args, _ := json.Marshal(tc.Args)
			if err := count("tool args", string(args)); err != nil {
				return 0, err
			}
		}
		total += messageOverhead
	}
	return total, nil
}

// TikTokenTokenizer counts with the model's BPE encoding and falls back to
// EstimateTokens for models tiktoken does not know.
type TikTokenTokenizer struct {
	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken // nil entry: no encoding
}

func NewTikTokenTokenizer() *TikTokenTokenizer {
	return &TikTokenTokenizer{encodings: make(map[string]*tiktoken.Tiktoken)}
}

func (t *TikTokenTokenizer) CountTokens(text string, model string) (int, error) {
	if text == "" {
		return 0, nil
	}
	if enc := t.encoding(model); enc != nil {
		return len(enc.Encode(text, nil, nil)), nil
	}
	return EstimateTokens(text), nil
}

func (t *TikTokenTokenizer) encoding(model string) *tiktoken.Tiktoken {
	t.mu.Lock()
	defer t.mu.Unlock()

	enc, cached := t.encodings[model]
	if cached {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		log.Printf("⚠️  No tiktoken encoding for %s, estimating tokens: %v", model, err)
		enc = nil
	}
	t.encodings[model] = enc
	return enc
}

var sharedTikToken = NewTikTokenTokenizer()

// openAIModelPrefixes name the model families tiktoken can encode.
var openAIModelPrefixes = []string{"gpt-", "o1", "o3", "o4", "text-embedding-"}

// GetTokenizerForModel returns tiktoken for OpenAI model names and the
// estimator for everything else.
func GetTokenizerForModel(model string) Tokenizer {
	name := strings.ToLower(strings.TrimLeftFunc(model, unicode.IsSpace))
	for _, prefix := range openAIModelPrefixes {
		if strings.HasPrefix(name, prefix) {
			return sharedTikToken
		}
	}
	return DefaultTokenizer{}
}
