package engine

import (
	"log"
)

// History defaults.
const (
	DefaultHistoryMaxTokens = 8000
	DefaultHistoryMaxTurns  = 20
)

// HistoryConfig bounds a History.
type HistoryConfig struct {
	MaxTokens int       // Token budget of the system prompt plus all turns. Default: 8000
	MaxTurns  int       // Maximum number of turns kept. Default: 20
	Model     string    // Model used for token counting
	Tokenizer Tokenizer // Default: GetTokenizerForModel(Model)
}

// History is a system prompt followed by a bounded window of turns. A turn is
// a user message and every assistant or tool message produced in reply to it.
// When a bound is exceeded the oldest whole turn is evicted; the newest turn
// is always kept, even if it alone exceeds the token budget.
type History struct {
	system string
	turns  [][]ChatMessage
	config HistoryConfig
}

// NewHistory creates an empty history with the given system prompt.
func NewHistory(systemPrompt string, config HistoryConfig) *History {
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultHistoryMaxTokens
	}
	if config.MaxTurns <= 0 {
		config.MaxTurns = DefaultHistoryMaxTurns
	}
	if config.Tokenizer == nil {
		config.Tokenizer = GetTokenizerForModel(config.Model)
	}
	return &History{system: systemPrompt, config: config}
}

// SetSystemPrompt replaces the system prompt.
func (h *History) SetSystemPrompt(prompt string) {
	h.system = prompt
	h.trim()
}

// Append adds a message. A user message starts a new turn.
func (h *History) Append(msg ChatMessage) {
	if msg.Role == RoleUser || len(h.turns) == 0 {
		h.turns = append(h.turns, nil)
	}
	last := len(h.turns) - 1
	h.turns[last] = append(h.turns[last], msg)
	h.trim()
}

// Messages returns the system prompt followed by every kept message.
func (h *History) Messages() []ChatMessage {
	msgs := make([]ChatMessage, 0, h.Len()+1)
	if h.system != "" {
		msgs = append(msgs, ChatMessage{Role: RoleSystem, Content: h.system})
	}
	for _, turn := range h.turns {
		msgs = append(msgs, turn...)
	}
	return msgs
}

// Len returns the number of kept messages, excluding the system prompt.
func (h *History) Len() int {
	n := 0
	for _, turn := range h.turns {
		n += len(turn)
	}
	return n
}

// Turns returns the number of kept turns.
func (h *History) Turns() int {
	return len(h.turns)
}

// Tokens returns the token count of Messages.
func (h *History) Tokens() int {
	n, err := CountTokensForMessages(h.config.Tokenizer, h.Messages(), h.config.Model)
	if err != nil {
		log.Printf("⚠️  Failed to count history tokens: %v", err)
		return 0
	}
	return n
}

func (h *History) trim() {
	evicted := 0
	for len(h.turns) > 1 && (len(h.turns) > h.config.MaxTurns || h.Tokens() > h.config.MaxTokens) {
		h.turns = h.turns[1:]
		evicted++
	}
	if evicted > 0 {
		log.Printf("📝 History trimmed: evicted %d oldest turns, %d kept", evicted, len(h.turns))
	}
}
