package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// scriptedLLM replays canned responses and records every request.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []LLMResponse
	requests  [][]ChatMessage
	err       error
}

func (s *scriptedLLM) next(messages []ChatMessage) (LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, append([]ChatMessage(nil), messages...))
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	if len(s.responses) == 0 {
		return LLMResponse{Assistant: ChatMessage{Role: RoleAssistant, Content: "done"}}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *scriptedLLM) Chat(ctx context.Context, model string, messages []ChatMessage, toolSchemas []ToolSchema, opts ChatOptions) (LLMResponse, error) {
	return s.next(messages)
}

func (s *scriptedLLM) Stream(ctx context.Context, model string, messages []ChatMessage, toolSchemas []ToolSchema, opts ChatOptions) (<-chan StreamEvent, <-chan error) {
	deltaCh := make(chan StreamEvent)
	errCh := make(chan error, 1)
	resp, err := s.next(messages)

	go func() {
		defer close(deltaCh)
		defer close(errCh)
		if err != nil {
			errCh <- err
			return
		}
		for _, word := range strings.SplitAfter(resp.Assistant.Content, " ") {
			if word != "" {
				deltaCh <- StreamEvent{Type: "text_delta", Text: word}
			}
		}
		for _, tc := range resp.ToolCalls {
			deltaCh <- StreamEvent{Type: "tool_call", ToolCall: tc}
		}
		deltaCh <- StreamEvent{Type: "usage", Usage: resp.Usage}
	}()
	return deltaCh, errCh
}

func toolCallResponse(id, name string, args map[string]any) LLMResponse {
	return LLMResponse{
		Assistant: ChatMessage{Role: RoleAssistant},
		ToolCalls: []ToolCall{{ID: id, Name: name, Args: args}},
	}
}

func textResponse(text string) LLMResponse {
	return LLMResponse{Assistant: ChatMessage{Role: RoleAssistant, Content: text}, Usage: Usage{Prompt: 10, Completion: 5, Total: 15}}
}

func TestRunner_PlainReply(t *testing.T) {
	for _, stream := range []bool{false, true} {
		llm := &scriptedLLM{responses: []LLMResponse{textResponse("Hello there friend")}}
		runner := NewRunner(llm, nil, RunnerConfig{Model: "test-model", Options: ChatOptions{Stream: stream}})
		history := NewHistory("sys", HistoryConfig{Tokenizer: DefaultTokenizer{}})

		var streamed strings.Builder
		reply, err := runner.RunTurn(context.Background(), history, "hi", func(d string) { streamed.WriteString(d) })
		if err != nil {
			t.Fatalf("stream=%v: RunTurn() error = %v", stream, err)
		}
		if reply != "Hello there friend" {
			t.Errorf("stream=%v: reply = %q", stream, reply)
		}
		if streamed.String() != reply {
			t.Errorf("stream=%v: streamed %q, want %q", stream, streamed.String(), reply)
		}

		msgs := history.Messages()
		if len(msgs) != 3 || msgs[1].Role != RoleUser || msgs[2].Content != reply {
			t.Errorf("stream=%v: history = %+v", stream, msgs)
		}
	}
}

func TestRunner_ExecutesToolsBetweenCalls(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{
		toolCallResponse("call_1", "get_commits", map[string]any{"repo_path": "/repo"}),
		textResponse("You made 3 commits."),
	}}
	runner := NewRunner(llm, newMockRegistry(), RunnerConfig{Model: "test-model", Options: ChatOptions{Stream: true}})
	history := NewHistory("sys", HistoryConfig{Tokenizer: DefaultTokenizer{}})

	reply, err := runner.RunTurn(context.Background(), history, "show my commits", nil)
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if reply != "You made 3 commits." {
		t.Errorf("reply = %q", reply)
	}

	if len(llm.requests) != 2 {
		t.Fatalf("LLM called %d times, want 2", len(llm.requests))
	}
	second := llm.requests[1]
	last := second[len(second)-1]
	if last.Role != RoleTool || last.Name != "call_1" || last.Content != "commits of /repo" {
		t.Errorf("tool result sent back = %+v", last)
	}
	assistant := second[len(second)-2]
	if assistant.Role != RoleAssistant || len(assistant.ToolCalls) != 1 {
		t.Errorf("assistant tool call message = %+v", assistant)
	}
}

func TestRunner_ToolRoundLimit(t *testing.T) {
	var responses []LLMResponse
	for i := 0; i < 10; i++ {
		responses = append(responses, toolCallResponse("call", "mock_tool", map[string]any{}))
	}
	llm := &scriptedLLM{responses: responses}
	runner := NewRunner(llm, newMockRegistry(), RunnerConfig{Model: "test-model", MaxToolRounds: 2})
	history := NewHistory("", HistoryConfig{Tokenizer: DefaultTokenizer{}})

	_, err := runner.RunTurn(context.Background(), history, "loop forever", nil)
	if !errors.Is(err, ErrMaxToolRounds) {
		t.Fatalf("RunTurn() error = %v, want ErrMaxToolRounds", err)
	}
	if len(llm.requests) != 3 {
		t.Errorf("LLM called %d times, want 3 (2 tool rounds + the refused one)", len(llm.requests))
	}

	// Every tool call in the history has an answer.
	msgs := history.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != RoleTool || !strings.HasPrefix(last.Content, "ERROR:") {
		t.Errorf("last message = %+v, want refused tool result", last)
	}
}

func TestRunner_ProviderError(t *testing.T) {
	for _, stream := range []bool{false, true} {
		llm := &scriptedLLM{err: WrapLLMError(errors.New("status 401"), 401, "")}
		runner := NewRunner(llm, nil, RunnerConfig{Model: "test-model", Options: ChatOptions{Stream: stream}})

		_, err := runner.RunTurn(context.Background(), NewHistory("", HistoryConfig{Tokenizer: DefaultTokenizer{}}), "hi", nil)
		var engineErr *EngineError
		if !errors.As(err, &engineErr) {
			t.Fatalf("stream=%v: error = %v, want *EngineError", stream, err)
		}
		if engineErr.Kind != KindAuth {
			t.Errorf("stream=%v: kind = %s, want auth", stream, engineErr.Kind)
		}
	}
}

func TestComplete(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{textResponse("Release Notes:\n- fixed bug")}}
	got, err := Complete(context.Background(), llm, "test-model", "write notes", ChatOptions{})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "Release Notes:\n- fixed bug" {
		t.Errorf("Complete() = %q", got)
	}
	if len(llm.requests[0]) != 1 || llm.requests[0][0].Role != RoleUser {
		t.Errorf("Complete() sent %+v, want one user message", llm.requests[0])
	}
}

func TestClassifyLLMError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   ErrorKind
	}{
		{"unauthorized status", errors.New("boom"), 401, KindAuth},
		{"rate limit status", errors.New("boom"), 429, KindRateLimit},
		{"server error", errors.New("boom"), 503, KindNetwork},
		{"bad request", errors.New("boom"), 400, KindRequest},
		{"message only", errors.New("dial tcp: connection refused"), 0, KindNetwork},
		{"invalid key message", errors.New("Invalid API key provided"), 0, KindAuth},
		{"unknown", errors.New("something odd"), 0, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyLLMError(tt.err, tt.status); got != tt.want {
				t.Errorf("ClassifyLLMError() = %s, want %s", got, tt.want)
			}
		})
	}
}
