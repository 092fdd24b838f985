package engine

import (
	"context"
)

// Hook observes a chat turn.
type Hook interface {
	OnBeforeLLM(ctx context.Context, st *State, messages []ChatMessage, toolSchemas []ToolSchema)
	OnAfterLLM(ctx context.Context, st *State, resp LLMResponse)
	OnStreamDelta(ctx context.Context, st *State, delta string)
	OnToolCall(ctx context.Context, st *State, call ToolCall)
	OnToolResult(ctx context.Context, st *State, call ToolCall, result string, err error)
	OnDone(ctx context.Context, st *State)
}

// NopHook lets you implement any hook you need.
type NopHook struct{}

func (NopHook) OnBeforeLLM(context.Context, *State, []ChatMessage, []ToolSchema) {}
func (NopHook) OnAfterLLM(context.Context, *State, LLMResponse)                  {}
func (NopHook) OnStreamDelta(context.Context, *State, string)                    {}
func (NopHook) OnToolCall(context.Context, *State, ToolCall)                     {}
func (NopHook) OnToolResult(context.Context, *State, ToolCall, string, error)    {}
func (NopHook) OnDone(context.Context, *State)                                   {}

// DeltaFunc receives streamed reply text.
type DeltaFunc func(delta string)

type deltaHook struct {
	NopHook
	fn DeltaFunc
}

func (h deltaHook) OnStreamDelta(_ context.Context, _ *State, d string) {
	h.fn(d)
}
