package engine

import (
	"context"
	"strings"
)

// stepOnceStream calls the model with streaming, forwarding text deltas to
// the hooks as they arrive.
func stepOnceStream(ctx context.Context, llm LLMClient, reg ToolRegistry, st *State, hooks Hooks, opts ChatOptions) (LLMResponse, error) {
	msgs := st.History.Messages()
	toolSchemas := reg.Schemas()
	hooks.OnBeforeLLM(ctx, st, msgs, toolSchemas)

	deltaCh, errCh := llm.Stream(ctx, st.Model, msgs, toolSchemas, opts)
	var assistantBuffer strings.Builder
	var respUsage Usage
	var toolCalls []ToolCall

	for deltaCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return LLMResponse{}, ctx.Err()
		case ev, ok := <-deltaCh:
			if !ok {
				deltaCh = nil
				continue
			}
			switch ev.Type {
			case "text_delta":
				assistantBuffer.WriteString(ev.Text)
				hooks.OnStreamDelta(ctx, st, ev.Text)
			case "tool_call":
				toolCalls = append(toolCalls, ev.ToolCall)
			case "usage":
				respUsage = ev.Usage
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return LLMResponse{}, err
			}
		}
	}

	finish := "stop"
	if len(toolCalls) > 0 {
		finish = "tool_calls"
	}
	resp := LLMResponse{
		Assistant:    ChatMessage{Role: RoleAssistant, Content: assistantBuffer.String()},
		ToolCalls:    toolCalls,
		Usage:        respUsage,
		FinishReason: finish,
	}
	processLLMResponse(ctx, resp, st, hooks)
	return resp, nil
}
