package engine

import (
	"context"
	"fmt"
	"sync"
)

// toolResult represents the result of executing a tool call.
type toolResult struct {
	content string
	err     error
	call    ToolCall
}

// stepOnce calls the model without streaming. The whole reply is reported
// as a single delta.
func stepOnce(ctx context.Context, llm LLMClient, reg ToolRegistry, st *State, hooks Hooks, opts ChatOptions) (LLMResponse, error) {
	msgs := st.History.Messages()
	toolSchemas := reg.Schemas()
	hooks.OnBeforeLLM(ctx, st, msgs, toolSchemas)

	resp, err := llm.Chat(ctx, st.Model, msgs, toolSchemas, opts)
	if err != nil {
		return LLMResponse{}, err
	}
	if resp.Assistant.Content != "" {
		hooks.OnStreamDelta(ctx, st, resp.Assistant.Content)
	}

	processLLMResponse(ctx, resp, st, hooks)
	return resp, nil
}

// processLLMResponse updates usage and appends the assistant message.
func processLLMResponse(ctx context.Context, resp LLMResponse, st *State, hooks Hooks) {
	st.Totals.Add(resp.Usage)
	hooks.OnAfterLLM(ctx, st, resp)

	// Always append the assistant message with its tool calls (if any)
	assistantMsg := resp.Assistant
	assistantMsg.Role = RoleAssistant
	assistantMsg.ToolCalls = resp.ToolCalls
	st.Append(assistantMsg)
	st.Reply = assistantMsg.Content

	if len(resp.ToolCalls) == 0 {
		st.Done = true
	}
}

// executeToolCalls runs the calls concurrently and appends their results to
// the history in call order. Failures become "ERROR: ..." tool messages so
// the model can see them.
func executeToolCalls(ctx context.Context, calls []ToolCall, reg ToolRegistry, hooks Hooks, st *State) {
	if len(calls) == 0 {
		return
	}

	var wg sync.WaitGroup
	results := make([]toolResult, len(calls))

	for i, call := range calls {
		st.ToolCalls++
		if call.Error != "" {
			results[i] = toolResult{call: call, err: fmt.Errorf("%s", call.Error)}
			continue
		}

		wg.Add(1)
		go func(i int, c ToolCall) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[i] = toolResult{err: ctx.Err(), call: c}
				return
			default:
			}

			hooks.OnToolCall(ctx, st, c)
			res, err := executeTool(ctx, c, reg)
			results[i] = toolResult{content: res, err: err, call: c}
		}(i, call)
	}
	wg.Wait()

	for _, o := range results {
		if o.err != nil {
			o.content = "ERROR: " + o.err.Error()
		}
		st.Append(ChatMessage{Role: RoleTool, Name: toolCallID(o.call), Content: o.content})
		hooks.OnToolResult(ctx, st, o.call, o.content, o.err)
	}
}

// refuseToolCalls answers every call with an error so the history never holds
// unanswered tool calls.
func refuseToolCalls(calls []ToolCall, reason string, st *State) {
	for _, c := range calls {
		st.Append(ChatMessage{Role: RoleTool, Name: toolCallID(c), Content: "ERROR: " + reason})
	}
}

// toolCallID returns the ID providers use to match tool messages to calls.
func toolCallID(c ToolCall) string {
	if c.ID == "" {
		return c.Name
	}
	return c.ID
}
