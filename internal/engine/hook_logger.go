package engine

import (
	"context"
	"log"
)

// LoggerHook writes one diagnostic line per LLM call and tool call.
type LoggerHook struct {
	NopHook
	L *log.Logger
}

func (h LoggerHook) OnBeforeLLM(_ context.Context, st *State, msgs []ChatMessage, toolSchemas []ToolSchema) {
	tokenizer := GetTokenizerForModel(st.Model)
	messageTokens, _ := CountTokensForMessages(tokenizer, msgs, st.Model)

	toolSchemaTokens := 0
	for _, schema := range toolSchemas {
		nameTokens, _ := tokenizer.CountTokens(schema.Name, st.Model)
		descTokens, _ := tokenizer.CountTokens(schema.Description, st.Model)
		schemaTokens, _ := tokenizer.CountTokens(schema.JSONSchema, st.Model)
		toolSchemaTokens += nameTokens + descTokens + schemaTokens + 10 // +10 for overhead per tool
	}

	h.L.Printf("📤 round=%d: %d msgs | 💰 tokens: messages=~%d, tools=~%d, TOTAL=~%d (cumulative=%d)",
		st.Round, len(msgs), messageTokens, toolSchemaTokens, messageTokens+toolSchemaTokens, st.Totals.Total)
}
func (h LoggerHook) OnAfterLLM(_ context.Context, st *State, r LLMResponse) {
	h.L.Printf("finish=%s tokens: prompt=%d completion=%d total=%d (cumulative=%d)",
		r.FinishReason, r.Usage.Prompt, r.Usage.Completion, r.Usage.Total, st.Totals.Total)
}
func (h LoggerHook) OnToolCall(_ context.Context, _ *State, c ToolCall) {
	h.L.Printf("tool → %s args=%v", c.Name, c.Args)
}
func (h LoggerHook) OnToolResult(_ context.Context, _ *State, c ToolCall, result string, err error) {
	if err != nil {
		h.L.Printf("tool %s error: %v", c.Name, err)
		return
	}
	resultPreview := result
	if len(resultPreview) > 100 {
		resultPreview = resultPreview[:100] + "..."
	}
	h.L.Printf("tool %s result: %s", c.Name, resultPreview)
}
func (h LoggerHook) OnDone(_ context.Context, st *State) {
	h.L.Printf("done: rounds=%d tokens=%d", st.Round, st.Totals.Total)
}
