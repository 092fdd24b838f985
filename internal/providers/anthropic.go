package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ChamsBouzaiene/gitchat/internal/engine"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

const (
	anthropicDefaultMaxTokens   = 4096
	anthropicDefaultTemperature = float32(0.1)
)

// AnthropicClient implements engine.LLMClient with the Anthropic SDK.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client. A non-empty baseURL
// overrides the API endpoint.
func NewAnthropicClient(apiKey, baseURL string) (*AnthropicClient, error) {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &AnthropicClient{client: anthropic.NewClient(apiKey, opts...)}, nil
}

// Chat implements engine.LLMClient.Chat.
func (c *AnthropicClient) Chat(ctx context.Context, modelName string, messages []engine.ChatMessage, toolSchemas []engine.ToolSchema, opts engine.ChatOptions) (engine.LLMResponse, error) {
	req, err := buildAnthropicRequest(modelName, messages, toolSchemas, opts)
	if err != nil {
		return engine.LLMResponse{}, err
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err)
		return engine.LLMResponse{}, engine.WrapLLMError(err, httpStatus, retryAfter)
	}

	var textContent string
	var toolCalls []engine.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			if block.Text != nil {
				textContent += *block.Text
			}
		case anthropic.MessagesContentTypeToolUse:
			if tc, ok := fromAnthropicToolUse(block); ok {
				toolCalls = append(toolCalls, tc)
			}
		}
	}

	finishReason := "stop"
	switch {
	case len(toolCalls) > 0:
		finishReason = "tool_calls"
	case resp.StopReason == anthropic.MessagesStopReasonMaxTokens:
		finishReason = "length"
	}

	return engine.LLMResponse{
		Assistant: engine.ChatMessage{
			Role:      engine.RoleAssistant,
			Content:   textContent,
			ToolCalls: toolCalls,
		},
		ToolCalls:    toolCalls,
		FinishReason: finishReason,
		Usage: engine.Usage{
			Prompt:     resp.Usage.InputTokens,
			Completion: resp.Usage.OutputTokens,
			Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// Stream implements engine.LLMClient.Stream. The SDK streams through
// callbacks, which are adapted to channels here.
func (c *AnthropicClient) Stream(ctx context.Context, modelName string, messages []engine.ChatMessage, toolSchemas []engine.ToolSchema, opts engine.ChatOptions) (<-chan engine.StreamEvent, <-chan error) {
	eventCh := make(chan engine.StreamEvent, 10)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)

		base, err := buildAnthropicRequest(modelName, messages, toolSchemas, opts)
		if err != nil {
			errCh <- err
			return
		}

		send := func(ev engine.StreamEvent) {
			select {
			case eventCh <- ev:
			case <-ctx.Done():
			}
		}

		var streamErr error
		req := anthropic.MessagesStreamRequest{MessagesRequest: base}
		req.OnError = func(errResp anthropic.ErrorResponse) {
			if errResp.Error != nil {
				streamErr = fmt.Errorf("anthropic streaming error: %s", errResp.Error.Message)
			}
		}
		req.OnContentBlockDelta = func(delta anthropic.MessagesEventContentBlockDeltaData) {
			if delta.Delta.Type == anthropic.MessagesContentTypeTextDelta && delta.Delta.Text != nil {
				send(engine.StreamEvent{Type: "text_delta", Text: *delta.Delta.Text})
			}
		}
		req.OnContentBlockStop = func(_ anthropic.MessagesEventContentBlockStopData, content anthropic.MessageContent) {
			if content.Type != anthropic.MessagesContentTypeToolUse {
				return
			}
			if tc, ok := fromAnthropicToolUse(content); ok {
				send(engine.StreamEvent{Type: "tool_call", ToolCall: tc})
			}
		}

		resp, err := c.client.CreateMessagesStream(ctx, req)
		if err != nil {
			httpStatus, retryAfter := extractErrorMetadata(err)
			errCh <- engine.WrapLLMError(err, httpStatus, retryAfter)
			return
		}
		if streamErr != nil {
			errCh <- engine.WrapLLMError(streamErr, 0, "")
			return
		}

		if resp.Usage.InputTokens > 0 {
			send(engine.StreamEvent{Type: "usage", Usage: engine.Usage{
				Prompt:     resp.Usage.InputTokens,
				Completion: resp.Usage.OutputTokens,
				Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
			}})
		}
	}()

	return eventCh, errCh
}

func buildAnthropicRequest(modelName string, messages []engine.ChatMessage, toolSchemas []engine.ToolSchema, opts engine.ChatOptions) (anthropic.MessagesRequest, error) {
	toolDefs, err := toAnthropicTools(toolSchemas)
	if err != nil {
		return anthropic.MessagesRequest{}, err
	}

	maxTokens := anthropicDefaultMaxTokens
	if opts.MaxOutputTokens > 0 {
		maxTokens = opts.MaxOutputTokens
	}
	temperature := anthropicDefaultTemperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}

	system, msgs := toAnthropicMessages(messages)
	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(modelName),
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	}
	if len(system) > 0 {
		req.MultiSystem = system
	}
	if len(toolDefs) > 0 {
		req.Tools = toolDefs
	}
	return req, nil
}

// toAnthropicMessages splits out the system prompt and converts the rest.
// Consecutive tool results are grouped into one user message, and results
// that do not follow a tool_use are dropped.
func toAnthropicMessages(messages []engine.ChatMessage) ([]anthropic.MessageSystemPart, []anthropic.Message) {
	var system []anthropic.MessageSystemPart
	var out []anthropic.Message
	var prevAssistantHadToolCalls bool
	var inToolResults bool

	for _, msg := range messages {
		if msg.Role != engine.RoleTool {
			inToolResults = false
		}

		switch msg.Role {
		case engine.RoleSystem:
			system = append(system, anthropic.MessageSystemPart{Type: "text", Text: msg.Content})
			prevAssistantHadToolCalls = false
		case engine.RoleUser:
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
			})
			prevAssistantHadToolCalls = false
		case engine.RoleAssistant:
			var content []anthropic.MessageContent
			if msg.Content != "" && msg.Content != " " {
				content = append(content, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				argsJSON, _ := json.Marshal(tc.Args)
				content = append(content, anthropic.NewToolUseMessageContent(tc.ID, tc.Name, json.RawMessage(argsJSON)))
			}
			out = append(out, anthropic.Message{Role: anthropic.RoleAssistant, Content: content})
			prevAssistantHadToolCalls = len(msg.ToolCalls) > 0
		case engine.RoleTool:
			if !prevAssistantHadToolCalls {
				continue
			}
			content := msg.Content
			if content == "" {
				content = "{}"
			}
			// msg.Name holds the tool_use_id
			result := anthropic.NewToolResultMessageContent(msg.Name, content, false)
			if inToolResults {
				last := &out[len(out)-1]
				last.Content = append(last.Content, result)
			} else {
				out = append(out, anthropic.Message{
					Role:    anthropic.RoleUser,
					Content: []anthropic.MessageContent{result},
				})
				inToolResults = true
			}
		}
	}
	return system, out
}

func toAnthropicTools(toolSchemas []engine.ToolSchema) ([]anthropic.ToolDefinition, error) {
	var toolDefs []anthropic.ToolDefinition
	for _, ts := range toolSchemas {
		var schemaObj map[string]any
		if err := json.Unmarshal([]byte(ts.JSONSchema), &schemaObj); err != nil {
			return nil, fmt.Errorf("invalid tool schema JSON for %s: %w", ts.Name, err)
		}
		toolDefs = append(toolDefs, anthropic.ToolDefinition{
			Name:        ts.Name,
			Description: ts.Description,
			InputSchema: schemaObj,
		})
	}
	return toolDefs, nil
}

func fromAnthropicToolUse(block anthropic.MessageContent) (engine.ToolCall, bool) {
	if block.MessageContentToolUse == nil || block.ID == "" || block.Name == "" {
		return engine.ToolCall{}, false
	}
	return engine.ToolCall{
		ID:   block.ID,
		Name: block.Name,
		Args: parseArgs(string(block.Input)),
	}, true
}
