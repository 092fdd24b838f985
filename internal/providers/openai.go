package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/ChamsBouzaiene/gitchat/internal/engine"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIClient implements engine.LLMClient with the OpenAI SDK. It serves
// OpenAI, Azure OpenAI and every OpenAI-compatible endpoint.
type OpenAIClient struct {
	client  *openai.Client
	baseURL string
}

// NewOpenAIClient creates a client for OpenAI or a compatible base URL.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(config),
		baseURL: baseURL,
	}, nil
}

// NewAzureOpenAIClient creates a client for an Azure OpenAI resource. The
// model name passed to Chat and Stream is used as the deployment name.
func NewAzureOpenAIClient(apiKey, endpoint, apiVersion string) (*OpenAIClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("azure endpoint is required")
	}
	config := openai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		config.APIVersion = apiVersion
	}
	config.AzureModelMapperFunc = func(model string) string {
		return model
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(config),
		baseURL: endpoint,
	}, nil
}

// Chat implements engine.LLMClient.Chat.
func (c *OpenAIClient) Chat(ctx context.Context, modelName string, messages []engine.ChatMessage, toolSchemas []engine.ToolSchema, opts engine.ChatOptions) (engine.LLMResponse, error) {
	req, err := buildOpenAIRequest(modelName, messages, toolSchemas, opts)
	if err != nil {
		return engine.LLMResponse{}, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err)
		return engine.LLMResponse{}, engine.WrapLLMError(err, httpStatus, retryAfter)
	}

	if len(resp.Choices) == 0 {
		return engine.LLMResponse{}, fmt.Errorf("empty response from OpenAI")
	}

	choice := resp.Choices[0]
	toolCalls := fromOpenAIToolCalls(choice.Message.ToolCalls)

	return engine.LLMResponse{
		Assistant: engine.ChatMessage{
			Role:      engine.RoleAssistant,
			Content:   choice.Message.Content,
			ToolCalls: toolCalls,
		},
		ToolCalls:    toolCalls,
		FinishReason: openAIFinishReason(choice.FinishReason, len(toolCalls) > 0),
		Usage: engine.Usage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Stream implements engine.LLMClient.Stream.
func (c *OpenAIClient) Stream(ctx context.Context, modelName string, messages []engine.ChatMessage, toolSchemas []engine.ToolSchema, opts engine.ChatOptions) (<-chan engine.StreamEvent, <-chan error) {
	eventCh := make(chan engine.StreamEvent, 10)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)

		req, err := buildOpenAIRequest(modelName, messages, toolSchemas, opts)
		if err != nil {
			errCh <- err
			return
		}
		req.Stream = true
		req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

		stream, err := c.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			httpStatus, retryAfter := extractErrorMetadata(err)
			errCh <- engine.WrapLLMError(err, httpStatus, retryAfter)
			return
		}
		defer stream.Close()

		send := func(ev engine.StreamEvent) bool {
			select {
			case eventCh <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		acc := newToolCallAccumulator()
		var finalUsage engine.Usage

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				httpStatus, retryAfter := extractErrorMetadata(err)
				errCh <- engine.WrapLLMError(err, httpStatus, retryAfter)
				return
			}

			// The final chunk carries usage and no choices when IncludeUsage is set
			if response.Usage != nil && response.Usage.TotalTokens > 0 {
				finalUsage = engine.Usage{
					Prompt:     response.Usage.PromptTokens,
					Completion: response.Usage.CompletionTokens,
					Total:      response.Usage.TotalTokens,
				}
			}
			if len(response.Choices) == 0 {
				continue
			}

			delta := response.Choices[0].Delta
			if delta.Content != "" {
				if !send(engine.StreamEvent{Type: "text_delta", Text: delta.Content}) {
					return
				}
			}
			for _, tcDelta := range delta.ToolCalls {
				acc.add(tcDelta)
			}
		}

		for _, tc := range acc.calls() {
			if !send(engine.StreamEvent{Type: "tool_call", ToolCall: tc}) {
				return
			}
		}
		if finalUsage.Total > 0 {
			send(engine.StreamEvent{Type: "usage", Usage: finalUsage})
		}
	}()

	return eventCh, errCh
}

// buildOpenAIRequest converts engine messages and tools into a chat request.
func buildOpenAIRequest(modelName string, messages []engine.ChatMessage, toolSchemas []engine.ToolSchema, opts engine.ChatOptions) (openai.ChatCompletionRequest, error) {
	tools, err := toOpenAITools(toolSchemas)
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}

	req := openai.ChatCompletionRequest{
		Model:    modelName,
		Messages: toOpenAIMessages(messages),
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}
	if opts.MaxOutputTokens > 0 {
		req.MaxTokens = opts.MaxOutputTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = &opts.Temperature
	}
	return req, nil
}

// toOpenAIMessages converts the history. System messages are merged into one
// leading message; tool results that do not follow an assistant tool call
// are dropped because the API rejects them.
func toOpenAIMessages(messages []engine.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	var system []string
	var prevAssistantHadToolCalls bool

	for _, msg := range messages {
		switch msg.Role {
		case engine.RoleSystem:
			system = append(system, msg.Content)
			prevAssistantHadToolCalls = false
		case engine.RoleUser:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Content,
			})
			prevAssistantHadToolCalls = false
		case engine.RoleAssistant:
			// The SDK serializes "" as null, which the API rejects next to tool calls
			content := msg.Content
			if content == "" {
				content = " "
			}

			var toolCalls []openai.ToolCall
			for _, tc := range msg.ToolCalls {
				argsJSON, _ := json.Marshal(tc.Args)
				toolCalls = append(toolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(argsJSON),
					},
				})
			}

			out = append(out, openai.ChatCompletionMessage{
				Role:      openai.ChatMessageRoleAssistant,
				Content:   content,
				ToolCalls: toolCalls,
			})
			prevAssistantHadToolCalls = len(msg.ToolCalls) > 0
		case engine.RoleTool:
			if !prevAssistantHadToolCalls {
				continue
			}
			content := msg.Content
			if content == "" {
				content = "{}"
			}
			// msg.Name holds the tool_call_id
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: msg.Name,
				Content:    content,
			})
		}
	}

	if len(system) > 0 {
		out = append([]openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleSystem,
			Content: strings.Join(system, "\n\n"),
		}}, out...)
	}
	return out
}

func toOpenAITools(toolSchemas []engine.ToolSchema) ([]openai.Tool, error) {
	var tools []openai.Tool
	for _, ts := range toolSchemas {
		var schemaObj map[string]any
		if err := json.Unmarshal([]byte(ts.JSONSchema), &schemaObj); err != nil {
			return nil, fmt.Errorf("invalid tool schema JSON for %s: %w", ts.Name, err)
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ts.Name,
				Description: ts.Description,
				Parameters:  schemaObj,
			},
		})
	}
	return tools, nil
}

func fromOpenAIToolCalls(calls []openai.ToolCall) []engine.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]engine.ToolCall, 0, len(calls))
	for _, tc := range calls {
		out = append(out, engine.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: parseArgs(tc.Function.Arguments),
		})
	}
	return out
}

func openAIFinishReason(reason openai.FinishReason, hasToolCalls bool) string {
	switch {
	case hasToolCalls:
		return "tool_calls"
	case reason == openai.FinishReasonLength:
		return "length"
	case reason == openai.FinishReasonContentFilter:
		return "content_filter"
	default:
		return "stop"
	}
}

// parseArgs decodes JSON arguments, yielding an empty map on bad input.
func parseArgs(raw string) map[string]any {
	args := make(map[string]any)
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return make(map[string]any)
	}
	return args
}

// toolCallAccumulator rebuilds tool calls from streamed deltas. OpenAI sends
// the ID and name once and the arguments in fragments, keyed by index.
type toolCallAccumulator struct {
	byIndex map[int]*pendingToolCall
}

type pendingToolCall struct {
	index int
	call  engine.ToolCall
	args  strings.Builder
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{byIndex: make(map[int]*pendingToolCall)}
}

func (a *toolCallAccumulator) add(delta openai.ToolCall) {
	index := len(a.byIndex)
	if delta.Index != nil {
		index = *delta.Index
	} else if delta.ID != "" {
		for _, p := range a.byIndex {
			if p.call.ID == delta.ID {
				index = p.index
				break
			}
		}
	} else if len(a.byIndex) > 0 {
		index = len(a.byIndex) - 1
	}

	p, ok := a.byIndex[index]
	if !ok {
		p = &pendingToolCall{index: index}
		a.byIndex[index] = p
	}
	if delta.ID != "" {
		p.call.ID = delta.ID
	}
	if delta.Function.Name != "" {
		p.call.Name = delta.Function.Name
	}
	p.args.WriteString(delta.Function.Arguments)
}

// calls returns the completed calls in index order. Calls whose arguments
// are missing or not valid JSON carry an Error for the engine to report.
func (a *toolCallAccumulator) calls() []engine.ToolCall {
	pending := make([]*pendingToolCall, 0, len(a.byIndex))
	for _, p := range a.byIndex {
		if p.call.Name == "" {
			continue
		}
		pending = append(pending, p)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].index < pending[j].index })

	out := make([]engine.ToolCall, 0, len(pending))
	for _, p := range pending {
		tc := p.call
		if tc.ID == "" {
			tc.ID = fmt.Sprintf("call_%d", p.index)
		}
		raw := strings.TrimSpace(p.args.String())
		switch {
		case raw == "":
			tc.Args = make(map[string]any)
		default:
			var args map[string]any
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				log.Printf("⚠️  Tool call %s (ID: %s) has invalid JSON arguments (%d bytes): %v", tc.Name, tc.ID, len(raw), err)
				tc.Error = fmt.Sprintf("Invalid JSON in arguments: %v", err)
				tc.Args = make(map[string]any)
			} else {
				tc.Args = args
			}
		}
		out = append(out, tc)
	}
	return out
}

// extractErrorMetadata extracts the HTTP status code and Retry-After value
// from an SDK error.
func extractErrorMetadata(err error) (int, string) {
	if err == nil {
		return 0, ""
	}

	var httpStatus int
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		httpStatus = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		httpStatus = reqErr.HTTPStatusCode
	}

	errStr := err.Error()
	if httpStatus == 0 {
		for _, code := range []int{
			http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusUnauthorized,
			http.StatusForbidden, http.StatusBadRequest, http.StatusPaymentRequired,
		} {
			if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
				httpStatus = code
				break
			}
		}
	}

	var retryAfter string
	lower := strings.ToLower(errStr)
	for _, marker := range []string{"retry-after", "retry after"} {
		if idx := strings.Index(lower, marker); idx != -1 {
			parts := strings.Fields(strings.TrimLeft(errStr[idx+len(marker):], ": "))
			if len(parts) > 0 {
				retryAfter = parts[0]
			}
			break
		}
	}

	return httpStatus, retryAfter
}
