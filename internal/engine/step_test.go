package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// Mock tool function
func mockToolFn(ctx context.Context, args map[string]any) (string, error) {
	if val, ok := args["should_error"]; ok && val.(bool) {
		return "", errors.New("mock error")
	}
	return "success", nil
}

func newMockRegistry() ToolRegistry {
	reg := make(ToolRegistry)
	reg.Register(Tool{
		Name:       "mock_tool",
		Fn:         mockToolFn,
		SchemaJSON: `{"type": "object", "properties": {"should_error": {"type": "boolean"}}}`,
	})
	reg.Register(Tool{
		Name: "get_commits",
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			return "commits of " + args["repo_path"].(string), nil
		},
		SchemaJSON: `{"type": "object", "properties": {"repo_path": {"type": "string"}}, "required": ["repo_path"]}`,
	})
	return reg
}

func TestExecuteTool(t *testing.T) {
	ctx := context.Background()
	reg := newMockRegistry()

	tests := []struct {
		name    string
		call    ToolCall
		want    string
		wantErr bool
	}{
		{
			name:    "success",
			call:    ToolCall{Name: "mock_tool", Args: map[string]any{"should_error": false}},
			want:    "success",
			wantErr: false,
		},
		{
			name:    "tool execution error",
			call:    ToolCall{Name: "mock_tool", Args: map[string]any{"should_error": true}},
			want:    "",
			wantErr: true,
		},
		{
			name:    "tool not found",
			call:    ToolCall{Name: "non_existent_tool", Args: map[string]any{}},
			want:    "",
			wantErr: true,
		},
		{
			name:    "missing required argument",
			call:    ToolCall{Name: "get_commits", Args: map[string]any{}},
			want:    "",
			wantErr: true,
		},
		{
			name:    "wrong argument type",
			call:    ToolCall{Name: "get_commits", Args: map[string]any{"repo_path": 42}},
			want:    "",
			wantErr: true,
		},
		{
			name:    "valid arguments",
			call:    ToolCall{Name: "get_commits", Args: map[string]any{"repo_path": "/repo"}},
			want:    "commits of /repo",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := executeTool(ctx, tt.call, reg)
			if (err != nil) != tt.wantErr {
				t.Errorf("executeTool() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("executeTool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToolValidationError(t *testing.T) {
	reg := newMockRegistry()
	err := reg["get_commits"].ValidateArgs(map[string]any{})

	var verr *ToolValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ValidateArgs() error = %v, want *ToolValidationError", err)
	}
	if verr.ToolName != "get_commits" || len(verr.Errors) == 0 {
		t.Errorf("ToolValidationError = %+v", verr)
	}
}

func TestExecuteToolCalls(t *testing.T) {
	ctx := context.Background()
	reg := newMockRegistry()

	tests := []struct {
		name        string
		calls       []ToolCall
		wantResults []string // prefix of each appended tool message, in order
	}{
		{
			name:        "single success",
			calls:       []ToolCall{{ID: "call_1", Name: "mock_tool", Args: map[string]any{}}},
			wantResults: []string{"success"},
		},
		{
			name: "results keep call order",
			calls: []ToolCall{
				{ID: "call_2", Name: "get_commits", Args: map[string]any{"repo_path": "/a"}},
				{ID: "call_3", Name: "mock_tool", Args: map[string]any{"should_error": true}},
				{ID: "call_4", Name: "get_commits", Args: map[string]any{"repo_path": "/b"}},
			},
			wantResults: []string{"commits of /a", "ERROR: execution failed", "commits of /b"},
		},
		{
			name:        "incomplete call from provider",
			calls:       []ToolCall{{ID: "call_5", Name: "mock_tool", Error: "stream ended before arguments completed"}},
			wantResults: []string{"ERROR: stream ended"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &State{History: NewHistory("", HistoryConfig{Tokenizer: DefaultTokenizer{}}), Model: "test-model"}

			executeToolCalls(ctx, tt.calls, reg, Hooks{}, st)

			msgs := st.History.Messages()
			if len(msgs) != len(tt.wantResults) {
				t.Fatalf("History length = %d, want %d", len(msgs), len(tt.wantResults))
			}
			for i, msg := range msgs {
				if msg.Role != RoleTool {
					t.Errorf("message %d role = %s, want tool", i, msg.Role)
				}
				if msg.Name != tt.calls[i].ID {
					t.Errorf("message %d name = %q, want call ID %q", i, msg.Name, tt.calls[i].ID)
				}
				if !strings.HasPrefix(msg.Content, tt.wantResults[i]) {
					t.Errorf("message %d content = %q, want prefix %q", i, msg.Content, tt.wantResults[i])
				}
			}
		})
	}
}

func TestToolRegistrySchemasSorted(t *testing.T) {
	schemas := newMockRegistry().Schemas()
	if len(schemas) != 2 || schemas[0].Name != "get_commits" || schemas[1].Name != "mock_tool" {
		t.Errorf("Schemas() = %+v, want sorted by name", schemas)
	}
}
