package providers

import (
	"strings"
	"testing"
)

func TestNewLLMClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
		check   func(t *testing.T, c any)
	}{
		{
			name: "azure is the default",
			cfg:  Config{APIKey: "k", Endpoint: "https://example.openai.azure.com"},
			check: func(t *testing.T, c any) {
				oc, ok := c.(*OpenAIClient)
				if !ok || oc.baseURL != "https://example.openai.azure.com" {
					t.Errorf("client = %#v", c)
				}
			},
		},
		{
			name:    "azure requires endpoint",
			cfg:     Config{Provider: "azure", APIKey: "k"},
			wantErr: "endpoint is required",
		},
		{
			name: "groq uses its compatible base url",
			cfg:  Config{Provider: "Groq", APIKey: "k"},
			check: func(t *testing.T, c any) {
				oc, ok := c.(*OpenAIClient)
				if !ok || oc.baseURL != "https://api.groq.com/openai/v1" {
					t.Errorf("client = %#v", c)
				}
			},
		},
		{
			name: "explicit endpoint wins",
			cfg:  Config{Provider: "ollama", Endpoint: "http://gpu-box:11434/v1"},
			check: func(t *testing.T, c any) {
				oc, ok := c.(*OpenAIClient)
				if !ok || oc.baseURL != "http://gpu-box:11434/v1" {
					t.Errorf("client = %#v", c)
				}
			},
		},
		{
			name: "anthropic",
			cfg:  Config{Provider: "anthropic", APIKey: "k"},
			check: func(t *testing.T, c any) {
				if _, ok := c.(*AnthropicClient); !ok {
					t.Errorf("client = %T, want *AnthropicClient", c)
				}
			},
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "palm"},
			wantErr: "unknown provider: palm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewLLMClient(tt.cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("NewLLMClient() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLLMClient() error = %v", err)
			}
			tt.check(t, client)
		})
	}
}
