package prompts

import (
	"fmt"
	"strings"
)

// PromptBuilder fills a registered prompt's variables.
type PromptBuilder struct {
	basePrompt *Prompt
	variables  map[string]string
}

// NewPromptBuilder creates a builder from the latest version of prompt id.
func NewPromptBuilder(registry *PromptRegistry, id string) (*PromptBuilder, error) {
	basePrompt, err := registry.GetLatest(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get base prompt: %w", err)
	}

	return &PromptBuilder{
		basePrompt: basePrompt,
		variables:  make(map[string]string),
	}, nil
}

// SetVariable sets a variable for substitution.
func (b *PromptBuilder) SetVariable(key, value string) *PromptBuilder {
	b.variables[key] = value
	return b
}

// Build constructs the final prompt string. Every declared variable must
// have been set. Substitution is a single pass, so values that themselves
// contain {{name}} are left as written.
func (b *PromptBuilder) Build() (string, error) {
	for _, name := range b.basePrompt.Variables {
		if _, ok := b.variables[name]; !ok {
			return "", fmt.Errorf("prompt %s: variable %s not set", b.basePrompt.ID, name)
		}
	}

	pairs := make([]string, 0, len(b.variables)*2)
	for key, value := range b.variables {
		pairs = append(pairs, placeholder(key), value)
	}
	return strings.NewReplacer(pairs...).Replace(b.basePrompt.Content), nil
}

// Render builds prompt id from the default registry with vars.
func Render(id string, vars map[string]string) (string, error) {
	b, err := NewPromptBuilder(DefaultRegistry(), id)
	if err != nil {
		return "", err
	}
	for k, v := range vars {
		b.SetVariable(k, v)
	}
	return b.Build()
}

func placeholder(name string) string {
	return "{{" + name + "}}"
}
