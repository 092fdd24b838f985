package prompts

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var embeddedPrompts []byte

type promptFile struct {
	Prompts []*Prompt `yaml:"prompts"`
}

// Load parses a prompts YAML document into a new registry.
func Load(data []byte) (*PromptRegistry, error) {
	var file promptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}

	registry := NewPromptRegistry()
	for i, p := range file.Prompts {
		if p == nil || strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("prompt %d has no id", i)
		}
		if p.Version == "" {
			p.Version = PromptV1
		}
		for _, v := range p.Variables {
			if !strings.Contains(p.Content, placeholder(v)) {
				return nil, fmt.Errorf("prompt %s declares variable %s but never uses it", p.ID, v)
			}
		}
		registry.Register(p)
	}
	return registry, nil
}

func mustLoadEmbedded() *PromptRegistry {
	registry, err := Load(embeddedPrompts)
	if err != nil {
		panic(fmt.Sprintf("embedded prompts are invalid: %v", err))
	}
	return registry
}
