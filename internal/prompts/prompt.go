package prompts

// PromptVersion represents a version identifier for prompts.
type PromptVersion string

const (
	// PromptV1 is the first version of prompts.
	PromptV1 PromptVersion = "1.0.0"
)

// Prompt IDs shipped in prompts.yaml.
const (
	System       = "system"
	CodeQA       = "code_qa"
	ReleaseNotes = "release_notes"
)

// Prompt represents a versioned prompt template with metadata.
type Prompt struct {
	ID          string        `yaml:"id"`
	Version     PromptVersion `yaml:"version"`
	Content     string        `yaml:"content"`
	Description string        `yaml:"description"`
	Tags        []string      `yaml:"tags"`
	Variables   []string      `yaml:"variables"` // Names the template expects
	Deprecated  bool          `yaml:"deprecated"`
}
