package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_HasShippedPrompts(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, []string{CodeQA, ReleaseNotes, System}, reg.List())
}

func TestRender_CodeQA(t *testing.T) {
	out, err := Render(CodeQA, map[string]string{
		"context": "// From: calc.cs\npublic int Add(int a, int b) {\n\n",
		"query":   "what does Add do?",
	})
	require.NoError(t, err)

	want := "You are a code assistant. Use the context below to answer the question.\n\n" +
		"Context:\n// From: calc.cs\npublic int Add(int a, int b) {\n\n\n\n" +
		"Question: what does Add do?"
	assert.Equal(t, want, out)
}

func TestRender_ValuesAreNotReexpanded(t *testing.T) {
	out, err := Render(CodeQA, map[string]string{
		"context": "template uses {{query}} literally",
		"query":   "q",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "template uses {{query}} literally")
}

func TestRender_MissingVariable(t *testing.T) {
	_, err := Render(ReleaseNotes, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variable commits not set")
}

func TestRender_UnknownPrompt(t *testing.T) {
	_, err := Render("nope", nil)
	require.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad yaml", "prompts: [", "failed to parse prompts"},
		{"missing id", "prompts:\n  - content: hi\n", "has no id"},
		{"unused variable", "prompts:\n  - id: x\n    variables: [name]\n    content: hello\n", "never uses it"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetLatest_SkipsDeprecated(t *testing.T) {
	reg := NewPromptRegistry()
	reg.Register(&Prompt{ID: "p", Version: "1.0.0", Content: "one"})
	reg.Register(&Prompt{ID: "p", Version: "2.0.0", Content: "two", Deprecated: true})

	p, err := reg.GetLatest("p")
	require.NoError(t, err)
	assert.Equal(t, "one", p.Content)

	reg.Register(&Prompt{ID: "q", Version: "1.0.0", Deprecated: true, Content: "old"})
	p, err = reg.GetLatest("q")
	require.NoError(t, err)
	assert.Equal(t, "old", p.Content)
}


func TestGetLatest_ComparesSemanticVersions(t *testing.T) {
	reg := NewPromptRegistry()
	reg.Register(&Prompt{ID: "p", Version: "1.10.0", Content: "ten"})
	reg.Register(&Prompt{ID: "p", Version: "1.9.0", Content: "nine"})
	reg.Register(&Prompt{ID: "p", Version: "1.2.0", Content: "two"})

	p, err := reg.GetLatest("p")
	require.NoError(t, err)
	assert.Equal(t, "ten", p.Content)

	reg.Register(&Prompt{ID: "p", Version: "2.0.0-beta", Content: "beta"})
	p, err = reg.GetLatest("p")
	require.NoError(t, err)
	assert.Equal(t, "beta", p.Content)
}

func TestNewerVersion(t *testing.T) {
	assert.True(t, newerVersion("1.10.0", "1.9.0"))
	assert.False(t, newerVersion("1.9.0", "1.10.0"))
	assert.True(t, newerVersion("v2.0.0", "1.9.9"))
	assert.True(t, newerVersion("1.0.0", "draft"))
	assert.False(t, newerVersion("draft", "1.0.0"))
	assert.True(t, newerVersion("draft-b", "draft-a"))
}
