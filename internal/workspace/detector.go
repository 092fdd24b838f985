// Package workspace guesses the main language of a repository so the chat
// model knows what kind of project it is talking about.
package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

// ProjectType represents the type of project.
type ProjectType string

const (
	ProjectTypeGo      ProjectType = "go"
	ProjectTypeNode    ProjectType = "node"
	ProjectTypePython  ProjectType = "python"
	ProjectTypeRust    ProjectType = "rust"
	ProjectTypeDotNet  ProjectType = "dotnet"
	ProjectTypeJava    ProjectType = "java"
	ProjectTypeUnknown ProjectType = "unknown"
)

// minExtensionMatches is how many files of one kind the root must hold
// before the extension fallback trusts them.
const minExtensionMatches = 3

var manifests = []struct {
	pattern string
	kind    ProjectType
}{
	{"go.mod", ProjectTypeGo},
	{"package.json", ProjectTypeNode},
	{"pyproject.toml", ProjectTypePython},
	{"requirements.txt", ProjectTypePython},
	{"Cargo.toml", ProjectTypeRust},
	{"*.sln", ProjectTypeDotNet},
	{"*.csproj", ProjectTypeDotNet},
	{"pom.xml", ProjectTypeJava},
	{"build.gradle", ProjectTypeJava},
}

var extensions = map[string]ProjectType{
	".go":   ProjectTypeGo,
	".ts":   ProjectTypeNode,
	".tsx":  ProjectTypeNode,
	".js":   ProjectTypeNode,
	".jsx":  ProjectTypeNode,
	".py":   ProjectTypePython,
	".rs":   ProjectTypeRust,
	".cs":   ProjectTypeDotNet,
	".java": ProjectTypeJava,
}

// DetectProjectType detects the project type from manifest files in
// repoRoot, falling back to the most common source extension there.
func DetectProjectType(repoRoot string) ProjectType {
	for _, m := range manifests {
		matches, err := filepath.Glob(filepath.Join(repoRoot, m.pattern))
		if err == nil && len(matches) > 0 {
			return m.kind
		}
	}

	entries, err := os.ReadDir(repoRoot)
	if err != nil {
		return ProjectTypeUnknown
	}

	counts := make(map[ProjectType]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if kind, ok := extensions[strings.ToLower(filepath.Ext(entry.Name()))]; ok {
			counts[kind]++
		}
	}

	detected, maxCount := ProjectTypeUnknown, 0
	for _, kind := range []ProjectType{ProjectTypeGo, ProjectTypeNode, ProjectTypePython, ProjectTypeRust, ProjectTypeDotNet, ProjectTypeJava} {
		if counts[kind] > maxCount {
			detected, maxCount = kind, counts[kind]
		}
	}
	if maxCount < minExtensionMatches {
		return ProjectTypeUnknown
	}
	return detected
}

// Describe returns a short human label for the prompt, e.g. "Go".
func (p ProjectType) Describe() string {
	switch p {
	case ProjectTypeGo:
		return "Go"
	case ProjectTypeNode:
		return "JavaScript/TypeScript (Node.js)"
	case ProjectTypePython:
		return "Python"
	case ProjectTypeRust:
		return "Rust"
	case ProjectTypeDotNet:
		return "C#/.NET"
	case ProjectTypeJava:
		return "Java"
	default:
		return "unknown"
	}
}
