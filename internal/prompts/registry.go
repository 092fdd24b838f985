package prompts

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"golang.org/x/mod/semver"
)

// PromptRegistry holds every version of each prompt.
type PromptRegistry struct {
	mu       sync.RWMutex
	versions map[string][]*Prompt // newest version first
}

// DefaultRegistry returns the registry holding the embedded prompts.
var DefaultRegistry = sync.OnceValue(mustLoadEmbedded)

// NewPromptRegistry creates an empty prompt registry.
func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{versions: make(map[string][]*Prompt)}
}

// Register adds p, replacing a prompt with the same ID and version.
func (r *PromptRegistry) Register(p *Prompt) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	list := slices.DeleteFunc(r.versions[p.ID], func(old *Prompt) bool {
		return old.Version == p.Version
	})
	list = append(list, p)
	sort.SliceStable(list, func(i, j int) bool { return newerVersion(string(list[i].Version), string(list[j].Version)) })
	r.versions[p.ID] = list
}

// GetLatest returns the newest non-deprecated version of a prompt, or the
// newest version when all are deprecated.
func (r *PromptRegistry) GetLatest(id string) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.versions[id]
	if len(list) == 0 {
		return nil, fmt.Errorf("prompt not found: %s", id)
	}
	for _, p := range list {
		if !p.Deprecated {
			return p, nil
		}
	}
	return list[0], nil
}

// List returns the registered prompt IDs, sorted.
func (r *PromptRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.versions))
	for id := range r.versions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// newerVersion reports whether version a sorts before b, newest first.
// Semantic versions compare numerically and outrank invalid ones; two
// invalid versions compare as strings.
func newerVersion(a, b string) bool {
	va, vb := canonicalVersion(a), canonicalVersion(b)
	switch {
	case semver.IsValid(va) && semver.IsValid(vb):
		return semver.Compare(va, vb) > 0
	case semver.IsValid(va) != semver.IsValid(vb):
		return semver.IsValid(va)
	default:
		return a > b
	}
}

func canonicalVersion(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
