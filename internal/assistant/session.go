package assistant

import (
	"errors"

	"github.com/ChamsBouzaiene/gitchat/internal/gitops"
)

// ErrNoRepository means no valid repository path was given.
var ErrNoRepository = errors.New("no repository selected")

// Session holds the state shared by commands for the life of the process.
type Session struct {
	repoPath string
}

// RepoPath returns the current repository path and whether one is set and
// still points at a Git repository.
func (s *Session) RepoPath() (string, bool) {
	if s.repoPath == "" || !gitops.IsRepository(s.repoPath) {
		return "", false
	}
	return s.repoPath, true
}

// SetRepoPath records path as the current repository.
func (s *Session) SetRepoPath(path string) {
	s.repoPath = path
}

// Clear forgets the current repository.
func (s *Session) Clear() {
	s.repoPath = ""
}
