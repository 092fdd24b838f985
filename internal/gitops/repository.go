// Package gitops runs the Git operations behind the console commands:
// reading recent commits, committing the whole worktree, and pushing to or
// pulling from the origin remote.
package gitops

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var (
	// ErrNotRepository is returned for a path without a .git directory.
	ErrNotRepository = errors.New("not a git repository")
	// ErrNoCommits is returned when a repository has no commits yet.
	ErrNoCommits = errors.New("no commits found")
	// ErrNothingToCommit is returned when the worktree is clean.
	ErrNothingToCommit = errors.New("nothing to commit")
)

// Repository is an opened local Git repository.
type Repository struct {
	path string
	repo *git.Repository
}

// IsRepository reports whether path contains a .git directory.
func IsRepository(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}

// Open opens the repository at path.
func Open(path string) (*Repository, error) {
	if !IsRepository(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRepository)
	}
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w", path, err)
	}
	return &Repository{path: path, repo: repo}, nil
}

// Path returns the repository root.
func (r *Repository) Path() string {
	return r.path
}

// CurrentBranch returns the short name of the branch HEAD points to.
func (r *Repository) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", ErrNoCommits
		}
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", head.Hash().String()[:7])
	}
	return head.Name().Short(), nil
}
