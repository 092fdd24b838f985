package gitops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// DefaultRemote is the remote used for push and pull.
const DefaultRemote = "origin"

// Signature identifies the author and committer of new commits.
type Signature struct {
	Name  string
	Email string
}

// DefaultSignature is used when no signature is configured.
var DefaultSignature = Signature{Name: "ChatBot", Email: "chatbot@example.com"}

// Credentials authenticate against the remote over HTTPS.
type Credentials struct {
	Username string
	Token    string
}

func (c Credentials) auth() transport.AuthMethod {
	if c.Token == "" {
		return nil
	}
	return &http.BasicAuth{Username: c.Username, Password: c.Token}
}

// SyncOptions configures Push and Pull.
type SyncOptions struct {
	Remote      string // Default: origin
	Branch      string // Default: the current branch
	Credentials Credentials
}

// PullStatus is the outcome of a successful pull.
type PullStatus string

const (
	PullFastForward PullStatus = "FastForward"
	PullUpToDate    PullStatus = "UpToDate"
)

// CommitAll stages every change in the worktree, additions and deletions
// included, and commits it with sig as author and committer. It returns the
// new commit hash.
func (r *Repository) CommitAll(message string, sig Signature) (string, error) {
	if sig.Name == "" {
		sig = DefaultSignature
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("failed to stage changes: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("failed to read status: %w", err)
	}
	if status.IsClean() {
		return "", ErrNothingToCommit
	}

	author := &object.Signature{Name: sig.Name, Email: sig.Email, When: time.Now()}
	hash, err := wt.Commit(message, &git.CommitOptions{Author: author, Committer: author})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			return "", ErrNothingToCommit
		}
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return hash.String(), nil
}

func (r *Repository) resolveSync(opts SyncOptions) (SyncOptions, error) {
	if opts.Remote == "" {
		opts.Remote = DefaultRemote
	}
	if opts.Branch == "" {
		branch, err := r.CurrentBranch()
		if err != nil {
			return opts, err
		}
		opts.Branch = branch
	}
	return opts, nil
}

// Push pushes the branch to the remote. It reports false when the remote
// was already up to date.
func (r *Repository) Push(ctx context.Context, opts SyncOptions) (bool, error) {
	opts, err := r.resolveSync(opts)
	if err != nil {
		return false, err
	}

	ref := plumbing.NewBranchReferenceName(opts.Branch)
	err = r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: opts.Remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(ref + ":" + ref)},
		Auth:       opts.Credentials.auth(),
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to push %s to %s: %w", opts.Branch, opts.Remote, err)
	}
	return true, nil
}

// Pull fast-forwards the current branch from the remote.
func (r *Repository) Pull(ctx context.Context, opts SyncOptions) (PullStatus, error) {
	opts, err := r.resolveSync(opts)
	if err != nil {
		return "", err
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}

	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    opts.Remote,
		ReferenceName: plumbing.NewBranchReferenceName(opts.Branch),
		SingleBranch:  true,
		Auth:          opts.Credentials.auth(),
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return PullUpToDate, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to pull %s from %s: %w", opts.Branch, opts.Remote, err)
	}
	return PullFastForward, nil
}
