package gitops

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Commit is a summary of one commit.
type Commit struct {
	Hash    string
	Subject string // first line of the message
	Author  string
	Email   string
	When    time.Time
}

const dateLayout = "2006-01-02 15:04:05"

// RecentCommits returns up to n commits reachable from HEAD, newest first.
// An empty repository yields ErrNoCommits.
func (r *Repository) RecentCommits(n int) ([]Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, ErrNoCommits
		}
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("failed to read commit log: %w", err)
	}
	defer iter.Close()

	var commits []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if len(commits) >= n {
			return storer.ErrStop
		}
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Subject: subject(c.Message),
			Author:  c.Author.Name,
			Email:   c.Author.Email,
			When:    c.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk commit log: %w", err)
	}
	if len(commits) == 0 {
		return nil, ErrNoCommits
	}
	return commits, nil
}

func subject(message string) string {
	message = strings.TrimSpace(message)
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		return strings.TrimSpace(message[:i])
	}
	return message
}

// FormatCommitList renders commits as a numbered list with author and date,
// the form shown before committing and returned by the get_commits tool.
func FormatCommitList(commits []Commit) string {
	var b strings.Builder
	for i, c := range commits {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Subject)
		fmt.Fprintf(&b, "   - Author: %s\n", c.Author)
		fmt.Fprintf(&b, "   - Date: %s\n\n", c.When.Local().Format(dateLayout))
	}
	return b.String()
}

// FormatReleaseList renders commits as bullet points under a
// "Release Notes:" header.
func FormatReleaseList(commits []Commit) string {
	var b strings.Builder
	b.WriteString("Release Notes:\n")
	for _, c := range commits {
		fmt.Fprintf(&b, "- %s (%s on %s)\n", c.Subject, c.Author, c.When.Local().Format(dateLayout))
	}
	return b.String()
}
