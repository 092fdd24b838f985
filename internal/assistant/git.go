package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/gitchat/internal/engine"
	"github.com/ChamsBouzaiene/gitchat/internal/gitops"
	"github.com/ChamsBouzaiene/gitchat/internal/prompts"
)

func (a *Assistant) releaseNotes(ctx context.Context) error {
	repo, err := a.openRepo(ctx)
	if err != nil {
		return err
	}

	commits, err := repo.RecentCommits(a.git.CommitCount)
	if errors.Is(err, gitops.ErrNoCommits) {
		a.console.Println("No commits found.")
		return nil
	}
	if err != nil {
		return err
	}

	prompt, err := prompts.Render(prompts.ReleaseNotes, map[string]string{
		"commits": gitops.FormatCommitList(commits),
	})
	if err != nil {
		return err
	}

	stop := a.console.Spin("Writing release notes...")
	notes, err := engine.Complete(ctx, a.llm, a.model, prompt, a.chat)
	stop()
	if err != nil {
		return fmt.Errorf("failed to generate release notes: %w", err)
	}

	a.console.Answer("Release Notes:\n" + notes)
	return nil
}

func (a *Assistant) commit(ctx context.Context) error {
	repo, err := a.openRepo(ctx)
	if err != nil {
		return err
	}

	answer, err := a.console.Ask(ctx, "Do you want to see recent commits before committing? (yes/no): ")
	if err != nil {
		return err
	}
	switch strings.ToLower(answer) {
	case "yes":
		commits, err := repo.RecentCommits(a.git.CommitCount)
		if errors.Is(err, gitops.ErrNoCommits) {
			a.console.Println("No commits found.")
			return nil
		}
		if err != nil {
			return err
		}
		a.console.Println("\n\n" + gitops.FormatCommitList(commits))
		return nil
	case "no":
	default:
		a.console.Println("Invalid input. Please enter 'yes' or 'no'.")
		return nil
	}

	message, err := a.console.Ask(ctx, "Enter commit message: ")
	if err != nil {
		return err
	}
	if message == "" {
		a.console.Println("Commit message cannot be empty.")
		return nil
	}

	sha, err := repo.CommitAll(message, a.git.Signature)
	if errors.Is(err, gitops.ErrNothingToCommit) {
		a.console.Println("Nothing to commit, working tree clean.")
		return nil
	}
	if err != nil {
		return err
	}
	a.console.Printf("Commit successful: %s\n", sha)
	return nil
}

func (a *Assistant) push(ctx context.Context) error {
	repo, err := a.openRepo(ctx)
	if err != nil {
		return err
	}

	if a.tokens != nil {
		if err := a.tokens.Check(ctx, a.git.Sync.Credentials.Username); err != nil {
			a.console.Warn("Warning: %v", err)
		}
	}

	a.console.Println("Pushing to github...")
	stop := a.console.Spin("Pushing...")
	pushed, err := repo.Push(ctx, a.git.Sync)
	stop()
	if err != nil {
		return err
	}
	if pushed {
		a.console.Println("Push successful.")
	} else {
		a.console.Println("Everything up-to-date.")
	}
	return nil
}

func (a *Assistant) pull(ctx context.Context) error {
	repo, err := a.openRepo(ctx)
	if err != nil {
		return err
	}

	stop := a.console.Spin("Pulling...")
	status, err := repo.Pull(ctx, a.git.Sync)
	stop()
	if err != nil {
		return err
	}
	a.console.Printf("Pull result: %s\n", status)
	return nil
}
