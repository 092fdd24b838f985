package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/ChamsBouzaiene/gitchat/internal/engine"
	"github.com/ChamsBouzaiene/gitchat/internal/gitops"
)

const (
	repoPathSchema = `{
  "type": "object",
  "properties": {
    "repo_path": {
      "type": "string",
      "description": "Path to a local Git repository. Omit to use the current repository."
    }
  },
  "additionalProperties": false
}`

	askCodebaseSchema = `{
  "type": "object",
  "properties": {
    "query": {
      "type": "string",
      "minLength": 1,
      "description": "The question about the indexed codebase."
    }
  },
  "required": ["query"],
  "additionalProperties": false
}`

	noRepoReply = "No repository path is known. Ask the user for the path to a local Git repository."
)

// Tools returns the functions the chat model may call.
func (a *Assistant) Tools() engine.ToolRegistry {
	reg := engine.ToolRegistry{}
	reg.Register(engine.Tool{
		Name:        "get_commits",
		Description: fmt.Sprintf("Retrieves the last %d commits from a local Git repository with author and date.", a.git.CommitCount),
		SchemaJSON:  repoPathSchema,
		Fn:          a.getCommitsTool,
	})
	reg.Register(engine.Tool{
		Name:        "ask_codebase",
		Description: "Answers a question about the indexed codebase using the most relevant source chunks.",
		SchemaJSON:  askCodebaseSchema,
		Fn:          a.askCodebaseTool,
	})
	reg.Register(engine.Tool{
		Name:        "generate_release_notes",
		Description: fmt.Sprintf("Generates basic release notes from the last %d commits of a local Git repository, each with author and timestamp.", a.git.ReleaseCount),
		SchemaJSON:  repoPathSchema,
		Fn:          a.releaseNotesTool,
	})
	return reg
}

// toolRepo opens the repository named in args, or the session one.
func (a *Assistant) toolRepo(args map[string]any) (*gitops.Repository, string) {
	path, _ := args["repo_path"].(string)
	if path == "" {
		var ok bool
		if path, ok = a.session.RepoPath(); !ok {
			return nil, noRepoReply
		}
	}
	repo, err := gitops.Open(path)
	if err != nil {
		return nil, "The specified path is not a Git repository."
	}
	return repo, ""
}

func (a *Assistant) getCommitsTool(ctx context.Context, args map[string]any) (string, error) {
	repo, reply := a.toolRepo(args)
	if repo == nil {
		return reply, nil
	}
	commits, err := repo.RecentCommits(a.git.CommitCount)
	if errors.Is(err, gitops.ErrNoCommits) {
		return "No commits found in this repository.", nil
	}
	if err != nil {
		return "", err
	}
	return gitops.FormatCommitList(commits), nil
}

func (a *Assistant) askCodebaseTool(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	return a.answerer.Answer(ctx, query), nil
}

func (a *Assistant) releaseNotesTool(ctx context.Context, args map[string]any) (string, error) {
	repo, reply := a.toolRepo(args)
	if repo == nil {
		return reply, nil
	}
	commits, err := repo.RecentCommits(a.git.ReleaseCount)
	if errors.Is(err, gitops.ErrNoCommits) {
		return "No commits found in this repository.", nil
	}
	if err != nil {
		return "", err
	}
	return gitops.FormatReleaseList(commits), nil
}
