// Package assistant runs the console command loop: it classifies each input
// line and dispatches it to a Git action, release-note generation, the
// codebase question session or a chat turn with function calling.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/ChamsBouzaiene/gitchat/internal/engine"
	"github.com/ChamsBouzaiene/gitchat/internal/gitops"
	"github.com/ChamsBouzaiene/gitchat/internal/indexer"
	"github.com/ChamsBouzaiene/gitchat/internal/prompts"
	"github.com/ChamsBouzaiene/gitchat/internal/workspace"
)

// Ingester indexes a repository for codebase questions.
type Ingester interface {
	IngestRepository(ctx context.Context, root string) (indexer.IngestStats, error)
}

// Answerer answers a question about the indexed codebase.
type Answerer interface {
	Answer(ctx context.Context, query string) string
}

// TokenChecker verifies GitHub credentials.
type TokenChecker interface {
	Check(ctx context.Context, username string) error
}

// WatchFunc starts watching root and calls onChange when files change. The
// returned func stops the watcher.
type WatchFunc func(root string, onChange func()) (stop func() error, err error)

// GitOptions configures the Git commands.
type GitOptions struct {
	Signature    gitops.Signature
	Sync         gitops.SyncOptions
	CommitCount  int // commits shown and summarized; Default: 10
	ReleaseCount int // commits listed by generate_release_notes; Default: 20
}

// Options wires an Assistant.
type Options struct {
	Console *Console

	LLM           engine.LLMClient
	Model         string
	Chat          engine.ChatOptions
	MaxToolRounds int
	History       engine.HistoryConfig
	Hooks         []engine.Hook

	Ingester     Ingester
	Answerer     Answerer
	TokenChecker TokenChecker // nil skips the check before push
	Watch        WatchFunc    // nil disables staleness tracking

	Git GitOptions
}

// Assistant is the console command loop.
type Assistant struct {
	console *Console
	session *Session

	llm     engine.LLMClient
	model   string
	chat    engine.ChatOptions
	runner  *engine.Runner
	history *engine.History

	ingester Ingester
	answerer Answerer
	tokens   TokenChecker
	watch    WatchFunc
	git      GitOptions

	stopWatch func() error
	stale     atomic.Bool
}

// errExit ends the loop without an error.
var errExit = errors.New("exit")

// New creates an assistant with an empty session.
func New(opts Options) *Assistant {
	if opts.Git.CommitCount <= 0 {
		opts.Git.CommitCount = 10
	}
	if opts.Git.ReleaseCount <= 0 {
		opts.Git.ReleaseCount = 20
	}
	if opts.History.Model == "" {
		opts.History.Model = opts.Model
	}

	a := &Assistant{
		console:  opts.Console,
		session:  &Session{},
		llm:      opts.LLM,
		model:    opts.Model,
		chat:     opts.Chat,
		ingester: opts.Ingester,
		answerer: opts.Answerer,
		tokens:   opts.TokenChecker,
		watch:    opts.Watch,
		git:      opts.Git,
	}
	a.history = engine.NewHistory(a.systemPrompt(), opts.History)
	a.runner = engine.NewRunner(opts.LLM, a.Tools(), engine.RunnerConfig{
		Model:         opts.Model,
		Options:       opts.Chat,
		MaxToolRounds: opts.MaxToolRounds,
	}, opts.Hooks...)
	return a
}

// Session returns the session state.
func (a *Assistant) Session() *Session {
	return a.session
}

// Run reads and dispatches lines until exit, end of input or ctx is done.
func (a *Assistant) Run(ctx context.Context) error {
	defer a.stopWatching()

	for {
		line, err := a.console.ReadLine(ctx, "Me -> ")
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		err = a.dispatch(ctx, Classify(line))
		switch {
		case err == nil:
		case errors.Is(err, errExit), errors.Is(err, io.EOF):
			return nil
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrNoRepository):
			// already reported while prompting
		default:
			a.console.Error(err)
		}
	}
}

func (a *Assistant) dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Kind {
	case CmdNone:
		return nil
	case CmdExit:
		return errExit
	case CmdHelp:
		a.console.Println(helpText)
		return nil
	case CmdChangeRepo:
		a.clearRepo()
		a.console.Println("Repository path cleared. You will be prompted again.")
		return nil
	case CmdReleaseNotes:
		return a.releaseNotes(ctx)
	case CmdCommit:
		return a.commit(ctx)
	case CmdPush:
		return a.push(ctx)
	case CmdPull:
		return a.pull(ctx)
	case CmdCodebase:
		return a.codebase(ctx)
	default:
		return a.chatTurn(ctx, cmd.Raw)
	}
}

// resolveRepo returns the session repository, prompting for one when none
// is set or force is true. An invalid answer is reported and yields
// ErrNoRepository.
func (a *Assistant) resolveRepo(ctx context.Context, force bool) (string, error) {
	if !force {
		if path, ok := a.session.RepoPath(); ok {
			return path, nil
		}
	}

	path, err := a.console.Ask(ctx, "Enter Git repo path: ")
	if err != nil {
		return "", err
	}
	if !gitops.IsRepository(path) {
		a.console.Println("Invalid Git repository path.")
		return "", ErrNoRepository
	}

	a.setRepo(path)
	return path, nil
}

func (a *Assistant) setRepo(path string) {
	a.session.SetRepoPath(path)
	a.history.SetSystemPrompt(a.systemPrompt())
}

func (a *Assistant) clearRepo() {
	a.session.Clear()
	a.history.SetSystemPrompt(a.systemPrompt())
}

func (a *Assistant) systemPrompt() string {
	repo, project := "not set", "unknown"
	if path, ok := a.session.RepoPath(); ok {
		repo = path
		project = workspace.DetectProjectType(path).Describe()
	}
	prompt, err := prompts.Render(prompts.System, map[string]string{"repo": repo, "project": project})
	if err != nil {
		log.Printf("⚠️  Failed to render system prompt: %v", err)
		return ""
	}
	return prompt
}

func (a *Assistant) openRepo(ctx context.Context) (*gitops.Repository, error) {
	path, err := a.resolveRepo(ctx, false)
	if err != nil {
		return nil, err
	}
	repo, err := gitops.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return repo, nil
}

const helpText = `Commands:
  release notes   draft release notes from the latest commits
  commit          stage every change and commit it
  push            push the current branch to origin
  pull            fast-forward the current branch from origin
  codebase        index the repository and ask questions about it
  change repo     forget the repository path and ask again next time
  help            show this help
  exit            quit
Anything else is sent to the chat assistant.`
