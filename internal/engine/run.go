package engine

import (
	"context"
	"fmt"
)

// DefaultMaxToolRounds bounds how many times one turn may execute tools.
const DefaultMaxToolRounds = 5

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Model         string
	Options       ChatOptions
	MaxToolRounds int // Default: DefaultMaxToolRounds
}

// Runner executes chat turns with function calling.
type Runner struct {
	llm    LLMClient
	tools  ToolRegistry
	config RunnerConfig
	hooks  Hooks
}

// NewRunner creates a runner. tools may be nil.
func NewRunner(llm LLMClient, tools ToolRegistry, config RunnerConfig, hooks ...Hook) *Runner {
	if config.MaxToolRounds <= 0 {
		config.MaxToolRounds = DefaultMaxToolRounds
	}
	if tools == nil {
		tools = ToolRegistry{}
	}
	return &Runner{llm: llm, tools: tools, config: config, hooks: hooks}
}

// RunTurn appends input as a user message and calls the model until it
// replies without tool calls. Requested tools are executed and their results
// appended between calls, at most MaxToolRounds times. Reply text is passed
// to onDelta as it arrives (onDelta may be nil). The final assistant text is
// returned; it is also the last message of the history.
func (r *Runner) RunTurn(ctx context.Context, history *History, input string, onDelta DeltaFunc) (string, error) {
	st := &State{History: history, Model: r.config.Model}
	hooks := r.hooks
	if onDelta != nil {
		hooks = append(append(Hooks{}, r.hooks...), deltaHook{fn: onDelta})
	}

	st.Append(ChatMessage{Role: RoleUser, Content: input})

	for !st.Done {
		select {
		case <-ctx.Done():
			return st.Reply, fmt.Errorf("turn cancelled: %w", ctx.Err())
		default:
		}

		var resp LLMResponse
		var err error
		if r.config.Options.Stream {
			resp, err = stepOnceStream(ctx, r.llm, r.tools, st, hooks, r.config.Options)
		} else {
			resp, err = stepOnce(ctx, r.llm, r.tools, st, hooks, r.config.Options)
		}
		if err != nil {
			return st.Reply, fmt.Errorf("failed to get reply: %w", err)
		}
		if st.Done {
			break
		}

		if st.Round >= r.config.MaxToolRounds {
			refuseToolCalls(resp.ToolCalls, "tool round limit reached", st)
			return st.Reply, fmt.Errorf("%w (limit %d)", ErrMaxToolRounds, r.config.MaxToolRounds)
		}
		executeToolCalls(ctx, resp.ToolCalls, r.tools, hooks, st)
		st.Round++
	}

	hooks.OnDone(ctx, st)
	return st.Reply, nil
}

// Complete sends a single prompt without history or tools and returns the
// reply text.
func Complete(ctx context.Context, llm LLMClient, model, prompt string, opts ChatOptions) (string, error) {
	resp, err := llm.Chat(ctx, model, []ChatMessage{{Role: RoleUser, Content: prompt}}, nil, opts)
	if err != nil {
		return "", err
	}
	return resp.Assistant.Content, nil
}
