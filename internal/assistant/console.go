package assistant

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ChamsBouzaiene/gitchat/internal/engine"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// Console reads user lines and writes colored output.
type Console struct {
	in          io.Reader
	out         io.Writer
	interactive bool

	once    sync.Once
	lines   chan string
	readErr error

	prompt  *color.Color
	agent   *color.Color
	answer  *color.Color
	warn    *color.Color
	failure *color.Color
}

// NewConsole creates a console over in and out. Colors and the spinner are
// enabled only when out is a terminal.
func NewConsole(in io.Reader, out io.Writer) *Console {
	interactive := false
	if f, ok := out.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}

	c := &Console{
		in:          in,
		out:         out,
		interactive: interactive,
		prompt:      color.New(color.FgYellow),
		agent:       color.New(color.FgGreen),
		answer:      color.New(color.FgCyan),
		warn:        color.New(color.FgHiYellow),
		failure:     color.New(color.FgRed),
	}
	if !interactive {
		for _, col := range []*color.Color{c.prompt, c.agent, c.answer, c.warn, c.failure} {
			col.DisableColor()
		}
	}
	return c
}

func (c *Console) readLoop() {
	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		c.lines <- scanner.Text()
	}
	c.readErr = scanner.Err()
	close(c.lines)
}

// ReadLine prints prompt in the prompt color and returns the next trimmed
// line. It returns io.EOF at end of input and ctx.Err() when ctx is done.
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	c.prompt.Fprint(c.out, prompt)
	return c.next(ctx)
}

// Ask prints an uncolored question and returns the trimmed answer.
func (c *Console) Ask(ctx context.Context, question string) (string, error) {
	fmt.Fprint(c.out, question)
	return c.next(ctx)
}

func (c *Console) next(ctx context.Context) (string, error) {
	c.once.Do(func() {
		c.lines = make(chan string)
		go c.readLoop()
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			if c.readErr != nil {
				return "", fmt.Errorf("failed to read input: %w", c.readErr)
			}
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

// Println writes a plain line.
func (c *Console) Println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

// Printf writes plain formatted text.
func (c *Console) Printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

// Write writes streamed reply text as is.
func (c *Console) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

// AgentPrefix prints the reply marker.
func (c *Console) AgentPrefix(suffix string) {
	c.agent.Fprint(c.out, "Agent -> "+suffix)
}

// Answer prints text in the answer color.
func (c *Console) Answer(text string) {
	c.answer.Fprintln(c.out, text)
}

// Warn prints a line in the warning color.
func (c *Console) Warn(format string, a ...any) {
	c.warn.Fprintf(c.out, format+"\n", a...)
}

// Error prints err as "Error: <msg>", adding the provider hint when there
// is one.
func (c *Console) Error(err error) {
	msg := err.Error()
	var engErr *engine.EngineError
	if errors.As(err, &engErr) {
		if hint := engErr.Hint(); hint != "" {
			msg = fmt.Sprintf("%s (%s)", msg, hint)
		}
	}
	c.failure.Fprintf(c.out, "Error: %s\n", msg)
}

// Spin shows a spinner with msg until the returned func is called. It does
// nothing when out is not a terminal.
func (c *Console) Spin(msg string) func() {
	if !c.interactive {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(c.out))
	s.Suffix = " " + msg
	s.Color("cyan")
	s.Start()
	return s.Stop
}
