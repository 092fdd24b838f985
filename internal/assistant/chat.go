package assistant

import (
	"context"
	"errors"
	"log"

	"github.com/ChamsBouzaiene/gitchat/internal/engine"
)

// chatTurn sends input to the chat model with the bounded history, printing
// the reply as it streams in.
func (a *Assistant) chatTurn(ctx context.Context, input string) error {
	a.console.AgentPrefix("")

	_, err := a.runner.RunTurn(ctx, a.history, input, func(delta string) {
		a.console.Printf("%s", delta)
	})
	a.console.Println()

	if errors.Is(err, engine.ErrMaxToolRounds) {
		log.Printf("⚠️  %v", err)
		return nil
	}
	return err
}
