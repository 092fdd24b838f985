package assistant

import (
	"context"
	"fmt"
	"log"
	"strings"
)

const questionPrompt = "\n -> Ask a question about the codebase (or type 'change-repo', 'reindex' or 'exit'): "

// codebase indexes the repository and runs the question sub-loop until the
// user types exit.
func (a *Assistant) codebase(ctx context.Context) error {
	root, err := a.resolveRepo(ctx, false)
	if err != nil {
		return err
	}

	a.console.Println("Indexing codebase, please wait...")
	if err := a.index(ctx, root); err != nil {
		return err
	}
	a.console.Println("Codebase is ready. You can now ask questions.")
	defer a.stopWatching()

	for {
		query, err := a.console.ReadLine(ctx, questionPrompt)
		if err != nil {
			return err
		}

		switch strings.ToLower(query) {
		case "":
			continue
		case "exit":
			a.console.Println("Exiting code.")
			return nil
		case "change-repo":
			root, err = a.resolveRepo(ctx, true)
			if err != nil {
				return err
			}
			a.console.Println("Re-indexing new codebase...")
			if err := a.index(ctx, root); err != nil {
				return err
			}
			a.console.Println("New codebase is ready.")
			continue
		case "reindex":
			a.console.Println("Re-indexing codebase...")
			if err := a.index(ctx, root); err != nil {
				return err
			}
			a.console.Println("Codebase is ready.")
			continue
		}

		if a.stale.Load() {
			a.console.Warn("Note: files changed since indexing. Type 'reindex' to refresh.")
		}

		stop := a.console.Spin("Thinking...")
		answer := a.answerer.Answer(ctx, query)
		stop()

		a.console.AgentPrefix("\n")
		a.console.Answer(answer)
	}
}

// index ingests root and restarts the staleness watcher on it.
func (a *Assistant) index(ctx context.Context, root string) error {
	a.stopWatching()

	stop := a.console.Spin("Indexing...")
	stats, err := a.ingester.IngestRepository(ctx, root)
	stop()
	if err != nil {
		return fmt.Errorf("failed to index codebase: %w", err)
	}
	log.Printf("✅ Indexed %d files into %d chunks (%d skipped) in %s", stats.Files, stats.Records, stats.SkippedFiles, stats.Duration)

	a.stale.Store(false)
	if a.watch != nil {
		stopWatch, err := a.watch(root, func() { a.stale.Store(true) })
		if err != nil {
			log.Printf("⚠️  Failed to watch %s, index staleness will not be reported: %v", root, err)
			return nil
		}
		a.stopWatch = stopWatch
	}
	return nil
}

func (a *Assistant) stopWatching() {
	if a.stopWatch == nil {
		return
	}
	if err := a.stopWatch(); err != nil {
		log.Printf("⚠️  Failed to stop file watcher: %v", err)
	}
	a.stopWatch = nil
}
