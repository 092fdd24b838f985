package indexer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher reports changes under an ingested directory tree.
type FileWatcher struct {
	root          string
	watcher       *fsnotify.Watcher
	onChange      func([]string) // Called with changed paths relative to root
	debounceTime  time.Duration
	mu            sync.Mutex
	pendingEvents map[string]bool
	ignoreMatcher interface{ MatchesPath(string) bool }
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewFileWatcher creates a watcher for root. Paths matched by ignoreMatcher
// (relative to root) are neither watched nor reported.
func NewFileWatcher(root string, ignoreMatcher interface{ MatchesPath(string) bool }) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &FileWatcher{
		root:          root,
		watcher:       watcher,
		debounceTime:  500 * time.Millisecond,
		pendingEvents: make(map[string]bool),
		ignoreMatcher: ignoreMatcher,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// OnChange sets the callback for debounced file changes.
func (fw *FileWatcher) OnChange(callback func([]string)) {
	fw.onChange = callback
}

// Start adds every non-ignored directory and begins processing events.
func (fw *FileWatcher) Start() error {
	err := filepath.WalkDir(fw.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		relPath, err := filepath.Rel(fw.root, path)
		if err != nil {
			return nil
		}
		if relPath != "." && fw.ignored(relPath) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			log.Printf("⚠️  Failed to watch %s: %v", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", fw.root, err)
	}

	fw.wg.Add(2)
	go fw.eventLoop()
	go fw.debounceLoop()
	return nil
}

// Stop stops the watcher and waits for its goroutines.
func (fw *FileWatcher) Stop() error {
	fw.cancel()
	fw.wg.Wait()
	return fw.watcher.Close()
}

func (fw *FileWatcher) ignored(relPath string) bool {
	return fw.ignoreMatcher != nil && fw.ignoreMatcher.MatchesPath(relPath)
}

func (fw *FileWatcher) eventLoop() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  Watcher error: %v", err)
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(fw.root, event.Name)
	if err != nil || fw.ignored(relPath) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.watcher.Add(event.Name); err != nil {
				log.Printf("⚠️  Failed to watch new directory %s: %v", event.Name, err)
			}
		}
	}

	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		fw.mu.Lock()
		fw.pendingEvents[relPath] = true
		fw.mu.Unlock()
	}
}

func (fw *FileWatcher) debounceLoop() {
	defer fw.wg.Done()

	ticker := time.NewTicker(fw.debounceTime)
	defer ticker.Stop()

	for {
		select {
		case <-fw.ctx.Done():
			return
		case <-ticker.C:
			fw.processPendingEvents()
		}
	}
}

func (fw *FileWatcher) processPendingEvents() {
	fw.mu.Lock()
	if len(fw.pendingEvents) == 0 {
		fw.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(fw.pendingEvents))
	for path := range fw.pendingEvents {
		paths = append(paths, path)
	}
	fw.pendingEvents = make(map[string]bool)
	fw.mu.Unlock()

	if fw.onChange != nil {
		log.Printf("📝 File watcher detected %d changed files", len(paths))
		fw.onChange(paths)
	}
}
