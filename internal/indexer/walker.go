package indexer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	gitignore "github.com/sabhiram/go-gitignore"
)

// ExcludedDirs are directory names that are never descended into:
// version control metadata, build output, dependency caches and IDE state.
var ExcludedDirs = []string{
	".git",
	".hg",
	".svn",
	"bin",
	"obj",
	"build",
	"dist",
	"target",
	"out",
	"node_modules",
	"vendor",
	"__pycache__",
	".cache",
	"packages",
	".vs",
	".vscode",
	".idea",
}

// DefaultMaxFileBytes caps the size of a collected file.
const DefaultMaxFileBytes = 1 << 20

// binarySniffLen is how many leading bytes are checked for NUL bytes.
const binarySniffLen = 8000

// WalkError represents a file that could not be collected.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// WalkerConfig configures the file walker behavior.
type WalkerConfig struct {
	// RespectGitignore adds the patterns of the root .gitignore. Default: false
	RespectGitignore bool
	// MaxFileBytes skips larger files. Default: DefaultMaxFileBytes
	MaxFileBytes int64
}

// Walker collects the readable files of a directory tree.
type Walker struct {
	root       string
	config     WalkerConfig
	dirMatcher gitignore.IgnoreParser
	gitignore  gitignore.IgnoreParser
	skipped    []WalkError
}

// NewWalker creates a walker with default configuration.
func NewWalker(root string) (*Walker, error) {
	return NewWalkerWithConfig(root, WalkerConfig{})
}

// NewWalkerWithConfig creates a walker for root.
func NewWalkerWithConfig(root string, config WalkerConfig) (*Walker, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	if config.MaxFileBytes <= 0 {
		config.MaxFileBytes = DefaultMaxFileBytes
	}

	w := &Walker{
		root:       absRoot,
		config:     config,
		dirMatcher: gitignore.CompileIgnoreLines(ExcludedDirs...),
	}

	if config.RespectGitignore {
		if lines, err := readGitignoreLines(filepath.Join(absRoot, ".gitignore")); err == nil && len(lines) > 0 {
			w.gitignore = gitignore.CompileIgnoreLines(lines...)
		}
	}

	return w, nil
}

// Root returns the absolute root directory.
func (w *Walker) Root() string {
	return w.root
}

// Skipped returns the files skipped by the last Collect call.
func (w *Walker) Skipped() []WalkError {
	return w.skipped
}

// Matcher reports whether a path relative to the root is excluded from collection.
func (w *Walker) Matcher() interface{ MatchesPath(string) bool } {
	return excludeMatcher{w: w}
}

type excludeMatcher struct{ w *Walker }

func (m excludeMatcher) MatchesPath(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if m.w.dirMatcher.MatchesPath(seg) {
			return true
		}
	}
	return m.w.gitignore != nil && m.w.gitignore.MatchesPath(rel)
}

// readGitignoreLines reads patterns from a .gitignore file.
func readGitignoreLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// Collect returns every readable, non-excluded regular file under the root,
// sorted by path. Unreadable files are skipped and logged.
func (w *Walker) Collect(ctx context.Context) ([]SourceFile, error) {
	w.skipped = nil
	var files []SourceFile

	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			w.skip(path, err)
			if d != nil && d.IsDir() && path != w.root {
				return filepath.SkipDir
			}
			return nil
		}
		if path == w.root {
			return nil
		}

		relPath, err := filepath.Rel(w.root, path)
		if err != nil {
			w.skip(path, err)
			return nil
		}

		if d.IsDir() {
			if w.dirMatcher.MatchesPath(d.Name()) || (w.gitignore != nil && w.gitignore.MatchesPath(relPath)) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if w.gitignore != nil && w.gitignore.MatchesPath(relPath) {
			return nil
		}

		content, err := w.readFile(path)
		if err != nil {
			w.skip(path, err)
			return nil
		}
		files = append(files, SourceFile{Path: path, Content: content})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", w.root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	if len(w.skipped) > 0 {
		log.Printf("⚠️  Skipped %d unreadable files under %s", len(w.skipped), w.root)
	}
	return files, nil
}

func (w *Walker) skip(path string, err error) {
	w.skipped = append(w.skipped, WalkError{Path: path, Err: err})
}

// readFile reads a text file, rejecting oversized and binary content.
func (w *Walker) readFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > w.config.MaxFileBytes {
		return "", fmt.Errorf("file too large (%d bytes)", info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if isBinary(data) {
		return "", fmt.Errorf("binary content")
	}
	return string(data), nil
}

func isBinary(data []byte) bool {
	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return true
	}
	return !utf8.Valid(data)
}
