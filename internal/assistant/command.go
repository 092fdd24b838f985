package assistant

import (
	"strings"
	"unicode"
)

// CommandKind is the closed set of console commands.
type CommandKind int

const (
	CmdNone CommandKind = iota // empty line
	CmdExit
	CmdHelp
	CmdCodebase
	CmdChangeRepo
	CmdReleaseNotes
	CmdCommit
	CmdPush
	CmdPull
	CmdChat
)

var commandNames = map[CommandKind]string{
	CmdNone:         "none",
	CmdExit:         "exit",
	CmdHelp:         "help",
	CmdCodebase:     "codebase",
	CmdChangeRepo:   "change repo",
	CmdReleaseNotes: "release notes",
	CmdCommit:       "commit",
	CmdPush:         "push",
	CmdPull:         "pull",
	CmdChat:         "chat",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command is a classified input line.
type Command struct {
	Kind CommandKind
	Raw  string // the line as typed, trimmed
}

// Classify maps an input line to a command. Matching is case-insensitive and
// works on whole words, so "commits" or "pushed" fall through to chat.
// Earlier rules win:
//
//	empty line                 CmdNone
//	only "exit" or "quit"      CmdExit
//	only "help"                CmdHelp
//	only "codebase"            CmdCodebase
//	words "change repo"        CmdChangeRepo
//	words "release notes"      CmdReleaseNotes
//	word "commit"              CmdCommit
//	word "push"                CmdPush
//	word "pull"                CmdPull
//	anything else              CmdChat
func Classify(line string) Command {
	raw := strings.TrimSpace(line)
	words := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	cmd := Command{Kind: CmdChat, Raw: raw}

	switch {
	case raw == "":
		cmd.Kind = CmdNone
	case isOnly(words, "exit") || isOnly(words, "quit"):
		cmd.Kind = CmdExit
	case isOnly(words, "help"):
		cmd.Kind = CmdHelp
	case isOnly(words, "codebase"):
		cmd.Kind = CmdCodebase
	case hasPhrase(words, "change", "repo"):
		cmd.Kind = CmdChangeRepo
	case hasPhrase(words, "release", "notes"):
		cmd.Kind = CmdReleaseNotes
	case hasPhrase(words, "commit"):
		cmd.Kind = CmdCommit
	case hasPhrase(words, "push"):
		cmd.Kind = CmdPush
	case hasPhrase(words, "pull"):
		cmd.Kind = CmdPull
	}
	return cmd
}

func isOnly(words []string, word string) bool {
	return len(words) == 1 && words[0] == word
}

// hasPhrase reports whether phrase occurs as consecutive words.
func hasPhrase(words []string, phrase ...string) bool {
	for i := 0; i+len(phrase) <= len(words); i++ {
		match := true
		for j, p := range phrase {
			if words[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
