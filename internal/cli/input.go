package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-shellwords"
	"golang.org/x/term"
)

var (
	// ErrNotConfirmed is returned when the user declines a destructive command.
	ErrNotConfirmed = errors.New("not confirmed")
	// ErrConfirmationRequired is returned when a destructive command runs
	// without --yes and there is no terminal to ask on.
	ErrConfirmationRequired = errors.New("confirmation required: rerun with --yes")
)

// isTerminal is a test seam for term.IsTerminal on stdin.
var isTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
//
// Example prompt format:
//
//	Prompt text
//	> _
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks each question in turn and requires "yes" to every one.
// yes skips the prompts.
func (a *App) confirm(yes bool, questions ...string) error {
	if yes {
		return nil
	}
	if !isTerminal() {
		return ErrConfirmationRequired
	}
	for _, q := range questions {
		answer, err := GetSimpleText(a.reader, q+" Type yes to continue.", a.out)
		if err != nil {
			return err
		}
		if !strings.EqualFold(answer, "yes") {
			return ErrNotConfirmed
		}
	}
	return nil
}

// splitLine splits a shell line into words with POSIX-style quoting.
// Backslashes escape outside single quotes. Pipes, redirects and command
// separators are rejected rather than silently cutting the line short.
func splitLine(line string) ([]string, error) {
	p := shellwords.NewParser()
	words, err := p.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", strings.TrimSpace(line), err)
	}
	if runes := []rune(line); p.Position >= 0 && p.Position < len(runes) {
		return nil, fmt.Errorf("unexpected %q in command line", runes[p.Position])
	}
	return words, nil
}
