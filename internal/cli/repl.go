package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is what the REPL needs to run a command line. The real App
// satisfies it; tests can provide a lightweight stub.
type execIface interface {
	execute(ctx context.Context, args []string) error
}

// runREPL starts a read–eval–print loop for savesync.
//
// Each line is split into words (quotes group words with spaces) and run as
// one command of the regular command tree, so "upload Doom" in the shell does
// what "savesync upload Doom" does on the command line. The loop exits on EOF,
// on "exit" or "quit", or when ctx is cancelled.
//
// Errors returned by commands are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("savesync%s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		eof := err != nil

		parts, perr := splitLine(line)
		switch {
		case perr != nil:
			printlnFn("Error:", perr)
		case len(parts) == 0:
		case parts[0] == "exit" || parts[0] == "quit":
			printlnFn("Bye!")
			return
		case parts[0] == "shell":
			printlnFn("Already in the shell")
		default:
			if err := a.execute(ctx, parts); err != nil {
				printlnFn("Error:", err)
			}
		}

		if eof {
			return
		}
	}
}

func (a *App) shell(ctx context.Context) {
	printlnFn("Welcome to savesync (type 'help' for commands, 'exit' to leave)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

// Interactive reports whether args open the shell.
func Interactive(args []string) bool {
	return len(args) == 0 || (len(args) == 1 && strings.EqualFold(args[0], "shell"))
}
