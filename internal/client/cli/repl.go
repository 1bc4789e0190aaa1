package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Search(ctx context.Context, query string) error
	Show(ctx context.Context, ref string) error
	Copy(ctx context.Context, ref, field string) error
	Lock(ctx context.Context) error
	Status(ctx context.Context) error
}

const helpText = `Available commands:
  search|s <query>             search entry titles (empty query lists all)
  show <number|path>           show an entry, password masked
  copy <number|path> [field]   copy password (default), username, url, notes or title
  lock                         forget the passphrase now
  status                       show session state
  exit|quit                    leave`

// runREPL starts a simple read–eval–print loop.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. The rest of the line is passed on verbatim
// (trimmed), so entry paths may contain spaces. Unknown commands are reported
// back to the user. The loop exits on EOF, when ctx is done, or when the user
// types "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers print
// their own messages. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("ks %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		rest := strings.TrimSpace(strings.TrimPrefix(line, cmd))

		switch strings.ToLower(cmd) {
		case "help":
			printlnFn(helpText)

		case "s", "search":
			_ = a.Search(ctx, rest)

		case "show":
			_ = a.Show(ctx, rest)

		case "copy":
			ref, field := splitCopyArgs(rest)
			_ = a.Copy(ctx, ref, field)

		case "lock":
			_ = a.Lock(ctx)

		case "status":
			_ = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
