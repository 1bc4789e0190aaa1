package keepassxc

import "strings"

// Command is one keepassxc-cli invocation, minus credentials and database path.
type Command struct {
	// Name is the subcommand, e.g. "ls", "search" or "show".
	Name string
	// Options are placed after the subcommand and before the database path.
	Options []string
	// Args are positional arguments following the database path.
	Args []string
}

// ProbeCommand lists the root group. It is the cheapest call that proves a
// credential opens the database.
func ProbeCommand() Command {
	return Command{Name: "ls"}
}

// ListAllCommand lists every entry recursively with full paths.
func ListAllCommand() Command {
	return Command{Name: "ls", Options: []string{"-R", "-f"}}
}

// SearchCommand searches entries with keepassxc-cli's own matcher.
func SearchCommand(query string) Command {
	return Command{Name: "search", Args: []string{query}}
}

// ShowCommand prints all attributes of one entry, protected ones included.
func ShowCommand(path string) Command {
	return Command{Name: "show", Options: []string{"-s"}, Args: []string{path}}
}

// argv builds the argument list. The passphrase is deliberately absent; it
// travels over stdin.
func (c Command) argv(dbPath, keyFilePath string) []string {
	out := make([]string, 0, 6+len(c.Options)+len(c.Args))
	out = append(out, c.Name, "-q")
	if keyFilePath != "" {
		out = append(out, "-k", keyFilePath)
	}
	out = append(out, c.Options...)

	// A positional starting with "-" would be taken for an option.
	positional := append([]string{dbPath}, c.Args...)
	for _, p := range positional {
		if strings.HasPrefix(p, "-") {
			out = append(out, "--")
			break
		}
	}
	return append(out, positional...)
}
