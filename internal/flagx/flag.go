// Package flagx lets several independent flag sets share one command line.
//
// The config loader parses only the flags it owns, so each stage (JSON config
// lookup, option flags) first narrows os.Args with FilterArgs.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// normalize strips one or two leading dashes so "-config" and "--config"
// name the same flag.
func normalize(name string) string {
	return strings.TrimPrefix(strings.TrimPrefix(name, "-"), "-")
}

// FilterArgs returns the subset of args that belongs to the named flags,
// keeping each flag's value when it is given as a separate argument.
//
// Supported forms:
//
//	-d vault.kdbx
//	--db=vault.kdbx
//
// Parsing stops at a bare "--". Flags are matched regardless of whether they
// are written with one or two dashes. The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[normalize(f)] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, hasValue := strings.Cut(arg, "=")
		if _, ok := allowed[normalize(name)]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if hasValue {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}
	return filtered
}

// ConfigFileFlag extracts the JSON config path given via -c or -config.
// Other arguments are ignored. The last occurrence wins; an empty string
// means no config file was requested.
func ConfigFileFlag(args []string) string {
	var path string

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}
