package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/keepsearch/internal/flagx"
)

var ownFlags = []string{"-d", "-k", "-t", "-b", "-w", "-m", "-W", "-l"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   database file
//	-k string   key file
//	-t int      inactivity timeout in seconds, 0 caches until locked
//	-b string   keepassxc-cli binary
//	-w int      per-command timeout in seconds
//	-m int      maximum number of results shown
//	-W string   title of the window to raise before prompting
//	-l string   log level: debug, info, warn or error
//
// args are narrowed with flagx.FilterArgs first, so flags owned by other
// stages (like -c) do not break parsing.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, ownFlags)

	fs := flag.NewFlagSet("keepsearch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "database file")
	fs.StringVar(&cfg.KeyFilePath, "k", cfg.KeyFilePath, "key file")
	timeout := fs.Int("t", int(cfg.InactivityTimeout.Seconds()), "inactivity timeout (in seconds, 0 caches until locked)")
	fs.StringVar(&cfg.CLIPath, "b", cfg.CLIPath, "keepassxc-cli binary")
	cmdTimeout := fs.Int("w", int(cfg.CommandTimeout.Seconds()), "keepassxc-cli timeout (in seconds)")
	fs.IntVar(&cfg.MaxResults, "m", cfg.MaxResults, "maximum results shown")
	fs.StringVar(&cfg.WindowHint, "W", cfg.WindowHint, "window to raise before prompting")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Only overwrite durations that were given, so sub-second JSON values
	// survive when the flag is absent.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.InactivityTimeout = time.Duration(*timeout) * time.Second
		case "w":
			cfg.CommandTimeout = time.Duration(*cmdTimeout) * time.Second
		}
	})
	return nil
}
