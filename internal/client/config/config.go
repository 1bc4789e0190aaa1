package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/keepsearch/internal/filex"
)

// Config holds runtime settings for keepsearch.
//
// Units: InactivityTimeout and CommandTimeout are time.Duration values. An
// InactivityTimeout of zero caches the credential until an explicit lock.
type Config struct {
	DatabasePath      string
	KeyFilePath       string
	InactivityTimeout time.Duration
	CLIPath           string
	CommandTimeout    time.Duration
	MaxResults        int
	WindowHint        string
	LogLevel          string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.InactivityTimeout = 300 * time.Second
	c.CLIPath = "keepassxc-cli"
	c.CommandTimeout = 10 * time.Second
	c.MaxResults = 10
	c.WindowHint = "keepsearch"
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if requested with -c) and command-line flags. Later sources take
// precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) expandPaths() error {
	var err error
	if c.DatabasePath, err = filex.ExpandHome(c.DatabasePath); err != nil {
		return fmt.Errorf("database path: %w", err)
	}
	if c.KeyFilePath, err = filex.ExpandHome(c.KeyFilePath); err != nil {
		return fmt.Errorf("key file path: %w", err)
	}
	return nil
}

// check rejects values no component can work with. Missing files are not
// checked here; the session reports them when a query needs the database.
func (c *Config) check() error {
	switch {
	case c.InactivityTimeout < 0:
		return fmt.Errorf("inactivity timeout must not be negative, got %s", c.InactivityTimeout)
	case c.CommandTimeout <= 0:
		return fmt.Errorf("command timeout must be positive, got %s", c.CommandTimeout)
	case c.MaxResults <= 0:
		return fmt.Errorf("max results must be positive, got %d", c.MaxResults)
	case c.CLIPath == "":
		return fmt.Errorf("keepassxc-cli path must not be empty")
	}
	return nil
}
