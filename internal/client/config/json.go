package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/keepsearch/internal/flagx"
	"github.com/dmitrijs2005/keepsearch/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Fields are
// pointers so keys missing from the file leave the earlier value alone.
type JsonConfig struct {
	DatabasePath      *string         `json:"database_path"`
	KeyFilePath       *string         `json:"key_file_path"`
	InactivityTimeout *timex.Duration `json:"inactivity_timeout"`
	CLIPath           *string         `json:"cli_path"`
	CommandTimeout    *timex.Duration `json:"command_timeout"`
	MaxResults        *int            `json:"max_results"`
	WindowHint        *string         `json:"window_hint"`
	LogLevel          *string         `json:"log_level"`
}

// parseJson overlays cfg with values from the file named by -c or -config.
// Without that flag it does nothing.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.KeyFilePath, jc.KeyFilePath)
	setString(&cfg.CLIPath, jc.CLIPath)
	setString(&cfg.WindowHint, jc.WindowHint)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.InactivityTimeout != nil {
		cfg.InactivityTimeout = jc.InactivityTimeout.Duration
	}
	if jc.CommandTimeout != nil {
		cfg.CommandTimeout = jc.CommandTimeout.Duration
	}
	if jc.MaxResults != nil {
		cfg.MaxResults = *jc.MaxResults
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
