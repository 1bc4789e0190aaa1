// Package config loads runtime configuration for keepsearch.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// A leading "~" in the database and key file paths is expanded.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "5m" or
// integer nanoseconds:
//
//	{
//	  "database_path": "~/vault.kdbx",
//	  "key_file_path": "~/vault.keyx",
//	  "inactivity_timeout": "5m",
//	  "cli_path": "/usr/bin/keepassxc-cli",
//	  "command_timeout": "10s",
//	  "max_results": 10,
//	  "window_hint": "keepsearch",
//	  "log_level": "info"
//	}
//
// The passphrase is never read from configuration.
package config
