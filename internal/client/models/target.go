package models

// DatabaseTarget identifies the database file the oracle operates on.
// It comes from configuration and is read-only to the core.
type DatabaseTarget struct {
	Path        string
	KeyFilePath string
}

// HasKeyFile reports whether a key file is configured for the database.
func (t DatabaseTarget) HasKeyFile() bool { return t.KeyFilePath != "" }
