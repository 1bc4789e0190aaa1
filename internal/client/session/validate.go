package session

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/keepsearch/internal/client/models"
	"github.com/dmitrijs2005/keepsearch/internal/common"
	"github.com/dmitrijs2005/keepsearch/internal/filex"
	"github.com/dmitrijs2005/keepsearch/internal/keepassxc"
	"github.com/spf13/afero"
)

// pathResolver is implemented by oracles that can check their binary ahead of
// a call, such as *keepassxc.CLI.
type pathResolver interface {
	LookPath() (string, error)
}

func configError(kind error, path string) error {
	if path == "" {
		return fmt.Errorf("%w: no path configured: %w", kind, common.ErrConfiguration)
	}
	return fmt.Errorf("%w: %s: %w", kind, path, common.ErrConfiguration)
}

// Validate checks that the oracle binary can be found and that the database
// and key file exist. Failures match common.ErrConfiguration and the specific
// keepassxc kind.
func (m *Manager) Validate(ctx context.Context) error {
	if r, ok := m.oracle.(pathResolver); ok {
		if _, err := r.LookPath(); err != nil {
			return err
		}
	}
	return validateTarget(m.fs, m.Target())
}

func validateTarget(fsys afero.Fs, t models.DatabaseTarget) error {
	if t.Path == "" {
		return configError(keepassxc.ErrDatabaseNotFound, "")
	}
	ok, err := filex.IsRegularFile(fsys, t.Path)
	if err != nil {
		return fmt.Errorf("check database file: %w", err)
	}
	if !ok {
		return configError(keepassxc.ErrDatabaseNotFound, t.Path)
	}

	if t.HasKeyFile() {
		ok, err := filex.IsRegularFile(fsys, t.KeyFilePath)
		if err != nil {
			return fmt.Errorf("check key file: %w", err)
		}
		if !ok {
			return configError(keepassxc.ErrKeyFileNotFound, t.KeyFilePath)
		}
	}
	return nil
}
