// Package filex contains filesystem helpers for resolving and checking the
// database and key-file paths from configuration.
package filex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// userHomeDir is a test seam for os.UserHomeDir.
var userHomeDir = os.UserHomeDir

// ExpandHome replaces a leading "~" (alone or followed by a separator) with the
// current user's home directory. Other paths are returned unchanged.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path, nil
	}
	home, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// IsRegularFile reports whether path exists on fsys and is not a directory.
// A missing file is reported as (false, nil); other stat failures are returned.
func IsRegularFile(fsys afero.Fs, path string) (bool, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return !info.IsDir(), nil
}
