package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/keepsearch/internal/common"
	"github.com/dmitrijs2005/keepsearch/internal/keepassxc"
)

// UserMessage turns an error from a query into a short message for the user.
// Configuration and authentication problems each get their own wording, since
// the fix differs. Passphrases never reach err, so details are safe to show.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, keepassxc.ErrBinaryNotFound):
		return "Cannot execute keepassxc-cli. Please make sure keepassxc-cli is installed and accessible (-b)."
	case errors.Is(err, keepassxc.ErrDatabaseNotFound):
		return "Cannot find the database file. Please verify the database path (-d)."
	case errors.Is(err, keepassxc.ErrKeyFileNotFound):
		return "Cannot find the key file. Please verify the key file path (-k)."
	case errors.Is(err, keepassxc.ErrKeyFileMismatch):
		return "The key file was rejected. Check that it belongs to this database."
	case errors.Is(err, keepassxc.ErrWrongCredential):
		return "Wrong passphrase. The database is still locked, search again to retry."
	case errors.Is(err, common.ErrCancelled), errors.Is(err, context.Canceled):
		return "Unlock cancelled. The database is still locked."
	case errors.Is(err, keepassxc.ErrEntryNotFound):
		return "No such entry."
	case errors.Is(err, keepassxc.ErrTimeout):
		return "keepassxc-cli did not answer in time. Please try again."
	case errors.Is(err, common.ErrTransient):
		return "keepassxc-cli could not be started. Please try again."
	case errors.Is(err, common.ErrParse):
		return "Unexpected output from keepassxc-cli."
	default:
		return "Error while calling keepassxc-cli: " + err.Error()
	}
}
