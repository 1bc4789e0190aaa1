package keepassxc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/keepsearch/internal/common"
)

var (
	ErrWrongCredential  = errors.New("wrong passphrase")
	ErrKeyFileMismatch  = errors.New("key file rejected")
	ErrDatabaseNotFound = errors.New("database file not found")
	ErrKeyFileNotFound  = errors.New("key file not found")
	ErrBinaryNotFound   = errors.New("keepassxc-cli not found")
	ErrEntryNotFound    = errors.New("entry not found")
	ErrNoResults        = errors.New("no results")
	ErrTimeout          = errors.New("keepassxc-cli timed out")
	ErrLaunch           = errors.New("keepassxc-cli could not be started")
	ErrUnknownCLI       = errors.New("keepassxc-cli error")
)

// category maps a kind to its common error category, or nil.
func category(kind error) error {
	switch kind {
	case ErrWrongCredential, ErrKeyFileMismatch:
		return common.ErrAuth
	case ErrDatabaseNotFound, ErrKeyFileNotFound, ErrBinaryNotFound:
		return common.ErrConfiguration
	case ErrTimeout, ErrLaunch:
		return common.ErrTransient
	default:
		return nil
	}
}

// CLIError is a classified keepassxc-cli failure.
type CLIError struct {
	Kind     error
	ExitCode int
	// Stderr is the cleaned stderr of the process. It never contains the
	// passphrase: the secret is only written to stdin.
	Stderr string
	// Cause is set for failures that happened before or instead of a normal
	// exit, e.g. a failed fork.
	Cause error
}

func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Stderr != "" {
		b.WriteString(": ")
		b.WriteString(e.Stderr)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if e.ExitCode > 0 {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	return b.String()
}

// Unwrap exposes the kind, its category and the cause to errors.Is / errors.As.
func (e *CLIError) Unwrap() []error {
	errs := []error{e.Kind}
	if c := category(e.Kind); c != nil {
		errs = append(errs, c)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// KindOf returns the kind of a *CLIError found in err's chain, or nil.
func KindOf(err error) error {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Kind
	}
	return nil
}

// stderr fragments emitted by keepassxc-cli, lower-cased. Checked in order:
// key-file messages first, since a bad key file may also mention credentials.
var (
	keyFileMissingHints  = []string{"does not exist", "no such file", "not found"}
	keyFileMismatchHints = []string{
		"failed to load key file",
		"invalid key file",
		"unable to open key file",
		"could not load key file",
		"key file mismatch",
	}
	wrongCredentialHints = []string{
		"invalid credentials",
		"wrong password",
		"wrong key or database file is corrupt",
		"hmac mismatch",
	}
	databaseMissingHints = []string{
		"does not exist",
		"failed to open database file",
		"no such file",
		"cannot open database",
	}
	entryMissingHints = []string{"could not find entry", "entry not found"}
	noResultHints     = []string{"no results for that"}
)

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

// cleanStderr drops the interactive passphrase prompt keepassxc-cli prints
// when not run with -q and trims surrounding whitespace.
func cleanStderr(stderr string) string {
	lines := strings.Split(strings.ReplaceAll(stderr, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "Enter password to unlock") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// Classify turns an exit code and stderr into a *CLIError. It returns nil for
// exit code 0.
func Classify(exitCode int, stderr string) error {
	if exitCode == 0 {
		return nil
	}
	msg := cleanStderr(stderr)
	lower := strings.ToLower(msg)

	var kind error
	switch {
	case strings.Contains(lower, "key file") && containsAny(lower, keyFileMissingHints):
		kind = ErrKeyFileNotFound
	case containsAny(lower, keyFileMismatchHints):
		kind = ErrKeyFileMismatch
	case containsAny(lower, wrongCredentialHints):
		kind = ErrWrongCredential
	case containsAny(lower, entryMissingHints):
		kind = ErrEntryNotFound
	case containsAny(lower, noResultHints):
		kind = ErrNoResults
	case containsAny(lower, databaseMissingHints):
		kind = ErrDatabaseNotFound
	default:
		kind = ErrUnknownCLI
	}
	return &CLIError{Kind: kind, ExitCode: exitCode, Stderr: msg}
}
