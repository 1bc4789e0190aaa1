// Package keepassxc talks to the keepassxc-cli binary, the oracle that holds
// all decryption logic for a KeePass database.
//
// # Overview
//
// Every call spawns a fresh keepassxc-cli process (see CLI.Run). The
// passphrase is written to the child's standard input followed by a newline
// and never appears in the argument list. A configured key file is passed as
// "-k <path>" right after the subcommand, and the database path is always a
// positional argument.
//
// Output is parsed by pure functions:
//
//   - ParseEntries:    "Key: value" stanzas from "show"
//   - ParseSearchList: one entry path per line from "search"
//   - ParseListing:    recursive flattened "ls -R -f" output
//
// # Error Handling
//
// A non-zero exit is classified from stderr into a *CLIError whose Kind is
// one of ErrWrongCredential, ErrKeyFileMismatch, ErrDatabaseNotFound,
// ErrKeyFileNotFound, ErrBinaryNotFound, ErrEntryNotFound, ErrNoResults,
// ErrTimeout, ErrLaunch or ErrUnknownCLI. CLIError also matches the broader
// categories from package common (ErrAuth, ErrConfiguration, ErrTransient)
// with errors.Is. The adapter never hides a failure; unknown stderr is kept
// verbatim in the error.
package keepassxc
