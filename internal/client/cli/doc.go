// Package cli provides the interactive keepsearch terminal client.
//
// It wires configuration, the keepassxc-cli oracle, the in-memory credential
// store and the session manager, then runs a REPL. The passphrase is asked
// for on the terminal the first time a command needs the database and again
// after the inactivity timeout.
//
// Commands:
//   - search / s: list entries whose title matches the query
//   - show: display an entry with the password masked
//   - copy: put a field (password by default) on the clipboard
//   - lock, status, help, exit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
