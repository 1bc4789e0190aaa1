// Package models defines the client-side data types shared by the session,
// oracle adapter and search layers.
package models

import (
	"log/slog"

	"github.com/dmitrijs2005/keepsearch/internal/common"
)

const redacted = "[REDACTED]"

// Credential unlocks one database: a passphrase, optionally combined with a
// key file. It lives in memory only and is never serialized.
//
// The zero value is an empty passphrase without a key file.
type Credential struct {
	passphrase  []byte
	keyFilePath string
}

// NewCredential copies passphrase, so the caller may wipe its own buffer
// right after the call.
func NewCredential(passphrase []byte, keyFilePath string) Credential {
	return Credential{passphrase: common.CloneBytes(passphrase), keyFilePath: keyFilePath}
}

// Passphrase returns a copy of the secret. Wipe it with common.WipeByteArray
// when done.
func (c Credential) Passphrase() []byte {
	return common.CloneBytes(c.passphrase)
}

// KeyFilePath returns the key file path, or "" for passphrase-only credentials.
func (c Credential) KeyFilePath() string { return c.keyFilePath }

// HasKeyFile reports whether the credential includes a key file.
func (c Credential) HasKeyFile() bool { return c.keyFilePath != "" }

// Clone returns a Credential that does not share memory with c.
func (c Credential) Clone() Credential {
	return NewCredential(c.passphrase, c.keyFilePath)
}

// Wipe zeroes the passphrase bytes in place. Copies made by Clone or
// Passphrase are unaffected.
func (c Credential) Wipe() {
	common.WipeByteArray(c.passphrase)
}

func (c Credential) String() string { return redacted }

func (c Credential) GoString() string { return redacted }

func (c Credential) LogValue() slog.Value { return slog.StringValue(redacted) }

var _ slog.LogValuer = Credential{}
