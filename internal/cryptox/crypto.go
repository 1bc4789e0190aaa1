// Package cryptox seals secrets that must stay in process memory for a while,
// so a heap dump or swapped page does not show them in plain text.
//
// It does not protect against an attacker who can read the whole process:
// the key lives next to the ciphertext. Database decryption is left to
// keepassxc-cli.
package cryptox

import (
	"crypto/rand"
	"errors"

	"github.com/dmitrijs2005/keepsearch/internal/common"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrOpen is returned when a sealed secret cannot be authenticated.
var ErrOpen = errors.New("sealed secret is corrupt")

// Sealed is an encrypted secret with its nonce.
type Sealed struct {
	Ciphertext []byte
	Nonce      []byte
}

// Wipe zeroes the sealed bytes.
func (s *Sealed) Wipe() {
	common.WipeByteArray(s.Ciphertext)
	common.WipeByteArray(s.Nonce)
	s.Ciphertext, s.Nonce = nil, nil
}

// Sealer encrypts with XChaCha20-Poly1305 under a random key that never
// leaves the process. Safe for concurrent use.
type Sealer struct {
	key []byte
}

// NewSealer returns a Sealer with a fresh random key.
func NewSealer() *Sealer {
	key := make([]byte, chacha20poly1305.KeySize)
	// crypto/rand.Read never returns an error since Go 1.24.
	_, _ = rand.Read(key)
	return &Sealer{key: key}
}

// Seal encrypts plaintext. plaintext is left untouched; callers wipe it.
func (s *Sealer) Seal(plaintext []byte) Sealed {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		// Only possible with a wrong key size.
		panic(err)
	}
	nonce := make([]byte, aead.NonceSize())
	_, _ = rand.Read(nonce)
	return Sealed{Ciphertext: aead.Seal(nil, nonce, plaintext, nil), Nonce: nonce}
}

// Open decrypts s. The returned slice should be wiped after use.
func (s *Sealer) Open(sealed Sealed) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		panic(err)
	}
	if len(sealed.Nonce) != aead.NonceSize() {
		return nil, ErrOpen
	}
	plain, err := aead.Open(nil, sealed.Nonce, sealed.Ciphertext, nil)
	if err != nil {
		return nil, ErrOpen
	}
	return plain, nil
}
