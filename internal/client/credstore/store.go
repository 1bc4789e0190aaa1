// Package credstore keeps the unlock credential for the current database in
// process memory, with a sliding inactivity expiry.
//
// Expiry is evaluated lazily: nothing runs in the background, and an expired
// credential is discarded by the next Get or Touch. The passphrase is kept
// sealed with a per-store random key (see cryptox). All methods are safe for
// concurrent use and atomic with respect to each other.
package credstore

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/keepsearch/internal/client/models"
	"github.com/dmitrijs2005/keepsearch/internal/common"
	"github.com/dmitrijs2005/keepsearch/internal/cryptox"
	"github.com/dmitrijs2005/keepsearch/internal/timex"
)

// Info describes the cached credential without exposing it.
type Info struct {
	CreatedAt time.Time
	// ExpiresAt is zero when the credential never expires on its own.
	ExpiresAt  time.Time
	HasKeyFile bool
}

// NeverExpires reports whether the credential is cached until cleared.
func (i Info) NeverExpires() bool { return i.ExpiresAt.IsZero() }

// entry keeps the passphrase sealed; it is only in plain text while a copy
// is handed out.
type entry struct {
	passphrase  cryptox.Sealed
	keyFilePath string
	ttl         time.Duration
	createdAt   time.Time
	expiresAt   time.Time
}

// Store holds at most one credential.
type Store struct {
	mu     sync.Mutex
	clock  timex.Clock
	sealer *cryptox.Sealer
	cur    *entry
}

// New returns an empty Store. A nil clock means the system clock.
func New(clock timex.Clock) *Store {
	if clock == nil {
		clock = timex.SystemClock()
	}
	return &Store{clock: clock, sealer: cryptox.NewSealer()}
}

// Set caches a copy of cred, replacing and wiping any previous one. A ttl of
// zero keeps the credential until Clear; otherwise it expires ttl after the
// last Set or Touch.
func (s *Store) Set(cred models.Credential, ttl time.Duration) {
	pass := cred.Passphrase()
	defer common.WipeByteArray(pass)

	now := s.clock.Now()
	e := &entry{
		passphrase:  s.sealer.Seal(pass),
		keyFilePath: cred.KeyFilePath(),
		ttl:         ttl,
		createdAt:   now,
	}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked()
	s.cur = e
}

// Get returns a copy of the cached credential, or false when there is none or
// it has expired. An expired credential is cleared.
func (s *Store) Get() (models.Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.liveLocked() {
		return models.Credential{}, false
	}
	pass, err := s.sealer.Open(s.cur.passphrase)
	if err != nil {
		s.dropLocked()
		return models.Credential{}, false
	}
	defer common.WipeByteArray(pass)
	return models.NewCredential(pass, s.cur.keyFilePath), true
}

// Touch restarts the inactivity countdown. It returns false, and clears the
// store, when the credential is already gone or expired.
func (s *Store) Touch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.liveLocked() {
		return false
	}
	if s.cur.ttl > 0 {
		s.cur.expiresAt = s.clock.Now().Add(s.cur.ttl)
	}
	return true
}

// Clear discards and wipes the cached credential.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked()
}

// Info describes the live credential, or returns false when there is none.
func (s *Store) Info() (Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.liveLocked() {
		return Info{}, false
	}
	return Info{
		CreatedAt:  s.cur.createdAt,
		ExpiresAt:  s.cur.expiresAt,
		HasKeyFile: s.cur.keyFilePath != "",
	}, true
}

// liveLocked reports whether a non-expired credential is cached, dropping an
// expired one. The credential stays valid up to and including expiresAt.
func (s *Store) liveLocked() bool {
	if s.cur == nil {
		return false
	}
	if !s.cur.expiresAt.IsZero() && s.clock.Now().After(s.cur.expiresAt) {
		s.dropLocked()
		return false
	}
	return true
}

func (s *Store) dropLocked() {
	if s.cur != nil {
		s.cur.passphrase.Wipe()
		s.cur = nil
	}
}
