package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/keepsearch/internal/client/credstore"
	"github.com/dmitrijs2005/keepsearch/internal/client/models"
	"github.com/dmitrijs2005/keepsearch/internal/common"
	"github.com/dmitrijs2005/keepsearch/internal/keepassxc"
	"github.com/dmitrijs2005/keepsearch/internal/logging"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

// Config is the read-only configuration of a Manager.
type Config struct {
	Target models.DatabaseTarget
	// InactivityTimeout locks the session after this much idle time.
	// Zero caches the credential until an explicit lock.
	InactivityTimeout time.Duration
	// WindowHint is passed to the WindowRaiser before prompting.
	WindowHint string
	// Fs is used to check the database and key file. Defaults to the OS.
	Fs afero.Fs
}

// Status is a secret-free snapshot of the session.
type Status struct {
	State        State
	Database     string
	SessionID    string
	UnlockedAt   time.Time
	ExpiresAt    time.Time
	NeverExpires bool
}

// Manager serializes unlocks and owns the reaction to oracle failures.
type Manager struct {
	oracle   keepassxc.Oracle
	store    *credstore.Store
	prompter Prompter
	raiser   WindowRaiser
	fs       afero.Fs
	logger   logging.Logger

	unlocks singleflight.Group

	mu        sync.Mutex
	state     State
	target    models.DatabaseTarget
	ttl       time.Duration
	hint      string
	sessionID string
	lastErr   error
}

// NewManager wires a Manager. The store is shared by reference and must not
// be mutated by anyone else. raiser may be nil.
func NewManager(oracle keepassxc.Oracle, store *credstore.Store, prompter Prompter, raiser WindowRaiser, logger logging.Logger, cfg Config) *Manager {
	fsys := cfg.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Manager{
		oracle:   oracle,
		store:    store,
		prompter: prompter,
		raiser:   raiser,
		fs:       fsys,
		logger:   logger,
		state:    Locked,
		target:   cfg.Target,
		ttl:      cfg.InactivityTimeout,
		hint:     cfg.WindowHint,
	}
}

func (m *Manager) fire(ev Event) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fireLocked(ev)
}

func (m *Manager) fireLocked(ev Event) State {
	if next, ok := Transition(m.state, ev); ok {
		m.state = next
	}
	if m.state != Unlocked {
		m.sessionID = ""
	}
	return m.state
}

// Target returns the database the session is bound to.
func (m *Manager) Target() models.DatabaseTarget {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target
}

// SetTarget rebinds the session to another database or key file. Any cached
// credential is discarded.
func (m *Manager) SetTarget(ctx context.Context, t models.DatabaseTarget) {
	m.mu.Lock()
	changed := m.target != t
	m.target = t
	m.mu.Unlock()

	if changed {
		m.logger.Info(ctx, "database target changed", "db", t.Path, "key_file", t.HasKeyFile())
		m.Lock(ctx)
	}
}

// SetTimeout changes the inactivity timeout and locks the session.
func (m *Manager) SetTimeout(ctx context.Context, d time.Duration) {
	m.mu.Lock()
	m.ttl = d
	m.mu.Unlock()
	m.Lock(ctx)
}

// Lock discards the cached credential.
func (m *Manager) Lock(ctx context.Context) {
	m.store.Clear()
	m.fire(EventLock)
	m.logger.Info(ctx, "session locked")
}

// State returns the current state. A session whose credential has expired
// is reported, and becomes, Locked.
func (m *Manager) State() State {
	m.detectExpiry(context.Background())
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the most recent unlock rejection, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Status returns a snapshot of the session without any secret.
func (m *Manager) Status() Status {
	m.detectExpiry(context.Background())
	info, live := m.store.Info()

	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{State: m.state, Database: m.target.Path, SessionID: m.sessionID}
	if live {
		st.UnlockedAt = info.CreatedAt
		st.ExpiresAt = info.ExpiresAt
		st.NeverExpires = info.NeverExpires()
	}
	return st
}

// detectExpiry moves an Unlocked session whose credential is gone to Locked.
func (m *Manager) detectExpiry(ctx context.Context) {
	if _, ok := m.store.Info(); ok {
		return
	}
	m.mu.Lock()
	expired := m.state == Unlocked
	id := m.sessionID
	if expired {
		m.fireLocked(EventExpired)
	}
	m.mu.Unlock()

	if expired {
		m.logger.Info(ctx, "session expired after inactivity", "session_id", id)
	}
}

// credential returns a live credential, prompting for one when necessary.
// fresh is true when the credential was entered during this call.
func (m *Manager) credential(ctx context.Context) (cred models.Credential, fresh bool, err error) {
	if c, ok := m.store.Get(); ok {
		return c, false, nil
	}
	m.detectExpiry(ctx)

	v, err, _ := m.unlocks.Do("unlock", func() (any, error) {
		return m.unlock(ctx)
	})
	if err != nil {
		return models.Credential{}, false, err
	}
	// Every caller decrypts its own copy; no plaintext outlives the unlock.
	c, ok := m.store.Get()
	if !ok {
		return models.Credential{}, false, fmt.Errorf("session locked during unlock: %w", common.ErrCancelled)
	}
	return c, v.(bool), nil
}

// Unlock makes sure the session is unlocked, prompting if needed.
func (m *Manager) Unlock(ctx context.Context) error {
	cred, _, err := m.credential(ctx)
	if err != nil {
		return err
	}
	cred.Wipe()
	return nil
}

// unlock prompts for a credential, checks it and seals it in the store.
// It reports whether a credential was entered; false means another caller
// had already unlocked.
func (m *Manager) unlock(ctx context.Context) (bool, error) {
	if _, ok := m.store.Info(); ok {
		return false, nil
	}

	if err := m.Validate(ctx); err != nil {
		m.fire(EventUnlockFailed)
		m.logger.Warn(ctx, "configuration check failed", "error", err)
		return false, err
	}

	m.mu.Lock()
	m.fireLocked(EventCredentialMissing)
	target, ttl, hint := m.target, m.ttl, m.hint
	m.mu.Unlock()

	if m.raiser != nil {
		if err := m.raiser.BringToFront(ctx, hint); err != nil {
			m.logger.Debug(ctx, "could not raise prompt window", "error", err)
		}
	}

	cred, err := m.prompter.RequestCredential(ctx, target.HasKeyFile())
	if err != nil {
		m.fire(EventPromptCancelled)
		if errors.Is(err, common.ErrCancelled) || errors.Is(err, context.Canceled) {
			m.logger.Info(ctx, "unlock cancelled")
			return false, common.ErrCancelled
		}
		return false, fmt.Errorf("read credential: %w", err)
	}
	if target.HasKeyFile() && !cred.HasKeyFile() {
		cred = withKeyFile(cred, target.KeyFilePath)
	}
	defer cred.Wipe()

	if _, err := m.runOnce(ctx, target, cred, keepassxc.ProbeCommand()); err != nil {
		if errors.Is(err, common.ErrAuth) {
			m.store.Clear()
			m.mu.Lock()
			m.fireLocked(EventUnlockRejected)
			m.lastErr = err
			m.fireLocked(EventErrorReported)
			m.mu.Unlock()
			m.logger.Warn(ctx, "credential rejected", "db", target.Path, "reason", keepassxc.KindOf(err))
			return false, err
		}
		m.fire(EventUnlockFailed)
		m.logger.Warn(ctx, "unlock failed", "db", target.Path, "error", err)
		return false, err
	}

	m.store.Set(cred, ttl)
	id := uuid.NewString()
	m.mu.Lock()
	m.fireLocked(EventUnlockSucceeded)
	m.sessionID = id
	m.lastErr = nil
	m.mu.Unlock()

	m.logger.Info(ctx, "database unlocked",
		"db", target.Path,
		"key_file", cred.HasKeyFile(),
		"timeout", ttl,
		"session_id", id,
	)
	return true, nil
}

// runOnce calls the oracle and retries a single time on a transient failure.
func (m *Manager) runOnce(ctx context.Context, target models.DatabaseTarget, cred models.Credential, cmd keepassxc.Command) (keepassxc.RawOutput, error) {
	out, err := m.oracle.Run(ctx, target, cred, cmd)
	if err != nil && errors.Is(err, common.ErrTransient) && ctx.Err() == nil {
		m.logger.Warn(ctx, "transient oracle failure, retrying", "command", cmd.Name, "error", err)
		out, err = m.oracle.Run(ctx, target, cred, cmd)
	}
	return out, err
}

// Run executes cmd with the session credential, unlocking first if needed.
//
// A rejection of the cached credential clears it and prompts once more; a
// rejection of a credential entered during this call is returned as is.
// Every call the oracle accepted restarts the inactivity countdown.
func (m *Manager) Run(ctx context.Context, cmd keepassxc.Command) (keepassxc.RawOutput, error) {
	for attempt := 0; ; attempt++ {
		cred, fresh, err := m.credential(ctx)
		if err != nil {
			return keepassxc.RawOutput{}, err
		}

		out, err := m.runOnce(ctx, m.Target(), cred, cmd)
		cred.Wipe()

		switch {
		case err == nil, errors.Is(err, keepassxc.ErrNoResults), errors.Is(err, keepassxc.ErrEntryNotFound):
			m.store.Touch()
			m.fire(EventQuerySucceeded)
			return out, err

		case errors.Is(err, common.ErrAuth):
			m.store.Clear()
			m.fire(EventCredentialRejected)
			m.logger.Warn(ctx, "cached credential rejected", "reason", keepassxc.KindOf(err))
			if !fresh && attempt == 0 {
				continue
			}
			return out, err

		default:
			return out, err
		}
	}
}

// withKeyFile returns cred bound to keyFile and wipes cred.
func withKeyFile(cred models.Credential, keyFile string) models.Credential {
	pass := cred.Passphrase()
	defer common.WipeByteArray(pass)
	cred.Wipe()
	return models.NewCredential(pass, keyFile)
}
