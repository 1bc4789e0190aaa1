package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/keepsearch/internal/client/credstore"
	"github.com/dmitrijs2005/keepsearch/internal/client/models"
	"github.com/dmitrijs2005/keepsearch/internal/common"
	"github.com/dmitrijs2005/keepsearch/internal/keepassxc"
	"github.com/dmitrijs2005/keepsearch/internal/logging"
	"github.com/dmitrijs2005/keepsearch/internal/timex"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fake oracle ----

type oracleCall struct {
	Command    string
	Passphrase string
	KeyFile    string
}

// fakeOracle accepts only the passphrase in good. Results for non-probe
// commands come from stdout; failures can be queued in errs.
type fakeOracle struct {
	mu     sync.Mutex
	good   string
	stdout string
	errs   []error
	calls  []oracleCall
}

func (f *fakeOracle) Run(ctx context.Context, target models.DatabaseTarget, cred models.Credential, cmd keepassxc.Command) (keepassxc.RawOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pass := string(cred.Passphrase())
	f.calls = append(f.calls, oracleCall{Command: cmd.Name, Passphrase: pass, KeyFile: cred.KeyFilePath()})

	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return keepassxc.RawOutput{ExitCode: 1}, err
	}
	if pass != f.good {
		return keepassxc.RawOutput{ExitCode: 1}, keepassxc.Classify(1, "Error while reading the database: Invalid credentials were provided, please try again.")
	}
	return keepassxc.RawOutput{Stdout: f.stdout}, nil
}

func (f *fakeOracle) setGood(p string) {
	f.mu.Lock()
	f.good = p
	f.mu.Unlock()
}

func (f *fakeOracle) Calls() []oracleCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]oracleCall(nil), f.calls...)
}

func (f *fakeOracle) count(name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Command == name {
			n++
		}
	}
	return n
}

// resolvingOracle also implements LookPath, like *keepassxc.CLI.
type resolvingOracle struct {
	*fakeOracle
	lookErr error
}

func (r resolvingOracle) LookPath() (string, error) {
	if r.lookErr != nil {
		return "", r.lookErr
	}
	return "/usr/bin/keepassxc-cli", nil
}

// ---- fake prompter ----

type fakePrompter struct {
	mu         sync.Mutex
	answers    []string
	err        error
	keyFile    string
	calls      int32
	lastHasKey bool
	gate       chan struct{}
	called     chan struct{}
	issued     []models.Credential
}

func (p *fakePrompter) RequestCredential(ctx context.Context, hasKeyFile bool) (models.Credential, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.called != nil {
		p.called <- struct{}{}
	}
	if p.gate != nil {
		<-p.gate
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastHasKey = hasKeyFile
	if p.err != nil {
		return models.Credential{}, p.err
	}
	answer := ""
	if len(p.answers) > 0 {
		answer = p.answers[0]
		p.answers = p.answers[1:]
	}
	kf := ""
	if hasKeyFile {
		kf = p.keyFile
	}
	cred := models.NewCredential([]byte(answer), kf)
	p.issued = append(p.issued, cred)
	return cred, nil
}

func (p *fakePrompter) Calls() int { return int(atomic.LoadInt32(&p.calls)) }

// ---- fake raiser ----

type fakeRaiser struct {
	hints []string
	err   error
}

func (r *fakeRaiser) BringToFront(ctx context.Context, hint string) error {
	r.hints = append(r.hints, hint)
	return r.err
}

// ---- helpers ----

var start = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	oracle   *fakeOracle
	prompter *fakePrompter
	raiser   *fakeRaiser
	store    *credstore.Store
	clock    *timex.ManualClock
	fs       afero.Fs
	mgr      *Manager
}

func newFixture(t *testing.T, ttl time.Duration, answers ...string) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/db/vault.kdbx", []byte("kdbx"), 0o600))
	require.NoError(t, afero.WriteFile(fs, "/db/vault.keyx", []byte("key"), 0o600))

	f := &fixture{
		oracle:   &fakeOracle{good: "pw", stdout: "/Internet/Github work\n"},
		prompter: &fakePrompter{answers: answers, keyFile: "/db/vault.keyx"},
		raiser:   &fakeRaiser{},
		clock:    timex.NewManualClock(start),
		fs:       fs,
	}
	f.store = credstore.New(f.clock)
	f.mgr = NewManager(f.oracle, f.store, f.prompter, f.raiser, logging.Discard(), Config{
		Target:            models.DatabaseTarget{Path: "/db/vault.kdbx"},
		InactivityTimeout: ttl,
		WindowHint:        "keepsearch",
		Fs:                fs,
	})
	return f
}

func search(t *testing.T, m *Manager) error {
	t.Helper()
	_, err := m.Run(context.Background(), keepassxc.SearchCommand("git"))
	return err
}

// ---- tests ----

func TestManager_StartsLocked(t *testing.T) {
	f := newFixture(t, time.Minute)
	assert.Equal(t, Locked, f.mgr.State())
	_, ok := f.store.Get()
	assert.False(t, ok)
}

func TestManager_UnlockThenQuery(t *testing.T) {
	f := newFixture(t, time.Minute, "pw")

	out, err := f.mgr.Run(context.Background(), keepassxc.SearchCommand("git"))
	require.NoError(t, err)
	assert.Equal(t, "/Internet/Github work\n", out.Stdout)
	assert.Equal(t, Unlocked, f.mgr.State())
	assert.Equal(t, []string{"keepsearch"}, f.raiser.hints)

	calls := f.oracle.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "ls", calls[0].Command, "probe first")
	assert.Equal(t, "search", calls[1].Command, "then the search itself")

	require.NoError(t, search(t, f.mgr))
	assert.Equal(t, 1, f.prompter.Calls(), "cached credential reused")
	assert.Equal(t, 1, f.oracle.count("ls"))
}

func TestManager_WrongPassphrase(t *testing.T) {
	f := newFixture(t, time.Minute, "bad")

	err := search(t, f.mgr)
	require.Error(t, err)
	assert.ErrorIs(t, err, keepassxc.ErrWrongCredential)
	assert.ErrorIs(t, err, common.ErrAuth)
	assert.NotContains(t, err.Error(), "bad")

	assert.Equal(t, Locked, f.mgr.State())
	assert.ErrorIs(t, f.mgr.LastError(), keepassxc.ErrWrongCredential)
	_, ok := f.store.Get()
	assert.False(t, ok)

	assert.Equal(t, 1, f.prompter.Calls(), "no automatic retry")
	assert.Equal(t, 0, f.oracle.count("search"))
}

func TestManager_RejectionAlwaysClearsStore(t *testing.T) {
	tests := []struct {
		name  string
		prior func(f *fixture)
	}{
		{name: "nothing cached", prior: func(f *fixture) {}},
		{name: "credential cached by earlier unlock", prior: func(f *fixture) {
			f.prompter.answers = append([]string{"pw"}, f.prompter.answers...)
			require.NoError(t, search(t, f.mgr))
			f.oracle.setGood("changed-externally")
		}},
		{name: "credential cached without expiry", prior: func(f *fixture) {
			f.store.Set(models.NewCredential([]byte("stale"), ""), 0)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, time.Minute, "wrong", "still-wrong")
			tt.prior(f)

			err := search(t, f.mgr)
			require.ErrorIs(t, err, common.ErrAuth)

			_, ok := f.store.Get()
			assert.False(t, ok)
			assert.Equal(t, Locked, f.mgr.State())
		})
	}
}

func TestManager_CachedCredentialRejectedReprompts(t *testing.T) {
	f := newFixture(t, time.Minute, "pw", "pw2")
	require.NoError(t, search(t, f.mgr))

	// the database was re-keyed by another program
	f.oracle.setGood("pw2")

	require.NoError(t, search(t, f.mgr))
	assert.Equal(t, 2, f.prompter.Calls())
	assert.Equal(t, Unlocked, f.mgr.State())

	cred, ok := f.store.Get()
	require.True(t, ok)
	assert.Equal(t, []byte("pw2"), cred.Passphrase())
}

func TestManager_EnteredCredentialWipedAfterUnlock(t *testing.T) {
	tests := []struct {
		name    string
		keyFile string
		answer  string
		wantErr error
	}{
		{name: "accepted", answer: "pw"},
		{name: "accepted with configured key file", keyFile: "/db/vault.keyx", answer: "pw"},
		{name: "rejected", answer: "nope", wantErr: common.ErrAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, time.Minute, tt.answer)
			if tt.keyFile != "" {
				f.mgr.target.KeyFilePath = tt.keyFile
				f.prompter.keyFile = ""
			}

			err := search(t, f.mgr)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			f.prompter.mu.Lock()
			issued := f.prompter.issued
			f.prompter.mu.Unlock()
			require.Len(t, issued, 1)
			assert.Equal(t, make([]byte, len(tt.answer)), issued[0].Passphrase())
		})
	}
}

func TestManager_UnlockReportsFreshness(t *testing.T) {
	t.Run("credential entered", func(t *testing.T) {
		f := newFixture(t, time.Minute, "pw")

		cred, fresh, err := f.mgr.credential(context.Background())
		require.NoError(t, err)
		defer cred.Wipe()
		assert.True(t, fresh)
		assert.Equal(t, []byte("pw"), cred.Passphrase())
	})

	t.Run("store filled by another caller before the unlock ran", func(t *testing.T) {
		f := newFixture(t, time.Minute, "pw")
		f.store.Set(models.NewCredential([]byte("pw"), ""), time.Minute)

		fresh, err := f.mgr.unlock(context.Background())
		require.NoError(t, err)
		assert.False(t, fresh)
		assert.Equal(t, 0, f.prompter.Calls())
		assert.Empty(t, f.oracle.Calls())
	})

	t.Run("cached credential", func(t *testing.T) {
		f := newFixture(t, time.Minute, "pw")
		f.store.Set(models.NewCredential([]byte("pw"), ""), time.Minute)

		cred, fresh, err := f.mgr.credential(context.Background())
		require.NoError(t, err)
		defer cred.Wipe()
		assert.False(t, fresh)
	})
}

func TestManager_PromptCancelled(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.prompter.err = common.ErrCancelled

	err := search(t, f.mgr)
	require.ErrorIs(t, err, common.ErrCancelled)
	assert.Equal(t, Locked, f.mgr.State())
	assert.Empty(t, f.oracle.Calls())
	_, ok := f.store.Get()
	assert.False(t, ok)
	assert.Equal(t, 1, f.prompter.Calls(), "no retry after cancel")
}

func TestManager_PromptFailure(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.prompter.err = errors.New("tty gone")

	err := search(t, f.mgr)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrCancelled)
	assert.Equal(t, Locked, f.mgr.State())
}

func TestManager_ConcurrentQueriesShareOneUnlock(t *testing.T) {
	f := newFixture(t, time.Minute, "pw")
	f.prompter.gate = make(chan struct{})
	f.prompter.called = make(chan struct{}, 16)

	const n = 10
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- search(t, f.mgr)
		}()
	}

	<-f.prompter.called
	assert.Equal(t, Unlocking, f.mgr.State())
	time.Sleep(50 * time.Millisecond)
	close(f.prompter.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, f.prompter.Calls(), "exactly one prompt")
	assert.Equal(t, 1, f.oracle.count("ls"), "exactly one probe")
	assert.Equal(t, n, f.oracle.count("search"))
	assert.Equal(t, Unlocked, f.mgr.State())
}

func TestManager_ConcurrentQueriesShareRejection(t *testing.T) {
	f := newFixture(t, time.Minute, "bad")
	f.prompter.gate = make(chan struct{})
	f.prompter.called = make(chan struct{}, 16)

	const n = 5
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.mgr.Unlock(context.Background())
		}()
	}

	<-f.prompter.called
	time.Sleep(50 * time.Millisecond)
	close(f.prompter.gate)
	wg.Wait()
	close(errs)

	rejected := 0
	for err := range errs {
		if errors.Is(err, keepassxc.ErrWrongCredential) {
			rejected++
		}
	}
	assert.GreaterOrEqual(t, rejected, 1)
	assert.Equal(t, Locked, f.mgr.State())
}

func TestManager_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *fixture)
		wantKind error
	}{
		{
			name: "binary missing",
			setup: func(f *fixture) {
				f.mgr.oracle = resolvingOracle{fakeOracle: f.oracle, lookErr: &keepassxc.CLIError{Kind: keepassxc.ErrBinaryNotFound, ExitCode: -1}}
			},
			wantKind: keepassxc.ErrBinaryNotFound,
		},
		{
			name: "database missing",
			setup: func(f *fixture) {
				require.NoError(t, f.fs.Remove("/db/vault.kdbx"))
			},
			wantKind: keepassxc.ErrDatabaseNotFound,
		},
		{
			name: "no database configured",
			setup: func(f *fixture) {
				f.mgr.target = models.DatabaseTarget{}
			},
			wantKind: keepassxc.ErrDatabaseNotFound,
		},
		{
			name: "key file missing",
			setup: func(f *fixture) {
				f.mgr.target.KeyFilePath = "/db/missing.keyx"
			},
			wantKind: keepassxc.ErrKeyFileNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, time.Minute, "pw")
			tt.setup(f)

			err := search(t, f.mgr)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.ErrorIs(t, err, common.ErrConfiguration)
			assert.NotErrorIs(t, err, common.ErrAuth)

			assert.Equal(t, 0, f.prompter.Calls(), "configuration errors never prompt")
			assert.Empty(t, f.oracle.Calls())
			assert.Equal(t, Locked, f.mgr.State())
		})
	}
}

func TestManager_BinaryFoundPassesValidation(t *testing.T) {
	f := newFixture(t, time.Minute, "pw")
	f.mgr.oracle = resolvingOracle{fakeOracle: f.oracle}
	require.NoError(t, search(t, f.mgr))
}

func TestManager_DatabaseVanishesAfterUnlock(t *testing.T) {
	f := newFixture(t, time.Minute, "pw")
	require.NoError(t, search(t, f.mgr))

	f.oracle.errs = []error{keepassxc.Classify(1, "Database file /db/vault.kdbx does not exist.")}
	err := search(t, f.mgr)
	require.ErrorIs(t, err, common.ErrConfiguration)
	assert.Equal(t, 2, f.oracle.count("search"), "configuration errors are not retried")
}

func TestManager_TransientRetriedOnce(t *testing.T) {
	timeout := &keepassxc.CLIError{Kind: keepassxc.ErrTimeout, ExitCode: -1}

	t.Run("recovers on retry", func(t *testing.T) {
		f := newFixture(t, time.Minute, "pw")
		require.NoError(t, search(t, f.mgr))

		f.oracle.errs = []error{timeout}
		require.NoError(t, search(t, f.mgr))
		assert.Equal(t, 3, f.oracle.count("search"))
	})

	t.Run("surfaced after second failure", func(t *testing.T) {
		f := newFixture(t, time.Minute, "pw")
		require.NoError(t, search(t, f.mgr))

		f.oracle.errs = []error{timeout, timeout}
		err := search(t, f.mgr)
		require.ErrorIs(t, err, common.ErrTransient)
		assert.Equal(t, 3, f.oracle.count("search"))
		assert.Equal(t, Unlocked, f.mgr.State(), "transient failures keep the session")
	})

	t.Run("probe retried during unlock", func(t *testing.T) {
		f := newFixture(t, time.Minute, "pw")
		f.oracle.errs = []error{timeout}
		require.NoError(t, search(t, f.mgr))
		assert.Equal(t, 2, f.oracle.count("ls"))
		assert.Equal(t, 1, f.prompter.Calls())
	})
}

func TestManager_ExpiryEndToEnd(t *testing.T) {
	f := newFixture(t, 5*time.Second, "pw", "pw")

	require.NoError(t, search(t, f.mgr))
	assert.Equal(t, Unlocked, f.mgr.State())

	f.clock.Advance(6 * time.Second)
	assert.Equal(t, Locked, f.mgr.State(), "lazy expiry detected on access")

	require.NoError(t, search(t, f.mgr))
	assert.Equal(t, 2, f.prompter.Calls(), "expired session re-prompts")
	assert.Equal(t, 2, f.oracle.count("ls"))
}

func TestManager_QueriesSlideTheTimeout(t *testing.T) {
	f := newFixture(t, 5*time.Second, "pw")
	require.NoError(t, search(t, f.mgr))

	for i := 0; i < 5; i++ {
		f.clock.Advance(4 * time.Second)
		require.NoError(t, search(t, f.mgr))
	}
	assert.Equal(t, 1, f.prompter.Calls())
}

func TestManager_ZeroTimeoutCachesUntilLock(t *testing.T) {
	f := newFixture(t, 0, "pw", "pw")
	require.NoError(t, search(t, f.mgr))

	f.clock.Advance(1000 * time.Hour)
	require.NoError(t, search(t, f.mgr))
	assert.Equal(t, 1, f.prompter.Calls())
	assert.True(t, f.mgr.Status().NeverExpires)

	f.mgr.Lock(context.Background())
	assert.Equal(t, Locked, f.mgr.State())
	require.NoError(t, search(t, f.mgr))
	assert.Equal(t, 2, f.prompter.Calls())
}

func TestManager_NoResultsKeepsSession(t *testing.T) {
	f := newFixture(t, 5*time.Second, "pw")
	require.NoError(t, search(t, f.mgr))

	f.clock.Advance(4 * time.Second)
	f.oracle.errs = []error{keepassxc.Classify(1, "No results for that search term.")}
	err := search(t, f.mgr)
	require.ErrorIs(t, err, keepassxc.ErrNoResults)

	f.clock.Advance(4 * time.Second)
	require.NoError(t, search(t, f.mgr))
	assert.Equal(t, 1, f.prompter.Calls(), "an accepted call restarts the countdown")
}

func TestManager_KeyFileCredential(t *testing.T) {
	f := newFixture(t, time.Minute, "pw")
	f.mgr.target.KeyFilePath = "/db/vault.keyx"

	require.NoError(t, search(t, f.mgr))
	assert.True(t, f.prompter.lastHasKey)
	for _, c := range f.oracle.Calls() {
		assert.Equal(t, "/db/vault.keyx", c.KeyFile)
	}
}

func TestManager_RaiserFailureIgnored(t *testing.T) {
	f := newFixture(t, time.Minute, "pw")
	f.raiser.err = errors.New("wmctrl: not found")
	require.NoError(t, search(t, f.mgr))

	f2 := newFixture(t, time.Minute, "pw")
	f2.mgr.raiser = nil
	require.NoError(t, search(t, f2.mgr))
}

func TestManager_SetTargetAndTimeoutLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute, "pw", "pw", "pw")
	require.NoError(t, search(t, f.mgr))

	f.mgr.SetTarget(ctx, models.DatabaseTarget{Path: "/db/vault.kdbx"})
	assert.Equal(t, Unlocked, f.mgr.State(), "same target keeps the session")

	require.NoError(t, afero.WriteFile(f.fs, "/db/other.kdbx", []byte("kdbx"), 0o600))
	f.mgr.SetTarget(ctx, models.DatabaseTarget{Path: "/db/other.kdbx"})
	assert.Equal(t, Locked, f.mgr.State())
	_, ok := f.store.Get()
	assert.False(t, ok)

	require.NoError(t, search(t, f.mgr))
	f.mgr.SetTimeout(ctx, 10*time.Second)
	assert.Equal(t, Locked, f.mgr.State())
}

func TestManager_Status(t *testing.T) {
	f := newFixture(t, time.Minute, "pw")

	st := f.mgr.Status()
	assert.Equal(t, Locked, st.State)
	assert.Empty(t, st.SessionID)
	assert.True(t, st.UnlockedAt.IsZero())

	require.NoError(t, search(t, f.mgr))
	st = f.mgr.Status()
	assert.Equal(t, Unlocked, st.State)
	assert.Equal(t, "/db/vault.kdbx", st.Database)
	assert.NotEmpty(t, st.SessionID)
	assert.Equal(t, start, st.UnlockedAt)
	assert.Equal(t, start.Add(time.Minute), st.ExpiresAt)
	assert.False(t, st.NeverExpires)
}

func TestManager_ConfiguredKeyFileFillsCredential(t *testing.T) {
	f := newFixture(t, time.Minute, "pw")
	f.mgr.target.KeyFilePath = "/db/vault.keyx"
	f.prompter.keyFile = ""

	require.NoError(t, search(t, f.mgr))
	for _, c := range f.oracle.Calls() {
		assert.Equal(t, "pw", c.Passphrase)
		assert.Equal(t, "/db/vault.keyx", c.KeyFile)
	}
}
