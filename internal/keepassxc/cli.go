package keepassxc

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"time"

	"github.com/dmitrijs2005/keepsearch/internal/client/models"
	"github.com/dmitrijs2005/keepsearch/internal/common"
	"github.com/dmitrijs2005/keepsearch/internal/logging"
)

// DefaultBinary is the oracle executable looked up on PATH.
const DefaultBinary = "keepassxc-cli"

// DefaultTimeout bounds a single oracle call.
const DefaultTimeout = 10 * time.Second

// RawOutput is what one oracle process produced.
type RawOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Oracle runs a command against a database with a credential.
//
// A non-nil error is always a *CLIError (or a context error when ctx was
// cancelled by the caller). RawOutput is filled as far as the process got.
type Oracle interface {
	Run(ctx context.Context, target models.DatabaseTarget, cred models.Credential, cmd Command) (RawOutput, error)
}

// execCommandContext and lookPath are test seams.
var (
	execCommandContext = exec.CommandContext
	lookPath           = exec.LookPath
)

// CLI is the Oracle backed by a real keepassxc-cli binary. It holds no state
// between calls and is safe for concurrent use.
type CLI struct {
	binary  string
	timeout time.Duration
	logger  logging.Logger
}

// NewCLI returns a CLI running binary (DefaultBinary when empty) with each call
// bounded by timeout (DefaultTimeout when zero or negative).
func NewCLI(binary string, timeout time.Duration, logger logging.Logger) *CLI {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CLI{binary: binary, timeout: timeout, logger: logger}
}

// Binary returns the configured executable name or path.
func (c *CLI) Binary() string { return c.binary }

// LookPath resolves the binary on PATH and reports ErrBinaryNotFound when it
// cannot be executed.
func (c *CLI) LookPath() (string, error) {
	p, err := lookPath(c.binary)
	if err != nil {
		return "", &CLIError{Kind: ErrBinaryNotFound, ExitCode: -1, Cause: err}
	}
	return p, nil
}

// Run spawns one keepassxc-cli process, feeds the passphrase on stdin and waits
// for it to exit or for the call timeout to elapse. On timeout the process is
// killed and ErrTimeout is returned.
func (c *CLI) Run(ctx context.Context, target models.DatabaseTarget, cred models.Credential, cmd Command) (RawOutput, error) {
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := cmd.argv(target.Path, cred.KeyFilePath())

	passphrase := cred.Passphrase()
	defer common.WipeByteArray(passphrase)
	input := make([]byte, 0, len(passphrase)+1)
	input = append(input, passphrase...)
	input = append(input, '\n')
	defer common.WipeByteArray(input)

	var stdout, stderr bytes.Buffer
	proc := execCommandContext(runCtx, c.binary, args...)
	proc.Stdin = bytes.NewReader(input)
	proc.Stdout = &stdout
	proc.Stderr = &stderr
	// Grandchildren holding the pipes must not keep Wait blocked after a kill.
	proc.WaitDelay = time.Second

	started := time.Now()
	runErr := proc.Run()

	out := RawOutput{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1}
	if proc.ProcessState != nil {
		out.ExitCode = proc.ProcessState.ExitCode()
	}

	c.logger.Debug(ctx, "keepassxc-cli call",
		"command", cmd.Name,
		"args", args,
		"exit_code", out.ExitCode,
		"duration", time.Since(started),
	)

	if err := ctx.Err(); err != nil {
		return out, err
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return out, &CLIError{Kind: ErrTimeout, ExitCode: -1, Stderr: cleanStderr(out.Stderr)}
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return out, launchError(runErr)
		}
	}
	return out, Classify(out.ExitCode, out.Stderr)
}

func launchError(err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return &CLIError{Kind: ErrBinaryNotFound, ExitCode: -1, Cause: err}
	}
	return &CLIError{Kind: ErrLaunch, ExitCode: -1, Cause: err}
}

var _ Oracle = (*CLI)(nil)
