package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/keepsearch/internal/client/models"
	"github.com/dmitrijs2005/keepsearch/internal/client/session"
	"github.com/dmitrijs2005/keepsearch/internal/common"
	"github.com/dmitrijs2005/keepsearch/internal/filex"
)

// TermPrompter asks for the unlock credential on the terminal.
type TermPrompter struct {
	reader *bufio.Reader
	w      io.Writer
	target func() models.DatabaseTarget
}

// NewTermPrompter reads from reader and writes prompts to w. target reports
// the database being unlocked, for display only.
func NewTermPrompter(reader *bufio.Reader, w io.Writer, target func() models.DatabaseTarget) *TermPrompter {
	return &TermPrompter{reader: reader, w: w, target: target}
}

// RequestCredential prompts for the passphrase and, when the database uses a
// key file, for an optional key file override. An empty passphrase without a
// key file, or end of input, cancels the unlock.
func (p *TermPrompter) RequestCredential(ctx context.Context, hasKeyFile bool) (models.Credential, error) {
	if err := ctx.Err(); err != nil {
		return models.Credential{}, common.ErrCancelled
	}

	t := p.target()
	fmt.Fprintf(p.w, "Unlock KeePassXC database %s", t.Path)
	if hasKeyFile {
		fmt.Fprintf(p.w, " (with key file: %s)", t.KeyFilePath)
	}
	fmt.Fprintln(p.w)

	pass, err := GetPassword(p.reader, "Passphrase (empty to cancel): ", p.w)
	if errors.Is(err, io.EOF) {
		return models.Credential{}, common.ErrCancelled
	}
	if err != nil {
		return models.Credential{}, err
	}
	defer common.WipeByteArray(pass)

	if !hasKeyFile {
		if len(pass) == 0 {
			return models.Credential{}, common.ErrCancelled
		}
		return models.NewCredential(pass, ""), nil
	}

	keyFile, err := GetSimpleText(p.reader, "Key file (empty for the configured one)", p.w)
	if err != nil && !errors.Is(err, io.EOF) {
		return models.Credential{}, err
	}
	// Empty keyFile: the session binds the configured one.
	if keyFile, err = filex.ExpandHome(keyFile); err != nil {
		return models.Credential{}, err
	}
	return models.NewCredential(pass, keyFile), nil
}

var _ session.Prompter = (*TermPrompter)(nil)
