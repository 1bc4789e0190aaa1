package desktop

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/keepsearch/internal/logging"
)

var clipboardTools = []tool{
	{name: "wl-copy"},
	{name: "xclip", args: []string{"-selection", "clipboard"}},
	{name: "xsel", args: []string{"--clipboard", "--input"}},
}

// Clipboard writes text to the system clipboard. The text is written to the
// helper's stdin, so it never appears in a process listing.
type Clipboard struct {
	logger logging.Logger
}

func NewClipboard(logger logging.Logger) *Clipboard {
	return &Clipboard{logger: logger}
}

func (c *Clipboard) Copy(ctx context.Context, text string) error {
	t, path, err := firstAvailable(clipboardTools)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	cmd := execCommandContext(ctx, path, t.args...)
	cmd.Stdin = strings.NewReader(text)
	// No output pipes: wl-copy and xclip fork a child that keeps serving the
	// selection and would hold them open.
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", t.name, err)
	}
	// Length only; the text may be a password.
	c.logger.Debug(ctx, "copied to clipboard", "tool", t.name, "bytes", len(text))
	return nil
}
