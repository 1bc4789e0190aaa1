package desktop

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/keepsearch/internal/logging"
)

var raiseTools = []tool{
	{name: "wmctrl", args: []string{"-a"}},
	{name: "xdotool"},
}

// WindowRaiser activates the window whose title contains a hint.
type WindowRaiser struct {
	logger logging.Logger
}

func NewWindowRaiser(logger logging.Logger) *WindowRaiser {
	return &WindowRaiser{logger: logger}
}

// BringToFront asks the window manager to focus the window matching hint.
// An empty hint is a no-op.
func (r *WindowRaiser) BringToFront(ctx context.Context, hint string) error {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return nil
	}

	t, path, err := firstAvailable(raiseTools)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	args := raiseArgs(t, hint)
	if out, err := execCommandContext(ctx, path, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", t.name, err, strings.TrimSpace(string(out)))
	}
	r.logger.Debug(ctx, "raised window", "tool", t.name, "hint", hint)
	return nil
}

// raiseArgs places hint where each tool expects it: last for wmctrl, as the
// search pattern for xdotool.
func raiseArgs(t tool, hint string) []string {
	if t.name == "xdotool" {
		return []string{"search", "--limit", "1", "--name", hint, "windowactivate"}
	}
	return append(append([]string{}, t.args...), hint)
}
