package desktop

import (
	"errors"
	"os/exec"
	"time"
)

// toolTimeout bounds every helper invocation.
const toolTimeout = 3 * time.Second

// ErrNoTool is returned when none of the candidate helpers is installed.
var ErrNoTool = errors.New("no suitable desktop helper found")

var (
	lookPath           = exec.LookPath
	execCommandContext = exec.CommandContext
)

// tool is a helper binary with the arguments it needs.
type tool struct {
	name string
	args []string
}

// firstAvailable returns the first tool found on PATH.
func firstAvailable(tools []tool) (tool, string, error) {
	for _, t := range tools {
		if p, err := lookPath(t.name); err == nil {
			return t, p, nil
		}
	}
	return tool{}, "", ErrNoTool
}
