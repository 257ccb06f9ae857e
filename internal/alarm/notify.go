package alarm

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandNotifier runs a shell command template for each alert, e.g.
// "notify-send 'Dayflow' '{{.Title}}'". This is the local sound/vibration
// channel; chat notifiers cover delivery while the app is backgrounded.
type CommandNotifier struct {
	Command string
}

// Alert runs the command with alert fields substituted.
func (n *CommandNotifier) Alert(ctx context.Context, a Alert) error {
	if n.Command == "" {
		return nil
	}
	cmdStr := templateAlert(n.Command, a)
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("alarm: command notifier: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// templateAlert replaces placeholders in the command template with alert
// values.
func templateAlert(command string, a Alert) string {
	r := strings.NewReplacer(
		"{{.Title}}", a.Title,
		"{{.Body}}", a.Body,
		"{{.WindowID}}", a.WindowID,
		"{{.Repeat}}", fmt.Sprintf("%d", a.Repeat),
	)
	return r.Replace(command)
}
