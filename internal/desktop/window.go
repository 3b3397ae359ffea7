package desktop

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// CommandWindow hides and restores the agent's own window by running shell commands, e.g.
// xdotool or wmctrl invocations. An empty command only waits for the settle delay.
type CommandWindow struct {
	HideCommand string
	ShowCommand string
	Settle      time.Duration
}

func (w *CommandWindow) Hide(ctx context.Context) error {
	return w.run(ctx, w.HideCommand)
}

func (w *CommandWindow) Show(ctx context.Context) error {
	return w.run(ctx, w.ShowCommand)
}

func (w *CommandWindow) run(ctx context.Context, command string) error {
	if command != "" {
		if _, err := executeCommand(ctx, command); err != nil {
			return err
		}
	}
	return sleep(ctx, w.Settle)
}

func executeCommand(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "bash", "-c", command)

	output, err := cmd.CombinedOutput()
	if err != nil || cmd.ProcessState.ExitCode() != 0 {
		return "", fmt.Errorf("output=[%s], process state=[%s], error=[%w]", output, cmd.ProcessState.String(), err)
	}

	return string(output), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
