package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// CommandLine runs an external command per notification. The placeholders
// ${title}, ${message} and ${image} are replaced inside each argument.
type CommandLine struct {
	args []string
}

func NewCommandLine(command string) (*CommandLine, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, errors.New("command.line.cmd is empty")
	}
	return &CommandLine{args: args}, nil
}

func (c *CommandLine) Args(n Notification) []string {
	r := strings.NewReplacer(
		"${title}", n.Title,
		"${message}", n.Message,
		"${image}", iconVariant(n.Icon),
	)
	out := make([]string, len(c.args))
	for i, arg := range c.args {
		out[i] = r.Replace(arg)
	}
	return out
}

func (c *CommandLine) Notify(ctx context.Context, n Notification) error {
	args := c.Args(n)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = n.Dir
	slog.Debug("running notifier", slog.Any("args", args), slog.String("dir", n.Dir))
	out, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("notifier %s: %w: %s", args[0], err, msg)
		}
		return fmt.Errorf("notifier %s: %w", args[0], err)
	}
	return nil
}
