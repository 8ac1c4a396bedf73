//go:build darwin

package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

func (d *Desktop) send(ctx context.Context, summary, body, _ string) error {
	script := fmt.Sprintf("display notification %s with title %s", appleScriptString(body), appleScriptString(summary))
	if out, err := exec.CommandContext(ctx, "osascript", "-e", script).CombinedOutput(); err != nil {
		return fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
