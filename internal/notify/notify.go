// Package notify delivers rendered update reports to the user.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	darkmode "github.com/thiagokokada/dark-mode-go"
)

const (
	KindCommandLine = "command.line"
	KindDesktop     = "desktop"
	KindConsole     = "console"

	appName = "gitmon"
)

// ErrUnknownNotifier is returned by New for an unsupported notifier type.
var ErrUnknownNotifier = errors.New("unknown notifier type")

type Notification struct {
	Title   string
	Message string
	// Icon is an image path; a "-dark" variant next to it is preferred on
	// dark desktops.
	Icon string
	// Dir is the working directory for notifiers that run commands.
	Dir string
}

// TestNotification is sent by the self test.
func TestNotification(icon, dir string) Notification {
	return Notification{Title: "GitMon Test", Message: "It Works!", Icon: icon, Dir: dir}
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type Settings struct {
	// Command is the command.line notifier template.
	Command string
	Sticky  bool
	Color   bool
	Out     io.Writer
}

// New returns the notifier registered under kind. "growl" is accepted as an
// alias of "desktop".
func New(kind string, s Settings) (Notifier, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindCommandLine, "":
		return NewCommandLine(s.Command)
	case KindDesktop, "growl":
		return &Desktop{Sticky: s.Sticky}, nil
	case KindConsole:
		out := s.Out
		if out == nil {
			out = os.Stdout
		}
		return &Console{Out: out, Color: s.Color}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNotifier, kind)
	}
}

var detectDarkMode = darkmode.IsDarkMode

// iconVariant returns "<name>-dark<ext>" when the desktop uses a dark theme
// and that file exists.
func iconVariant(icon string) string {
	if icon == "" || detectDarkMode == nil {
		return icon
	}
	dark, err := detectDarkMode()
	if err != nil {
		slog.Debug("detect dark-mode", slog.Any("error", err))
		return icon
	}
	if !dark {
		return icon
	}
	ext := filepath.Ext(icon)
	candidate := strings.TrimSuffix(icon, ext) + "-dark" + ext
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return icon
}

// splitTitle splits a "name\npath" title into a summary and the rest.
func splitTitle(title string) (summary, rest string) {
	summary, rest, _ = strings.Cut(title, "\n")
	return summary, rest
}
