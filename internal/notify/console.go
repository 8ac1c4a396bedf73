package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/mattn/go-isatty"
)

// Console writes reports to a terminal, highlighted when Color is set.
type Console struct {
	mu    sync.Mutex
	Out   io.Writer
	Color bool
}

// reportLexer tokenises the text produced by updates.Render.
var reportLexer = chroma.MustNewLexer(
	&chroma.Config{Name: "gitmon report", Aliases: []string{"gitmon"}, EnsureNL: true},
	func() chroma.Rules {
		return chroma.Rules{
			"root": {
				{Pattern: `^(\[)(\d+\+)( )(\d+-)(\])( [^\n]*\n)`, Type: chroma.ByGroups(
					chroma.Punctuation, chroma.GenericInserted, chroma.Text,
					chroma.GenericDeleted, chroma.Punctuation, chroma.NameAttribute,
				)},
				{Pattern: `^(\[[^\]\n]+\])([^\n]*\n)`, Type: chroma.ByGroups(chroma.GenericHeading, chroma.GenericEmph)},
				{Pattern: `^-{10}\n`, Type: chroma.Punctuation},
				{Pattern: `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\n`, Type: chroma.LiteralDate},
				{Pattern: `^Files:\n`, Type: chroma.GenericSubheading},
				{Pattern: `^\(\d+ more files?\)\n`, Type: chroma.Comment},
				{Pattern: `^([^:\n]+)(: )([^\n]*\n)`, Type: chroma.ByGroups(chroma.NameEntity, chroma.Punctuation, chroma.Text)},
				{Pattern: `[^\n]*\n`, Type: chroma.Text},
			},
		}
	},
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *Console) Notify(_ context.Context, n Notification) error {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", strings.ReplaceAll(n.Title, "\n", " @ "))
	if !c.Color {
		b.WriteString(n.Message)
	} else if err := highlight(&b, n.Message, consoleStyle()); err != nil {
		slog.Debug("highlight report", slog.Any("error", err))
		b.WriteString(n.Message)
	}
	if !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.Out, b.String())
	return err
}

func highlight(w io.Writer, text string, style *chroma.Style) error {
	it, err := reportLexer.Tokenise(nil, text)
	if err != nil {
		return err
	}
	return formatters.TTY256.Format(w, style, it)
}

func consoleStyle() *chroma.Style {
	name := "github"
	if detectDarkMode != nil {
		dark, err := detectDarkMode()
		if err != nil {
			slog.Debug("detect dark-mode", slog.Any("error", err))
		} else if dark {
			name = "github-dark"
		}
	}
	if style := styles.Get(name); style != nil {
		return style
	}
	return styles.Fallback
}
