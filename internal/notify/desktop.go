package notify

import (
	"context"
	"strings"
)

// Desktop shows a native desktop notification.
type Desktop struct {
	// Sticky notifications stay until dismissed.
	Sticky bool
}

func (d *Desktop) Notify(ctx context.Context, n Notification) error {
	summary, rest := splitTitle(n.Title)
	body := n.Message
	if rest != "" {
		body = rest + "\n\n" + body
	}
	return d.send(ctx, summary, body, iconVariant(n.Icon))
}

var appleScriptEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// appleScriptString quotes s as an AppleScript string literal. Only backslash
// and double quote need escaping; other characters are taken literally.
func appleScriptString(s string) string {
	return `"` + appleScriptEscaper.Replace(s) + `"`
}
