//go:build unix && !darwin

package notify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsDest = "org.freedesktop.Notifications"
	notificationsPath = "/org/freedesktop/Notifications"
)

func (d *Desktop) send(ctx context.Context, summary, body, icon string) error {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}
	defer conn.Close()

	// -1 lets the server decide, 0 never expires.
	timeout := int32(-1)
	if d.Sticky {
		timeout = 0
	}
	call := conn.Object(notificationsDest, notificationsPath).CallWithContext(ctx,
		notificationsDest+".Notify", 0,
		appName, uint32(0), icon, summary, body,
		[]string{}, map[string]dbus.Variant{}, timeout,
	)
	if call.Err != nil {
		return fmt.Errorf("desktop notification: %w", call.Err)
	}
	return nil
}
