// Package notify tells the user about a finished capture: a desktop
// notification over D-Bus and the link on the clipboard.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/godbus/dbus/v5"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyCall = busName + ".Notify"

	appName = "sampic"
	summary = "Sampic screenshot taken."
	icon    = "camera"
	sound   = "message-new-instant"
	timeout = 5 * time.Second
)

// Notifier shows a message about the capture at link.
type Notifier interface {
	Notify(ctx context.Context, link, message string) error
}

// Clipboard receives the link.
type Clipboard interface {
	SetText(text string) error
}

// Desktop sends freedesktop.org notifications on the session bus.
type Desktop struct {
	call func(ctx context.Context, method string, args ...interface{}) error
}

// NewDesktop connects to the session bus.
func NewDesktop() (*Desktop, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	obj := conn.Object(busName, objectPath)
	return &Desktop{call: func(ctx context.Context, method string, args ...interface{}) error {
		return obj.CallWithContext(ctx, method, 0, args...).Err
	}}, nil
}

// Notify shows a transient notification whose image is link.
func (d *Desktop) Notify(ctx context.Context, link, message string) error {
	hints := map[string]dbus.Variant{
		"transient":  dbus.MakeVariant(true),
		"image-path": dbus.MakeVariant(link),
		"sound-name": dbus.MakeVariant(sound),
	}
	err := d.call(ctx, notifyCall,
		appName,
		uint32(0), // replaces_id
		icon,
		summary,
		message,
		[]string{}, // actions
		hints,
		int32(timeout/time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

// SetText replaces the clipboard contents.
func (SystemClipboard) SetText(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

// Discard drops notifications and clipboard writes.
type Discard struct{}

func (Discard) Notify(context.Context, string, string) error { return nil }

func (Discard) SetText(string) error { return nil }
