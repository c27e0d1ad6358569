// Package power keeps the desktop from blanking or locking while a
// recording is in progress, via the org.freedesktop.ScreenSaver D-Bus
// interface. Inhibition is best effort; a session without a screensaver
// service records fine, the screen just may blank.
package power

import (
	"fmt"

	"github.com/bryanchriswhite/screenreel/internal/logger"
	"github.com/godbus/dbus/v5"
)

const (
	screensaverDest = "org.freedesktop.ScreenSaver"
	screensaverPath = "/org/freedesktop/ScreenSaver"
	appName         = "screenreel"
)

// Inhibitor holds a screensaver inhibition cookie for the lifetime of a
// recording.
type Inhibitor struct {
	conn   *dbus.Conn
	cookie uint32
	active bool
}

// Inhibit asks the session screensaver service to stay off, citing the
// given reason. It never fails the recording; on any D-Bus error it logs
// and returns an inactive inhibitor whose Release is a no-op.
func Inhibit(reason string) *Inhibitor {
	log := logger.WithComponent("power")

	conn, err := dbus.SessionBus()
	if err != nil {
		log.Warn().Err(err).Msg("Session bus unavailable, screensaver not inhibited")
		return &Inhibitor{}
	}

	obj := conn.Object(screensaverDest, dbus.ObjectPath(screensaverPath))
	var cookie uint32
	call := obj.Call(screensaverDest+".Inhibit", 0, appName, reason)
	if call.Err != nil {
		log.Warn().Err(call.Err).Msg("Screensaver inhibit call failed")
		return &Inhibitor{}
	}
	if err := call.Store(&cookie); err != nil {
		log.Warn().Err(err).Msg("Screensaver inhibit reply malformed")
		return &Inhibitor{}
	}

	log.Debug().Uint32("cookie", cookie).Msg("Screensaver inhibited")
	return &Inhibitor{conn: conn, cookie: cookie, active: true}
}

// Release returns the inhibition cookie. Safe to call on an inactive
// inhibitor and safe to call twice.
func (i *Inhibitor) Release() error {
	if !i.active {
		return nil
	}
	i.active = false

	obj := i.conn.Object(screensaverDest, dbus.ObjectPath(screensaverPath))
	call := obj.Call(screensaverDest+".UnInhibit", 0, i.cookie)
	if call.Err != nil {
		return fmt.Errorf("failed to release screensaver inhibition: %w", call.Err)
	}
	logger.WithComponent("power").Debug().Uint32("cookie", i.cookie).Msg("Screensaver inhibition released")
	return nil
}
