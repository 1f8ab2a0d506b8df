// Package dbus observes org.freedesktop.Notifications traffic on the session
// bus and turns matching desktop notifications into favicon badge triggers.
// It monitors passively and never claims the notification service name, so it
// runs alongside whichever notification daemon the desktop uses.
package dbus
