package backlight

import (
	"errors"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

const (
	logindService        = "org.freedesktop.login1"
	logindSessionPath    = "/org/freedesktop/login1/session/auto"
	logindSetBrightness  = "org.freedesktop.login1.Session.SetBrightness"
	logindBacklightClass = "backlight"
)

// caller is the part of dbus.BusObject used to set brightness.
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Logind changes brightness through systemd-logind, which lets the user owning
// the active session write the backlight without root. Reads still go to sysfs.
type Logind struct {
	*Sysfs

	conn *dbus.Conn
	obj  caller
}

var _ Device = &Logind{}

// NewLogind connects to the system bus and returns a Logind device for paths.
// paths.Name must be set, since logind addresses devices by name.
func NewLogind(paths Paths) (*Logind, error) {
	if paths.Name == "" {
		return nil, &DeviceError{Kind: ErrNotFound, Op: "connect", Path: logindSessionPath, Err: errors.New("logind backend needs a device name")}
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, &DeviceError{Kind: ErrIOFailure, Op: "connect", Path: "system bus", Err: err}
	}

	return &Logind{
		Sysfs: NewSysfs(paths),
		conn:  conn,
		obj:   conn.Object(logindService, logindSessionPath),
	}, nil
}

// Set asks logind to write value, clamped to [0, Max()].
func (l *Logind) Set(value int) error {
	max, err := l.Max()
	if err != nil {
		return err
	}
	value = Clamp(value, max)

	logrus.WithFields(logrus.Fields{
		"device": l.paths.Name,
		"val":    value,
	}).Trace("Trying to set brightness through logind")

	call := l.obj.Call(logindSetBrightness, 0, logindBacklightClass, l.paths.Name, uint32(value))
	if call.Err != nil {
		return classifyDBus(l.paths.Name, call.Err)
	}

	logrus.WithFields(logrus.Fields{
		"device": l.paths.Name,
		"val":    value,
	}).Trace("Set brightness through logind succeed")

	return nil
}

// Close releases the bus connection.
func (l *Logind) Close() error {
	if l.conn == nil {
		return nil
	}
	return l.conn.Close()
}

func classifyDBus(name string, err error) error {
	kind := ErrIOFailure

	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		switch {
		case strings.HasSuffix(dbusErr.Name, ".AccessDenied"),
			strings.HasSuffix(dbusErr.Name, ".InteractiveAuthorizationRequired"),
			strings.HasSuffix(dbusErr.Name, ".NotInControl"):
			kind = ErrPermissionDenied
		case strings.HasSuffix(dbusErr.Name, ".ServiceUnknown"),
			strings.HasSuffix(dbusErr.Name, ".UnknownObject"),
			strings.HasSuffix(dbusErr.Name, ".UnknownMethod"),
			strings.HasSuffix(dbusErr.Name, ".NoSuchSession"),
			strings.HasSuffix(dbusErr.Name, ".FileNotFound"):
			kind = ErrNotFound
		}
	}

	return &DeviceError{Kind: kind, Op: "setbrightness", Path: logindBacklightClass + "/" + name, Err: err}
}
