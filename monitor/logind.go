// Package monitor turns Linux session and display events into screen
// signals.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"

	"github.com/trbjo/goscreen/logger"
	"github.com/trbjo/goscreen/screen"
	"github.com/trbjo/goscreen/utilities"
)

var lg = logger.For("monitor")

const (
	login1Dest      = "org.freedesktop.login1"
	login1Path      = "/org/freedesktop/login1"
	managerIface    = "org.freedesktop.login1.Manager"
	sessionIface    = "org.freedesktop.login1.Session"
	propertiesIface = "org.freedesktop.DBus.Properties"
)

// Logind follows the caller's logind session on the system bus. Suspend
// and resume map to screen off and on; leaving the locked state maps to
// user present. It doubles as the sensor's keyguard.
type Logind struct {
	conn    *dbus.Conn
	session dbus.ObjectPath
	locked  *utilities.SafeState[bool]
}

// NewLogind connects to the system bus and resolves sessionID, or the
// session of this process when sessionID and $XDG_SESSION_ID are empty.
func NewLogind(sessionID string) (*Logind, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	session, err := resolveSession(conn, sessionID)
	if err != nil {
		conn.Close()
		return nil, err
	}

	l := &Logind{
		conn:    conn,
		session: session,
		locked:  utilities.NewSafeState(false),
	}

	hint, err := l.lockedHint()
	if err != nil {
		lg.Warn("could not read LockedHint, assuming unlocked", "session", session, "error", err)
	} else {
		l.locked.Set(hint)
	}

	lg.Debug("following logind session", "session", session, "locked", l.locked.Get())
	return l, nil
}

func resolveSession(conn *dbus.Conn, sessionID string) (dbus.ObjectPath, error) {
	if sessionID == "" {
		sessionID = os.Getenv("XDG_SESSION_ID")
	}

	manager := conn.Object(login1Dest, login1Path)
	var path dbus.ObjectPath
	var err error
	if sessionID != "" {
		err = manager.Call(managerIface+".GetSession", 0, sessionID).Store(&path)
	} else {
		err = manager.Call(managerIface+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve logind session %q: %w", sessionID, err)
	}
	return path, nil
}

func (l *Logind) lockedHint() (bool, error) {
	v, err := l.conn.Object(login1Dest, l.session).GetProperty(sessionIface + ".LockedHint")
	if err != nil {
		return false, err
	}
	locked, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("unexpected LockedHint type %T", v.Value())
	}
	return locked, nil
}

func (l *Logind) Locked() bool {
	return l.locked.Get()
}

func (l *Logind) matches() [][]dbus.MatchOption {
	return [][]dbus.MatchOption{
		{dbus.WithMatchInterface(managerIface), dbus.WithMatchMember("PrepareForSleep")},
		{dbus.WithMatchObjectPath(l.session), dbus.WithMatchInterface(sessionIface)},
		{dbus.WithMatchObjectPath(l.session), dbus.WithMatchInterface(propertiesIface), dbus.WithMatchMember("PropertiesChanged")},
	}
}

func (l *Logind) Run(ctx context.Context, emit func(screen.Signal)) error {
	matches := l.matches()
	for _, match := range matches {
		if err := l.conn.AddMatchSignal(match...); err != nil {
			return fmt.Errorf("failed to add match for signal: %w", err)
		}
	}

	signalChan := make(chan *dbus.Signal, 10)
	l.conn.Signal(signalChan)

	defer func() {
		l.conn.RemoveSignal(signalChan)
		for _, match := range matches {
			l.conn.RemoveMatchSignal(match...)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case signal, ok := <-signalChan:
			if !ok {
				return errors.New("system bus connection closed")
			}
			l.handle(signal, emit)
		}
	}
}

func (l *Logind) handle(signal *dbus.Signal, emit func(screen.Signal)) {
	switch signal.Name {
	case managerIface + ".PrepareForSleep":
		if len(signal.Body) == 0 {
			return
		}
		preparing, ok := signal.Body[0].(bool)
		if !ok {
			return
		}
		if preparing {
			lg.Debug("system is going to sleep")
			emit(screen.SignalScreenOff)
		} else {
			lg.Debug("system has resumed from suspend")
			emit(screen.SignalScreenOn)
		}
	case sessionIface + ".Lock":
		if signal.Path == l.session {
			l.setLocked(true, emit)
		}
	case sessionIface + ".Unlock":
		if signal.Path == l.session {
			l.setLocked(false, emit)
		}
	case propertiesIface + ".PropertiesChanged":
		if signal.Path != l.session || len(signal.Body) < 2 {
			return
		}
		if iface, _ := signal.Body[0].(string); iface != sessionIface {
			return
		}
		changed, ok := signal.Body[1].(map[string]dbus.Variant)
		if !ok {
			return
		}
		if v, ok := changed["LockedHint"]; ok {
			if locked, ok := v.Value().(bool); ok {
				l.setLocked(locked, emit)
			}
		}
	}
}

// setLocked reports user presence only on a locked -> unlocked edge, so
// Unlock followed by LockedHint=false yields a single signal.
func (l *Logind) setLocked(locked bool, emit func(screen.Signal)) {
	was := l.locked.Swap(locked)
	lg.Debug("session lock state", "locked", locked, "was", was)
	if was && !locked {
		emit(screen.SignalUserPresent)
	}
}

func (l *Logind) Close() error {
	return l.conn.Close()
}
