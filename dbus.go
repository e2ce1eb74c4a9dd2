package main

import (
	"github.com/godbus/dbus/v5"
)

// signalEmitter is the part of *dbus.Conn the broadcaster needs.
type signalEmitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// DbusBroadcaster republishes every screen transition as a
// io.github.trbjo.GoScreen.Broadcast signal on the session bus.
type DbusBroadcaster struct {
	conn signalEmitter
}

func (b *DbusBroadcaster) Broadcast(action string) {
	err := b.conn.Emit(dbus.ObjectPath(dbusPath), dbusInterface+".Broadcast", action)
	if err != nil {
		lg.Error("Failed to emit broadcast", "action", action, "error", err)
	}
}

func dbusConnection() *dbus.Conn {
	conn, err := dbus.SessionBus()
	if err != nil {
		lg.Error("Failed to connect to SessionBus", "error", err)
		return nil
	}
	return conn
}
