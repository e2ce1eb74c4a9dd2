package main

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/trbjo/goscreen/logger"
	"github.com/trbjo/goscreen/screen"
)

const (
	dbusInterface = "io.github.trbjo.GoScreen"
	dbusPath      = "/io/github/trbjo/GoScreen"
)

type GoScreenDbus struct {
	sensor *screen.Sensor
}

func (o *GoScreenDbus) handle(action string) *dbus.Error {
	if err := o.sensor.Handle(context.Background(), screen.NewCommand(action)); err != nil {
		lg.Error("command failed", "action", action, "error", err)
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (o *GoScreenDbus) Start() *dbus.Error {
	return o.handle(screen.ActionStart)
}

func (o *GoScreenDbus) Stop() *dbus.Error {
	return o.handle(screen.ActionStop)
}

func (o *GoScreenDbus) StartEnabled() *dbus.Error {
	return o.handle(screen.ActionStartEnabled)
}

func (o *GoScreenDbus) StopAll() *dbus.Error {
	return o.handle(screen.ActionStopAll)
}

func (o *GoScreenDbus) Sync() *dbus.Error {
	return o.handle(screen.ActionSync)
}

func (o *GoScreenDbus) SetLabel(label string) *dbus.Error {
	if err := o.sensor.Handle(context.Background(), screen.SetLabelCommand(label)); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (o *GoScreenDbus) Status() (bool, string, string, *dbus.Error) {
	st := o.sensor.Status()
	return st.Running, st.LastStatus, st.Label, nil
}

// ScreenOn, ScreenOff and UserPresent let compositor idle daemons report
// transitions the built-in sources cannot see. Each call returns once the
// signal is queued, so callers see their order preserved.
func (o *GoScreenDbus) ScreenOn() *dbus.Error {
	o.sensor.Notify(screen.SignalScreenOn)
	return nil
}

func (o *GoScreenDbus) ScreenOff() *dbus.Error {
	o.sensor.Notify(screen.SignalScreenOff)
	return nil
}

func (o *GoScreenDbus) UserPresent() *dbus.Error {
	o.sensor.Notify(screen.SignalUserPresent)
	return nil
}

func (o *GoScreenDbus) LogDebug() *dbus.Error {
	logger.SetLogLevel("debug")
	return nil
}

func (o *GoScreenDbus) LogWarn() *dbus.Error {
	logger.SetLogLevel("warn")
	return nil
}

func (o *GoScreenDbus) LogInfo() *dbus.Error {
	logger.SetLogLevel("info")
	return nil
}

func setupDbus(conn *dbus.Conn, sensor *screen.Sensor) error {
	reply, err := conn.RequestName(dbusInterface, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("name %s already taken", dbusInterface)
	}

	obj := &GoScreenDbus{
		sensor: sensor,
	}
	if err := conn.Export(obj, dbus.ObjectPath(dbusPath), dbusInterface); err != nil {
		return fmt.Errorf("failed to export %s: %w", dbusPath, err)
	}

	lg.Debug("Listening on D-Bus", "interface", dbusInterface, "path", dbusPath)
	return nil
}
