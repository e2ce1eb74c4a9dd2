package monitor

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"

	"github.com/trbjo/goscreen/screen"
	"github.com/trbjo/goscreen/utilities"
)

const testSession = dbus.ObjectPath("/org/freedesktop/login1/session/_32")

func newTestLogind(locked bool) (*Logind, *[]screen.Signal, func(screen.Signal)) {
	l := &Logind{session: testSession, locked: utilities.NewSafeState(locked)}
	var got []screen.Signal
	return l, &got, func(s screen.Signal) { got = append(got, s) }
}

func TestPrepareForSleepMapsToScreenPower(t *testing.T) {
	l, got, emit := newTestLogind(false)

	l.handle(&dbus.Signal{Path: login1Path, Name: managerIface + ".PrepareForSleep", Body: []interface{}{true}}, emit)
	l.handle(&dbus.Signal{Path: login1Path, Name: managerIface + ".PrepareForSleep", Body: []interface{}{false}}, emit)

	assert.Equal(t, []screen.Signal{screen.SignalScreenOff, screen.SignalScreenOn}, *got)
}

func TestLockThenUnlockEmitsUserPresentOnce(t *testing.T) {
	l, got, emit := newTestLogind(false)

	l.handle(&dbus.Signal{Path: testSession, Name: sessionIface + ".Lock"}, emit)
	assert.True(t, l.Locked())
	assert.Empty(t, *got)

	l.handle(&dbus.Signal{Path: testSession, Name: sessionIface + ".Unlock"}, emit)
	l.handle(&dbus.Signal{
		Path: testSession,
		Name: propertiesIface + ".PropertiesChanged",
		Body: []interface{}{sessionIface, map[string]dbus.Variant{"LockedHint": dbus.MakeVariant(false)}, []string{}},
	}, emit)

	assert.False(t, l.Locked())
	assert.Equal(t, []screen.Signal{screen.SignalUserPresent}, *got)
}

func TestLockedHintTracksState(t *testing.T) {
	l, got, emit := newTestLogind(false)

	l.handle(&dbus.Signal{
		Path: testSession,
		Name: propertiesIface + ".PropertiesChanged",
		Body: []interface{}{sessionIface, map[string]dbus.Variant{"LockedHint": dbus.MakeVariant(true)}, []string{}},
	}, emit)
	assert.True(t, l.Locked())

	l.handle(&dbus.Signal{
		Path: testSession,
		Name: propertiesIface + ".PropertiesChanged",
		Body: []interface{}{sessionIface, map[string]dbus.Variant{"Active": dbus.MakeVariant(true)}, []string{}},
	}, emit)
	assert.True(t, l.Locked())
	assert.Empty(t, *got)
}

func TestSignalsForOtherSessionsAreIgnored(t *testing.T) {
	l, got, emit := newTestLogind(true)

	l.handle(&dbus.Signal{Path: "/org/freedesktop/login1/session/c1", Name: sessionIface + ".Unlock"}, emit)

	assert.True(t, l.Locked())
	assert.Empty(t, *got)
}

func TestUnlockWhileUnlockedIsSilent(t *testing.T) {
	l, got, emit := newTestLogind(false)

	l.handle(&dbus.Signal{Path: testSession, Name: sessionIface + ".Unlock"}, emit)

	assert.Empty(t, *got)
}
