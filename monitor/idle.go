package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"github.com/rajveermalviya/go-wayland/wayland/staging/ext-idle-notify-v1"

	"github.com/trbjo/goscreen/screen"
)

type seatInfo struct {
	name string
	seat *client.Seat
}

// idleSession is one compositor connection watching the seat.
type idleSession interface {
	watch(timeout time.Duration, emit func(screen.Signal)) error
	dispatch() error
	close()
}

// Idle treats the compositor's idle state as screen power: most Wayland
// setups blank outputs once the seat has been idle for the blank timeout.
// Every Run gets its own connection, so the source survives a sensor
// restart.
type Idle struct {
	timeout time.Duration
	dial    func() (idleSession, error)

	mu      sync.Mutex
	pending idleSession
	current idleSession
	closed  bool
}

type waylandSession struct {
	display      *client.Display
	registry     *client.Registry
	idleNotifier *ext_idle_notify.IdleNotifier
	defaultSeat  *client.Seat
	notification *ext_idle_notify.IdleNotification
	closeOnce    sync.Once
}

// NewIdle connects once to check that the compositor offers idle
// notifications; that connection serves the first Run.
func NewIdle(seatName string, timeout time.Duration) (*Idle, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("idle blank timeout must be positive, got %s", timeout)
	}

	dial := func() (idleSession, error) {
		sess, err := dialWayland(seatName)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
	first, err := dial()
	if err != nil {
		return nil, err
	}

	return &Idle{
		timeout: timeout,
		dial:    dial,
		pending: first,
	}, nil
}

func dialWayland(seatName string) (*waylandSession, error) {
	display, err := client.Connect("")
	if err != nil {
		return nil, err
	}

	registry, err := display.GetRegistry()
	if err != nil {
		display.Context().Close()
		return nil, err
	}

	im := &waylandSession{
		display:  display,
		registry: registry,
	}

	if err := im.initialize(seatName); err != nil {
		display.Context().Close()
		return nil, err
	}

	return im, nil
}

func (im *waylandSession) initialize(seatName string) error {
	var notifierName, notifierVersion uint32
	var seats []*seatInfo

	im.registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		switch e.Interface {
		case "ext_idle_notifier_v1":
			notifierName = e.Name
			notifierVersion = e.Version
		case "wl_seat":
			seat := client.NewSeat(im.display.Context())
			if err := im.registry.Bind(e.Name, e.Interface, e.Version, seat); err != nil {
				lg.Error("Failed to bind seat", "error", err)
				return
			}

			info := &seatInfo{seat: seat}
			seat.SetNameHandler(func(e client.SeatNameEvent) {
				info.name = e.Name
				if e.Name == seatName {
					im.defaultSeat = seat
				}
			})
			seats = append(seats, info)
		}
	})

	// two roundtrips: globals first, then the seat names
	im.displayRoundTrip()
	im.displayRoundTrip()

	if notifierName == 0 || len(seats) == 0 {
		return fmt.Errorf("failed to find required interfaces")
	}

	if im.defaultSeat == nil {
		for _, info := range seats {
			if info.name != "" {
				im.defaultSeat = info.seat
				break
			}
		}
	}

	if im.defaultSeat == nil {
		return fmt.Errorf("no valid seat found")
	}

	im.idleNotifier = ext_idle_notify.NewIdleNotifier(im.display.Context())
	if err := im.registry.Bind(notifierName, "ext_idle_notifier_v1", notifierVersion, im.idleNotifier); err != nil {
		return fmt.Errorf("failed to bind idle notifier: %w", err)
	}

	return nil
}

func (im *waylandSession) displayRoundTrip() {
	callback, err := im.display.Sync()
	if err != nil {
		lg.Error("unable to get sync callback", "error", err.Error())
		return
	}
	defer func() {
		if err2 := callback.Destroy(); err2 != nil {
			lg.Error("unable to destroy callback", "error", err2.Error())
		}
	}()

	done := false
	callback.SetDoneHandler(func(_ client.CallbackDoneEvent) {
		done = true
	})

	for !done {
		if err := im.display.Context().Dispatch(); err != nil {
			lg.Error("dispatch failed during roundtrip", "error", err.Error())
			return
		}
	}
}

func (im *waylandSession) watch(timeout time.Duration, emit func(screen.Signal)) error {
	timeoutMs := uint32(timeout / time.Millisecond)
	notification, err := im.idleNotifier.GetIdleNotification(timeoutMs, im.defaultSeat)
	if err != nil {
		return fmt.Errorf("failed to register idle timeout: %w", err)
	}
	im.notification = notification

	notification.SetIdledHandler(func(e ext_idle_notify.IdleNotificationIdledEvent) {
		lg.Debug("seat idle", "timeout", timeout)
		emit(screen.SignalScreenOff)
	})

	notification.SetResumedHandler(func(e ext_idle_notify.IdleNotificationResumedEvent) {
		lg.Debug("seat resumed")
		emit(screen.SignalScreenOn)
	})
	return nil
}

func (im *waylandSession) dispatch() error {
	return im.display.Context().Dispatch()
}

func (im *waylandSession) close() {
	im.closeOnce.Do(func() {
		if im.notification != nil {
			if err := im.notification.Destroy(); err != nil {
				lg.Debug("unable to destroy idle notification", "error", err)
			}
		}
		im.display.Context().Close()
	})
}

// acquire hands out the connection made by NewIdle, or a fresh one.
func (im *Idle) acquire() (idleSession, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.closed {
		return nil, fmt.Errorf("idle source closed")
	}

	sess := im.pending
	im.pending = nil
	if sess == nil {
		var err error
		if sess, err = im.dial(); err != nil {
			return nil, fmt.Errorf("failed to reconnect to compositor: %w", err)
		}
	}
	im.current = sess
	return sess, nil
}

func (im *Idle) release(sess idleSession) {
	sess.close()
	im.mu.Lock()
	if im.current == sess {
		im.current = nil
	}
	im.mu.Unlock()
}

// Run watches the seat on its own connection until ctx is done.
func (im *Idle) Run(ctx context.Context, emit func(screen.Signal)) error {
	sess, err := im.acquire()
	if err != nil {
		return err
	}
	defer im.release(sess)

	if err := sess.watch(im.timeout, emit); err != nil {
		return err
	}

	// closing the socket is the only way to unblock dispatch
	stop := context.AfterFunc(ctx, sess.close)
	defer stop()

	for {
		if err := sess.dispatch(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

// Close drops every connection; Run fails afterwards.
func (im *Idle) Close() {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.closed = true
	for _, sess := range []idleSession{im.pending, im.current} {
		if sess != nil {
			sess.close()
		}
	}
	im.pending = nil
	im.current = nil
}
