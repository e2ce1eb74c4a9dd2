package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trbjo/goscreen/screen"
)

// fakeSession blocks in dispatch until closed, like a Wayland socket.
type fakeSession struct {
	mu      sync.Mutex
	emit    func(screen.Signal)
	watched chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{watched: make(chan struct{}), done: make(chan struct{})}
}

func (f *fakeSession) watch(timeout time.Duration, emit func(screen.Signal)) error {
	f.mu.Lock()
	f.emit = emit
	f.mu.Unlock()
	close(f.watched)
	return nil
}

func (f *fakeSession) dispatch() error {
	<-f.done
	return errors.New("connection closed")
}

func (f *fakeSession) close() {
	f.once.Do(func() { close(f.done) })
}

func (f *fakeSession) isClosed() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func newTestIdle(first *fakeSession) (*Idle, *[]*fakeSession, *atomic.Int32) {
	var dials atomic.Int32
	sessions := []*fakeSession{first}
	im := &Idle{
		timeout: time.Minute,
		pending: first,
		dial: func() (idleSession, error) {
			dials.Add(1)
			s := newFakeSession()
			sessions = append(sessions, s)
			return s, nil
		},
	}
	return im, &sessions, &dials
}

func runIdle(t *testing.T, im *Idle, sess *fakeSession, emit func(screen.Signal)) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- im.Run(ctx, emit) }()
	select {
	case <-sess.watched:
	case <-time.After(time.Second):
		t.Fatal("session was never watched")
	}
	return cancel, errc
}

func TestIdleForwardsSignals(t *testing.T) {
	first := newFakeSession()
	im, _, _ := newTestIdle(first)

	var got []screen.Signal
	cancel, errc := runIdle(t, im, first, func(s screen.Signal) { got = append(got, s) })

	first.mu.Lock()
	emit := first.emit
	first.mu.Unlock()
	emit(screen.SignalScreenOff)
	emit(screen.SignalScreenOn)

	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
	assert.Equal(t, []screen.Signal{screen.SignalScreenOff, screen.SignalScreenOn}, got)
}

func TestIdleRunsAgainAfterCancel(t *testing.T) {
	first := newFakeSession()
	im, sessions, dials := newTestIdle(first)
	noop := func(screen.Signal) {}

	cancel, errc := runIdle(t, im, first, noop)
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
	assert.True(t, first.isClosed())
	assert.Equal(t, int32(0), dials.Load())

	// the next Run must dial a fresh connection instead of reusing the closed one
	ctx, cancel2 := context.WithCancel(context.Background())
	errc2 := make(chan error, 1)
	go func() { errc2 <- im.Run(ctx, noop) }()
	require.Eventually(t, func() bool { return dials.Load() == 1 }, time.Second, 5*time.Millisecond)

	im.mu.Lock()
	second := (*sessions)[1]
	im.mu.Unlock()
	<-second.watched
	assert.False(t, second.isClosed())

	cancel2()
	require.ErrorIs(t, <-errc2, context.Canceled)
	assert.True(t, second.isClosed())
}

func TestIdleCloseStopsRunAndRejectsNewRuns(t *testing.T) {
	first := newFakeSession()
	im, _, dials := newTestIdle(first)

	_, errc := runIdle(t, im, first, func(screen.Signal) {})
	im.Close()

	select {
	case err := <-errc:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.True(t, first.isClosed())

	err := im.Run(context.Background(), func(screen.Signal) {})
	require.Error(t, err)
	assert.Equal(t, int32(0), dials.Load())
}
