// Package screen records screen power and lock transitions.
//
// A Sensor turns platform signals (screen on, screen off, user present)
// into Data records, saves them through a store.Engine, calls the
// configured Observer and broadcasts one action per transition both
// in-process and to any attached Broadcaster.
package screen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kataras/go-events"

	"github.com/trbjo/goscreen/logger"
	"github.com/trbjo/goscreen/store"
	"github.com/trbjo/goscreen/utilities"
)

var lg = logger.For("screen")

const signalBuffer = 16

// Source delivers platform signals until ctx is cancelled.
type Source interface {
	Run(ctx context.Context, emit func(Signal)) error
}

// Keyguard reports whether the session is locked right now.
type Keyguard interface {
	Locked() bool
}

// Broadcaster republishes transition actions outside the process.
type Broadcaster interface {
	Broadcast(action string)
}

// EngineOpener builds the persistence engine for cfg. It may return a nil
// Engine to run without persistence.
type EngineOpener func(ctx context.Context, cfg *Config) (store.Engine, error)

type Option func(*Sensor)

func WithSource(src Source) Option {
	return func(s *Sensor) { s.sources = append(s.sources, src) }
}

func WithKeyguard(k Keyguard) Option {
	return func(s *Sensor) { s.keyguard = k }
}

func WithBroadcaster(b Broadcaster) Option {
	return func(s *Sensor) { s.broadcasters = append(s.broadcasters, b) }
}

func WithEngineOpener(open EngineOpener) Option {
	return func(s *Sensor) { s.openEngine = open }
}

func WithClock(now func() time.Time) Option {
	return func(s *Sensor) { s.now = now }
}

// OpenStore is the default EngineOpener.
func OpenStore(ctx context.Context, cfg *Config) (store.Engine, error) {
	return store.Open(ctx, store.Options{
		Type: cfg.DBType,
		Path: cfg.DBPath,
		Host: cfg.DBHost,
	})
}

type Sensor struct {
	cfgMu sync.RWMutex
	cfg   *Config

	sources      []Source
	keyguard     Keyguard
	broadcasters []Broadcaster
	openEngine   EngineOpener
	now          func() time.Time
	events       events.EventEmmiter
	last         *utilities.SafeState[Status]
	active       atomic.Bool

	// guarded by mu
	mu          sync.Mutex
	running     bool
	engine      store.Engine
	cancel      context.CancelFunc
	runCtx      context.Context
	signals     chan Signal
	requestSync func(struct{})
	wg          sync.WaitGroup
}

// Snapshot describes the sensor at one instant.
type Snapshot struct {
	Running    bool   `json:"running"`
	LastStatus string `json:"last_status"`
	Label      string `json:"label"`
	DeviceID   string `json:"device_id"`
}

func New(cfg *Config, opts ...Option) *Sensor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Sensor{
		cfg:        cfg.clone(),
		openEngine: OpenStore,
		now:        time.Now,
		events:     events.New(),
		last:       utilities.NewSafeState(StatusUnknown),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns a copy of the current configuration.
func (s *Sensor) Config() *Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.clone()
}

// Start replaces the configuration with cfg when it is non-nil and brings
// the sensor up if it is not running yet.
func (s *Sensor) Start(ctx context.Context, cfg *Config) error {
	if cfg != nil {
		s.cfgMu.Lock()
		s.cfg.ReplaceWith(cfg)
		s.cfgMu.Unlock()
	}
	if s.Config().Debug {
		logger.SetLogLevel("debug")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		if err := s.create(ctx); err != nil {
			return err
		}
	}

	if s.Config().TouchStatus {
		lg.Warn("touch events requested but no touch source is available")
	}

	lg.Debug("Screen service is active.")
	return nil
}

func (s *Sensor) create(ctx context.Context) error {
	engine, err := s.openEngine(ctx, s.Config())
	if err != nil {
		return fmt.Errorf("failed to initialize db engine: %w", err)
	}

	// the sensor outlives the context it was started with
	runCtx, cancel := context.WithCancel(context.Background())
	signals := make(chan Signal, signalBuffer)
	syncRequests := make(chan struct{}, 1)

	s.engine = engine
	s.runCtx = runCtx
	s.cancel = cancel
	s.signals = signals
	s.requestSync = utilities.CreateNonBlockingSender(syncRequests)

	s.wg.Add(2)
	go s.dispatchLoop(runCtx, engine, signals)
	go s.syncLoop(runCtx, engine, syncRequests)

	emit := func(sig Signal) {
		select {
		case signals <- sig:
		case <-runCtx.Done():
		}
	}
	for _, src := range s.sources {
		s.wg.Add(1)
		go func(src Source) {
			defer s.wg.Done()
			if err := src.Run(runCtx, emit); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("screen source stopped", "source", fmt.Sprintf("%T", src), "error", err)
			}
		}(src)
	}

	s.running = true
	s.active.Store(true)
	lg.Debug("Screen service created!")
	return nil
}

// Stop unsubscribes every source, drains the dispatcher and closes the
// engine. Observers must not call Stop from their callbacks.
func (s *Sensor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cancel()
	s.wg.Wait()

	var err error
	if s.engine != nil {
		err = s.engine.Close()
	}

	s.engine = nil
	s.signals = nil
	s.requestSync = nil
	s.running = false
	s.active.Store(false)

	lg.Debug("Screen service terminated.")
	if err != nil {
		return fmt.Errorf("failed to close db engine: %w", err)
	}
	return nil
}

// Running does not take mu, so observers may call it (and Status).
func (s *Sensor) Running() bool {
	return s.active.Load()
}

func (s *Sensor) SetLabel(label string) {
	s.cfgMu.Lock()
	s.cfg.Label = label
	s.cfgMu.Unlock()
	lg.Debug("label changed", "label", label)
}

// Sync uploads pending screen records now.
func (s *Sensor) Sync(ctx context.Context) error {
	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()
	return syncEngine(ctx, engine)
}

// RequestSync queues a sync on the background worker. Requests made while
// one is already queued collapse into it.
func (s *Sensor) RequestSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		lg.Debug("sync requested while stopped, ignoring")
		return
	}
	s.requestSync(struct{}{})
}

// Notify feeds a platform signal to the dispatcher. Signals are dropped
// while the sensor is stopped.
func (s *Sensor) Notify(sig Signal) {
	s.mu.Lock()
	signals, runCtx := s.signals, s.runCtx
	running := s.running
	s.mu.Unlock()

	if !running {
		lg.Debug("sensor stopped, dropping signal", "signal", sig)
		return
	}
	select {
	case signals <- sig:
	case <-runCtx.Done():
	}
}

func (s *Sensor) Handle(ctx context.Context, cmd Command) error {
	lg.Debug("Sensor broadcast received.", "action", cmd.Action)

	switch cmd.Action {
	case ActionSetLabel:
		if label, ok := cmd.Extra(ExtraLabel); ok {
			s.SetLabel(label)
		}
	case ActionSync:
		s.RequestSync()
	case ActionStart:
		return s.Start(ctx, nil)
	case ActionStartEnabled:
		enabled := s.Config().Enabled
		lg.Debug("Sensor enabled", "enabled", enabled)
		if enabled {
			return s.Start(ctx, nil)
		}
	case ActionStop, ActionStopAll:
		lg.Debug("Stopping sensor.")
		return s.Stop()
	default:
		lg.Debug("ignoring unknown command", "action", cmd.Action)
	}
	return nil
}

// On subscribes listener to a broadcast action in this process.
func (s *Sensor) On(action string, listener func(*Data)) {
	s.events.On(events.EventName(action), func(payload ...interface{}) {
		if len(payload) == 0 {
			return
		}
		if d, ok := payload[0].(*Data); ok {
			listener(d)
		}
	})
}

func (s *Sensor) Status() Snapshot {
	cfg := s.Config()
	return Snapshot{
		Running:    s.Running(),
		LastStatus: s.last.Get().String(),
		Label:      cfg.Label,
		DeviceID:   cfg.DeviceID,
	}
}

func (s *Sensor) dispatchLoop(ctx context.Context, engine store.Engine, signals <-chan Signal) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			s.dispatch(ctx, engine, sig)
		}
	}
}

func (s *Sensor) dispatch(ctx context.Context, engine store.Engine, sig Signal) {
	lg.Debug("screen signal", "signal", sig)

	switch sig {
	case SignalScreenOn:
		s.record(ctx, engine, StatusOn)
	case SignalScreenOff:
		s.record(ctx, engine, StatusOff)
		// an unused machine may blank without ever locking
		if s.keyguard != nil && s.keyguard.Locked() {
			s.record(ctx, engine, StatusLocked)
		}
	case SignalUserPresent:
		s.record(ctx, engine, StatusUnlocked)
	default:
		lg.Debug("ignoring unknown signal", "signal", sig)
	}
}

func (s *Sensor) record(ctx context.Context, engine store.Engine, status Status) {
	cfg := s.Config()
	data := NewData(s.now(), status, cfg.DeviceID, cfg.Label)

	if engine != nil {
		if err := engine.Save(ctx, data, TableName); err != nil {
			lg.Error("failed to save screen data", "status", status, "error", err)
		}
	}
	s.last.Set(status)

	notify(cfg.Observer, status)
	s.broadcast(status.Action(), data)
}

func (s *Sensor) broadcast(action string, data *Data) {
	lg.Debug(action)
	s.events.Emit(events.EventName(action), data)
	for _, b := range s.broadcasters {
		b.Broadcast(action)
	}
}

func (s *Sensor) syncLoop(ctx context.Context, engine store.Engine, requests <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-requests:
			if err := syncEngine(ctx, engine); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("sync failed", "table", TableName, "error", err)
			}
		}
	}
}

func syncEngine(ctx context.Context, engine store.Engine) error {
	if engine == nil {
		lg.Debug("no db engine, nothing to sync")
		return nil
	}
	return engine.StartSync(ctx, TableName)
}
