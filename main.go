package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/trbjo/goscreen/httpapi"
	"github.com/trbjo/goscreen/logger"
	"github.com/trbjo/goscreen/monitor"
	"github.com/trbjo/goscreen/screen"
	"github.com/trbjo/goscreen/store"
)

var lg = logger.Slog

func engineOpener(sc SyncConfig) screen.EngineOpener {
	return func(ctx context.Context, cfg *screen.Config) (store.Engine, error) {
		return store.Open(ctx, store.Options{
			Type:          cfg.DBType,
			Path:          cfg.DBPath,
			Host:          cfg.DBHost,
			BatchSize:     sc.BatchSize,
			Timeout:       sc.Timeout.Duration,
			MaxSyncTime:   sc.MaxElapsed.Duration,
			RetryInterval: sc.RetryInterval.Duration,
		})
	}
}

// setupSources builds the enabled platform sources. A source that cannot
// start is logged and skipped; the returned func closes the others.
func setupSources(sc SourcesConfig) ([]screen.Option, func()) {
	var opts []screen.Option
	var closers []func()

	if sc.Logind {
		l, err := monitor.NewLogind(sc.Session)
		if err != nil {
			lg.Error("Failed to follow logind session", "error", err)
		} else {
			opts = append(opts, screen.WithSource(l), screen.WithKeyguard(l))
			closers = append(closers, func() { l.Close() })
		}
	}

	if sc.Backlight {
		b, err := monitor.NewBacklight(sc.BacklightRoot, sc.BacklightPoll.Duration)
		if err != nil {
			lg.Error("Failed to watch backlight", "error", err)
		} else {
			lg.Debug("watching backlight", "device", b.Device())
			opts = append(opts, screen.WithSource(b))
		}
	}

	if sc.Idle {
		idle, err := monitor.NewIdle(sc.Seat, sc.IdleBlankTimeout.Duration)
		if err != nil {
			lg.Error("Failed to create idle manager", "error", err)
		} else {
			opts = append(opts, screen.WithSource(idle))
			closers = append(closers, idle.Close)
		}
	}

	return opts, func() {
		for _, c := range closers {
			c()
		}
	}
}

// logObserver mirrors transitions into the daemon log.
func logObserver() screen.Observer {
	return screen.ObserverFuncs{
		ScreenOn:       func() { lg.Info("screen on") },
		ScreenOff:      func() { lg.Info("screen off") },
		ScreenLocked:   func() { lg.Info("screen locked") },
		ScreenUnlocked: func() { lg.Info("screen unlocked") },
	}
}

func main() {
	configPath := os.Getenv("GOSCREEN_CONFIG")
	if configPath == "" {
		home := os.Getenv("HOME")
		configPath = filepath.Join(home, "/.config/goscreen.json")
	}

	config := initConfig(configPath)
	if config.LogLevel != "" {
		logger.SetLogLevel(config.LogLevel)
	}
	if config.Sensor.Debug {
		logger.SetLogLevel("debug")
	}

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	opts, closeSources := setupSources(config.Sources)
	defer closeSources()
	opts = append(opts, screen.WithEngineOpener(engineOpener(config.Sync)))

	conn := dbusConnection()
	if conn != nil {
		opts = append(opts, screen.WithBroadcaster(&DbusBroadcaster{conn: conn}))
	}

	sensorConfig := config.Sensor
	sensorConfig.Observer = logObserver()
	sensor := screen.New(&sensorConfig, opts...)

	if conn != nil {
		if err := setupDbus(conn, sensor); err != nil {
			lg.Error("Failed to set up D-Bus interface", "error", err)
			os.Exit(1)
		}
	}

	var server *http.Server
	if config.HTTPListen != "" {
		server = &http.Server{
			Addr:              config.HTTPListen,
			Handler:           httpapi.NewRouter(sensor).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			lg.Info("HTTP API listening", "addr", config.HTTPListen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				lg.Error("HTTP API stopped", "error", err)
			}
		}()
	}

	lg.Info("Starting screen sensor", "device_id", config.Sensor.DeviceID)
	if err := sensor.Handle(context.Background(), screen.NewCommand(screen.ActionStartEnabled)); err != nil {
		lg.Error("Failed to start screen sensor", "error", err)
		os.Exit(1)
	}

	var syncTick <-chan time.Time
	if config.Sync.Interval.Duration > 0 {
		ticker := time.NewTicker(config.Sync.Interval.Duration)
		defer ticker.Stop()
		syncTick = ticker.C
	}

	for {
		select {
		case <-syncTick:
			lg.Debug("periodic sync")
			sensor.RequestSync()
		case <-signalChannel:
			lg.Info("got shutdown signal")
			if server != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := server.Shutdown(ctx); err != nil {
					lg.Error("HTTP API shutdown failed", "error", err)
				}
				cancel()
			}
			if err := sensor.Handle(context.Background(), screen.NewCommand(screen.ActionStopAll)); err != nil {
				lg.Error("Failed to stop screen sensor", "error", err)
			}
			closeSources()

			current := sensor.Config()
			current.Observer = nil
			config.Sensor = *current
			config.Dump()
			os.Exit(0)
		}
	}
}
