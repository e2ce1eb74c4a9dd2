package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/trbjo/goscreen/screen"
)

type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	durationString := d.Duration.String()
	return json.Marshal(durationString)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	duration, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = duration
	return nil
}

type SourcesConfig struct {
	Logind           bool     `json:"logind"`
	Session          string   `json:"session"`
	Backlight        bool     `json:"backlight"`
	BacklightRoot    string   `json:"backlight_root"`
	BacklightPoll    Duration `json:"backlight_poll"`
	Idle             bool     `json:"idle"`
	Seat             string   `json:"seat"`
	IdleBlankTimeout Duration `json:"idle_blank_timeout"`
}

type SyncConfig struct {
	// Interval triggers periodic syncs; zero leaves syncing to commands.
	Interval      Duration `json:"interval"`
	BatchSize     int      `json:"batch_size"`
	Timeout       Duration `json:"timeout"`
	MaxElapsed    Duration `json:"max_elapsed"`
	RetryInterval Duration `json:"retry_interval"`
}

type Config struct {
	Sensor     screen.Config `json:"sensor"`
	Sources    SourcesConfig `json:"sources"`
	Sync       SyncConfig    `json:"sync"`
	HTTPListen string        `json:"http_listen"`
	LogLevel   string        `json:"log_level"`

	path string
}

func defaultConfig() *Config {
	return &Config{
		Sensor: *screen.DefaultConfig(),
		Sources: SourcesConfig{
			Logind:           true,
			Backlight:        true,
			BacklightPoll:    Duration{Duration: time.Second},
			Seat:             "seat0",
			IdleBlankTimeout: Duration{Duration: 5 * time.Minute},
		},
		Sync: SyncConfig{
			BatchSize:  100,
			Timeout:    Duration{Duration: 30 * time.Second},
			MaxElapsed: Duration{Duration: 2 * time.Minute},
		},
		LogLevel: "info",
	}
}

func loadConfigFromFile(configPath string) (*Config, error) {
	_, err := os.Stat(configPath)
	if err != nil {
		lg.Error("file does not exist", "error", err.Error())
		return nil, err
	}
	jsonFile, err := os.Open(configPath)
	if err != nil {
		return nil, err
	}
	defer jsonFile.Close()

	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, err
	}

	// keys missing from the file keep their default, booleans included
	config := defaultConfig()
	err = json.Unmarshal(byteValue, config)
	if err != nil {
		return nil, err
	}

	config.path = configPath
	return config, nil
}

func initConfig(configPath string) *Config {
	config, err := loadConfigFromFile(configPath)
	if err != nil {
		lg.Info("Failed to load config, creating a new one")
		config = defaultConfig()
		config.path = configPath
		return config
	}

	// Explicitly zeroed values fall back to the defaults as well
	defaults := defaultConfig()
	if config.Sensor.DeviceID == "" {
		config.Sensor.DeviceID = defaults.Sensor.DeviceID
	}
	if config.Sensor.DBType == "" {
		config.Sensor.DBType = defaults.Sensor.DBType
	}
	if config.Sensor.DBPath == "" {
		config.Sensor.DBPath = defaults.Sensor.DBPath
	}
	if config.Sources.BacklightPoll.Duration == 0 {
		config.Sources.BacklightPoll = defaults.Sources.BacklightPoll
	}
	if config.Sources.Seat == "" {
		config.Sources.Seat = defaults.Sources.Seat
	}
	if config.Sources.IdleBlankTimeout.Duration == 0 {
		config.Sources.IdleBlankTimeout = defaults.Sources.IdleBlankTimeout
	}
	if config.Sync.BatchSize == 0 {
		config.Sync.BatchSize = defaults.Sync.BatchSize
	}
	if config.Sync.Timeout.Duration == 0 {
		config.Sync.Timeout = defaults.Sync.Timeout
	}
	if config.Sync.MaxElapsed.Duration == 0 {
		config.Sync.MaxElapsed = defaults.Sync.MaxElapsed
	}

	return config
}

func (c *Config) Dump() {
	DumpConfig(c.path, c)
}

func DumpConfig(path string, config *Config) {
	lg.Debug("dumping config to disk")
	jsonData, err := json.MarshalIndent(config, "", "    ")
	if err != nil {
		lg.Error(err.Error())
		return
	}
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		lg.Error(err.Error())
		return
	}
	lg.Debug("wrote config")
}
