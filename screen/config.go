package screen

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/trbjo/goscreen/store"
)

// Config is the sensor's runtime configuration.
type Config struct {
	Enabled  bool   `json:"enabled"`
	Debug    bool   `json:"debug"`
	Label    string `json:"label"`
	DeviceID string `json:"device_id"`
	DBType   string `json:"db_type"`
	DBPath   string `json:"db_path"`
	// DBHost is the sync endpoint; empty keeps records local.
	DBHost string `json:"db_host"`
	// TouchStatus asks for touch events, which no Linux source provides.
	TouchStatus bool `json:"touch_status"`

	Observer Observer `json:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:  true,
		DeviceID: DefaultDeviceID(),
		DBType:   store.TypeSQLite,
		DBPath:   store.DefaultPath,
	}
}

// ReplaceWith overwrites every field of c with other's, observer included.
func (c *Config) ReplaceWith(other *Config) {
	if other == nil {
		return
	}
	*c = *other
}

func (c *Config) clone() *Config {
	cp := *c
	return &cp
}

// DefaultDeviceID prefers the host's machine id and falls back to a random
// UUID.
func DefaultDeviceID() string {
	id, err := host.HostID()
	if err == nil && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id)
	}
	lg.Debug("no host id, generating device id", "error", err)
	return uuid.NewString()
}
