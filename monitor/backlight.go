package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/trbjo/goscreen/screen"
)

const backlightPath = "/sys/class/backlight"

const (
	powerUnknown = iota
	powerOn
	powerOff
)

// Backlight polls bl_power of the first backlight device. sysfs attributes
// do not raise inotify events, hence the ticker.
type Backlight struct {
	device    string
	powerPath string
	interval  time.Duration
}

func NewBacklight(root string, interval time.Duration) (*Backlight, error) {
	if root == "" {
		root = backlightPath
	}
	if interval <= 0 {
		interval = time.Second
	}

	devices, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read backlight devices: %w", err)
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("no backlight devices found")
	}

	b := &Backlight{
		device:    devices[0].Name(),
		powerPath: filepath.Join(root, devices[0].Name(), "bl_power"),
		interval:  interval,
	}

	if _, err := b.power(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backlight) Device() string {
	return b.device
}

// power maps bl_power to on/off: 0 is FB_BLANK_UNBLANK, anything else
// blanks the panel.
func (b *Backlight) power() (int, error) {
	data, err := os.ReadFile(b.powerPath)
	if err != nil {
		return powerUnknown, fmt.Errorf("failed to read backlight power: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return powerUnknown, fmt.Errorf("invalid backlight power value: %w", err)
	}
	if v == 0 {
		return powerOn, nil
	}
	return powerOff, nil
}

// Run emits on every change after the first reading.
func (b *Backlight) Run(ctx context.Context, emit func(screen.Signal)) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	last := powerUnknown
	check := func() {
		current, err := b.power()
		if err != nil {
			lg.Error("Error getting backlight power", "device", b.device, "error", err)
			return
		}
		if current == last {
			return
		}
		previous := last
		last = current
		if previous == powerUnknown {
			return
		}
		if current == powerOn {
			emit(screen.SignalScreenOn)
		} else {
			emit(screen.SignalScreenOff)
		}
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			check()
		}
	}
}
