package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerWritesBoundAttrs(t *testing.T) {
	var buf bytes.Buffer
	lg := slog.New(NewCustomHandler(&buf, nil)).With("component", "screen")

	lg.Info("Screen service created!", "label", "desk")

	out := buf.String()
	assert.Contains(t, out, "Screen service created!")
	assert.Contains(t, out, "component=screen")
	assert.Contains(t, out, "label=desk")
}

func TestHandlerLevelSharedWithClones(t *testing.T) {
	var buf bytes.Buffer
	h := NewCustomHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	lg := slog.New(h).With("component", "store")

	lg.Debug("hidden")
	assert.Empty(t, buf.String())

	h.level.Set(slog.LevelDebug)
	lg.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestHandlerGroupsPrefixRecordAttrs(t *testing.T) {
	var buf bytes.Buffer
	lg := slog.New(NewCustomHandler(&buf, nil)).WithGroup("sync")

	lg.Info("uploaded", "rows", 3)

	assert.Contains(t, buf.String(), "sync.rows=3")
}
