package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trbjo/goscreen/screen"
	"github.com/trbjo/goscreen/store"
)

type fakeSensor struct {
	commands []screen.Command
	err      error
}

func (f *fakeSensor) Handle(ctx context.Context, cmd screen.Command) error {
	f.commands = append(f.commands, cmd)
	return f.err
}

func (f *fakeSensor) Status() screen.Snapshot {
	return screen.Snapshot{Running: true, LastStatus: "on", Label: "desk", DeviceID: "device-1"}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := NewRouter(&fakeSensor{}).Handler()

	rec := do(t, h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestStatus(t *testing.T) {
	h := NewRouter(&fakeSensor{}).Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/sensor", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SensorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Running)
	assert.Equal(t, "on", resp.LastStatus)
	assert.Equal(t, "device-1", resp.DeviceID)
}

func TestCommandsMapToActions(t *testing.T) {
	f := &fakeSensor{}
	h := NewRouter(f).Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/sensor/start", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/sensor/sync", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/sensor/stop", "").Code)

	require.Len(t, f.commands, 3)
	assert.Equal(t, screen.ActionStart, f.commands[0].Action)
	assert.Equal(t, screen.ActionSync, f.commands[1].Action)
	assert.Equal(t, screen.ActionStop, f.commands[2].Action)
}

func TestSetLabel(t *testing.T) {
	f := &fakeSensor{}
	h := NewRouter(f).Handler()

	rec := do(t, h, http.MethodPut, "/api/v1/sensor/label", `{"label":"meeting"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.commands, 1)
	label, ok := f.commands[0].Extra(screen.ExtraLabel)
	assert.True(t, ok)
	assert.Equal(t, "meeting", label)
}

func TestSetLabelRequiresField(t *testing.T) {
	f := &fakeSensor{}
	h := NewRouter(f).Handler()

	rec := do(t, h, http.MethodPut, "/api/v1/sensor/label", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.commands)
}

func TestCommandErrorIsReported(t *testing.T) {
	h := NewRouter(&fakeSensor{err: errors.New("database is locked")}).Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/sensor/start", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is locked")
}

func TestDrivesRealSensor(t *testing.T) {
	s := screen.New(&screen.Config{Label: "desk", DeviceID: "device-1", DBType: store.TypeNone})
	defer s.Stop()
	h := NewRouter(s).Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/sensor/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"running":true`)

	rec = do(t, h, http.MethodPut, "/api/v1/sensor/label", `{"label":"couch"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "couch", s.Config().Label)
}
