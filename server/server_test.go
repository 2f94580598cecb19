package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rocket "github.com/MalikTzys/Rocket-With-Aerodynamic"
)

func newTestServer(t *testing.T) (*rocket.Flight, *rocket.SnapshotStore, *rocket.CommandQueue, http.Handler) {
	t.Helper()
	f, err := rocket.NewFlight(rocket.DefaultConfig(), nil)
	require.NoError(t, err)
	store := rocket.NewSnapshotStore()
	queue := rocket.NewCommandQueue()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("rocket_altitude_meters 500\n"))
	})
	return f, store, queue, New(store, queue, metrics)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, _, _, h := newTestServer(t)
	rec := do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestState(t *testing.T) {
	f, store, _, h := newTestServer(t)
	rec := do(h, http.MethodGet, "/state", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	store.Publish(f.Tick(0.1, rocket.Command{}))
	rec = do(h, http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Time      float64    `json:"time"`
		Status    string     `json:"status"`
		Position  [3]float64 `json:"position"`
		FuelMass  float64    `json:"fuel_mass"`
		Cd        float64    `json:"drag_coefficient"`
		Telemetry struct {
			Altitude float64 `json:"altitude"`
		} `json:"telemetry"`
		Events []json.RawMessage `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.InDelta(t, 0.1, got.Time, 1e-9)
	assert.Equal(t, "running", got.Status)
	assert.Equal(t, got.Position[1], got.Telemetry.Altitude)
	assert.Less(t, got.FuelMass, 3000.0)
	assert.Equal(t, 0.45, got.Cd)
	assert.NotNil(t, got.Events)
}

func TestCommands(t *testing.T) {
	f, store, queue, h := newTestServer(t)
	store.Publish(f.Snapshot())

	assert.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/sim/pause", "").Code)
	assert.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/sim/speed", `{"delta": 0.5}`).Code)
	assert.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/sim/command", `{"throttleDelta": 0.25, "pitch": 0.5, "dragDelta": 0.05}`).Code)

	cmd := queue.Drain()
	assert.True(t, cmd.Pause)
	assert.Equal(t, 0.5, cmd.TimeScaleDelta)
	assert.Equal(t, 0.25, cmd.ThrottleDelta)
	assert.Equal(t, 0.5, cmd.Pitch)
	assert.Equal(t, 0.05, cmd.DragDelta)

	snap := f.Tick(0.016, cmd)
	assert.Equal(t, rocket.Paused, snap.Status)
	assert.Equal(t, 1.5, snap.TimeScale)
	assert.Equal(t, 0.625, snap.Throttle)

	assert.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/sim/reset", "").Code)
	assert.True(t, queue.Drain().Reset)
}

func TestBadCommands(t *testing.T) {
	_, _, queue, h := newTestServer(t)
	for _, c := range []struct{ path, body string }{
		{"/sim/speed", `nope`},
		{"/sim/speed", `{"delta": 0}`},
		{"/sim/command", `{"pitch": 2}`},
		{"/sim/command", `{"warp": 9}`},
	} {
		rec := do(h, http.MethodPost, c.path, c.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, c.body)
		assert.Contains(t, rec.Body.String(), "error")
	}
	assert.True(t, queue.Drain().IsZero())
	assert.Equal(t, http.StatusMethodNotAllowed, do(h, http.MethodGet, "/sim/pause", "").Code)
}

func TestMetrics(t *testing.T) {
	_, _, _, h := newTestServer(t)
	rec := do(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rocket_altitude_meters")
}
