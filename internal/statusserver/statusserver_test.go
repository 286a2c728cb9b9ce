package statusserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oslab-sim/schedsim/internal/coordinator"
)

type fakeSource struct {
	runID     string
	tick      int
	busyTicks int
	pcbs      []coordinator.Snapshot
}

func (f *fakeSource) Snapshot() (int, int, []coordinator.Snapshot) {
	return f.tick, f.busyTicks, f.pcbs
}

func (f *fakeSource) RunID() string { return f.runID }

func newTestHandler(src Source) http.Handler {
	return New(":0", src).http.Handler
}

func TestServer_Status_ReturnsSnapshotFields(t *testing.T) {
	src := &fakeSource{
		runID:     "run-1",
		tick:      10,
		busyTicks: 5,
		pcbs:      []coordinator.Snapshot{{ID: 1, State: "running", Remaining: 3, Waiting: 2, MemOffset: 0}},
	}
	h := newTestHandler(src)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 10, got.Tick)
	assert.Equal(t, 5, got.BusyTicks)
	assert.Equal(t, 0.5, got.UtilizationEMA, "first reading has no history to smooth against")
	require.Len(t, got.Processes, 1)
	assert.Equal(t, 1, got.Processes[0].ID)
}

func TestServer_Status_SmoothsUtilizationAcrossRequests(t *testing.T) {
	src := &fakeSource{runID: "run-1", tick: 10, busyTicks: 10}
	h := newTestHandler(src)

	get := func() float64 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
		var got statusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		return got.UtilizationEMA
	}

	first := get()
	assert.Equal(t, 1.0, first)

	src.busyTicks = 0
	second := get()
	assert.InDelta(t, 0.7, second, 1e-9, "alpha=0.3 EMA pulls partway toward the new 0.0 reading")
}

func TestServer_Status_ZeroTickReportsZeroUtilization(t *testing.T) {
	src := &fakeSource{runID: "run-1", tick: 0, busyTicks: 0}
	h := newTestHandler(src)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	var got statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 0.0, got.UtilizationEMA)
}
