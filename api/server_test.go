package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/vpsbot/lifecycle"
	"github.com/projecteru2/vpsbot/monitor"
	"github.com/projecteru2/vpsbot/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubFleet struct {
	stats   lifecycle.FleetStats
	entries map[string][]lifecycle.Entry
	err     error
}

func (f stubFleet) Stats(context.Context) (lifecycle.FleetStats, error) { return f.stats, f.err }

func (f stubFleet) Owned(_ context.Context, owner string) ([]lifecycle.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[owner], nil
}

type stubHost struct {
	stats monitor.HostStats
	err   error
}

func (h stubHost) Stats(context.Context) (monitor.HostStats, error) { return h.stats, h.err }

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := get(t, New(":0", stubFleet{}, nil), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	w := get(t, New(":0", stubFleet{}, nil), "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestStats(t *testing.T) {
	fleet := stubFleet{stats: lifecycle.FleetStats{Users: 2, Total: 3, Running: 2, Stopped: 1}}
	host := stubHost{stats: monitor.HostStats{CPUCount: 8, CPUPercent: 12.5}}

	w := get(t, New(":0", fleet, host), "/v1/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, fleet.stats, resp.Fleet)
	require.NotNil(t, resp.Host)
	assert.Equal(t, 8, resp.Host.CPUCount)
	assert.Empty(t, resp.HostError)
}

func TestStatsHostErrorIsReported(t *testing.T) {
	w := get(t, New(":0", stubFleet{}, stubHost{err: errors.New("no /proc")}), "/v1/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Host)
	assert.Equal(t, "no /proc", resp.HostError)
}

func TestUserVPS(t *testing.T) {
	fleet := stubFleet{entries: map[string][]lifecycle.Entry{
		"42": {{Owner: "42", Index: 1, VPS: types.VPS{ContainerName: "vps-bob-1", Status: types.StatusRunning}}},
	}}
	w := get(t, New(":0", fleet, nil), "/v1/users/42/vps")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		User string            `json:"user"`
		VPS  []lifecycle.Entry `json:"vps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "42", resp.User)
	require.Len(t, resp.VPS, 1)
	assert.Equal(t, "vps-bob-1", resp.VPS[0].VPS.ContainerName)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: x", types.ErrNotFound), http.StatusNotFound},
		{types.ErrInvalidInput, http.StatusBadRequest},
		{types.ErrPermissionDenied, http.StatusForbidden},
		{types.ErrMaintenance, http.StatusServiceUnavailable},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := get(t, New(":0", stubFleet{err: tt.err}, nil), "/v1/stats")
			assert.Equal(t, tt.code, w.Code)
		})
	}
}
