package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("Consorcio Backend", "1.2.0", nil)
	r := newRouter(&masterActor)
	r.GET("/system/info", h.GetSystemInfo)

	w := perform(r, http.MethodGet, "/system/info", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var info SystemInfoResponse
	decodeData(t, w, &info)
	assert.Equal(t, "Consorcio Backend", info.Name)
	assert.Equal(t, "1.2.0", info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.Uptime)
}

func TestSystemHandler_Health(t *testing.T) {
	h := NewSystemHandler("x", "1", nil)
	r := newRouter(nil)
	r.GET("/health", h.Health)

	w := perform(r, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSystemHandler_Ready(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]ReadinessCheck
		wantStatus int
		wantBody   string
	}{
		{
			name:       "all dependencies up",
			checks:     map[string]ReadinessCheck{"database": ok, "cache": ok},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok","checks":{"database":"ok","cache":"ok"}}`,
		},
		{
			name:       "cache down",
			checks:     map[string]ReadinessCheck{"database": ok, "cache": down},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"unavailable","checks":{"database":"ok","cache":"connection refused"}}`,
		},
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler("x", "1", tt.checks)
			r := newRouter(nil)
			r.GET("/health/ready", h.Ready)

			w := perform(r, http.MethodGet, "/health/ready", nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}
