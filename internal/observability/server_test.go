// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

package observability

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, ready ReadinessChecker) *Server {
	t.Helper()
	srv := NewServer("127.0.0.1:0", ready)
	_, err := srv.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec // local test server
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	srv := startTestServer(t, nil)
	srv.Metrics().RegistrationsTotal.WithLabelValues("ok").Inc()

	status, body := get(t, "http://"+srv.Addr()+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "examreg_registrations_total")
}

func TestServer_HealthProbes(t *testing.T) {
	t.Run("liveness always ok", func(t *testing.T) {
		srv := startTestServer(t, func() bool { return false })

		status, body := get(t, "http://"+srv.Addr()+"/healthz/liveness")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ok\n", body)
	})

	t.Run("readiness follows checker", func(t *testing.T) {
		ready := false
		srv := startTestServer(t, func() bool { return ready })

		status, _ := get(t, "http://"+srv.Addr()+"/healthz/readiness")
		assert.Equal(t, http.StatusServiceUnavailable, status)

		ready = true
		status, _ = get(t, "http://"+srv.Addr()+"/healthz/readiness")
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("nil checker means ready", func(t *testing.T) {
		srv := startTestServer(t, nil)

		status, _ := get(t, "http://"+srv.Addr()+"/healthz/readiness")
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestServer_DoubleStart(t *testing.T) {
	srv := startTestServer(t, nil)

	_, err := srv.Start()
	assert.Error(t, err)
}

func TestServer_StopIdempotent(t *testing.T) {
	srv := NewServer("127.0.0.1:0", nil)
	_, err := srv.Start()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, srv.Stop(ctx))
	assert.NoError(t, srv.Stop(ctx), "second stop is a no-op")
}
