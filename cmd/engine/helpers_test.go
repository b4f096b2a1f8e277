package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobsentry-engine/internal/app"
)

func TestShutdownHandlerGuards(t *testing.T) {
	stopped := make(chan struct{}, 1)
	h := shutdownHandler("secret", func(context.Context) error {
		stopped <- struct{}{}
		return nil
	})

	cases := []struct {
		name   string
		method string
		remote string
		token  string
		want   int
	}{
		{"wrong method", http.MethodGet, "127.0.0.1:5000", "secret", http.StatusMethodNotAllowed},
		{"remote caller", http.MethodPost, "10.0.0.8:5000", "secret", http.StatusForbidden},
		{"missing token", http.MethodPost, "127.0.0.1:5000", "", http.StatusUnauthorized},
		{"bad token", http.MethodPost, "[::1]:5000", "nope", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/shutdown", nil)
			req.RemoteAddr = tc.remote
			if tc.token != "" {
				req.Header.Set("X-Shutdown-Token", tc.token)
			}
			rec := httptest.NewRecorder()
			h(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/shutdown", nil)
	req.RemoteAddr = "127.0.0.1:5000"
	req.Header.Set("X-Shutdown-Token", "secret")
	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop was not called")
	}
}

func TestShutdownTokenWrittenToDataDir(t *testing.T) {
	t.Setenv("JOBSENTRY_SHUTDOWN_TOKEN", "")
	dir := t.TempDir()

	tok, err := shutdownToken(dir)
	require.NoError(t, err)
	assert.Len(t, tok, 64)

	b, err := os.ReadFile(filepath.Join(dir, "shutdown.token"))
	require.NoError(t, err)
	assert.Equal(t, tok, string(b))
}

func TestLoadConfigSeedsDataDir(t *testing.T) {
	dataDir = t.TempDir()
	t.Setenv("DATABASE_URL", "")

	path, cfg, load, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "config.yml"), path)
	assert.Equal(t, dataDir, cfg.App.DataDir)

	again, err := load()
	require.NoError(t, err)
	assert.Equal(t, cfg.App.Port, again.App.Port)
}

func TestAnalyzeRequiresURL(t *testing.T) {
	rootCmd.SetArgs([]string{"analyze"})
	err := rootCmd.Execute()
	assert.Error(t, err)
}

func TestScanRequiresMailbox(t *testing.T) {
	dataDir = t.TempDir()
	mailEmail = ""
	_, _, _, err := mailboxSetup()
	assert.ErrorIs(t, err, app.ErrNoMailbox)
}
