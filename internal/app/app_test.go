package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"jobsentry-engine/internal/analyze"
	"jobsentry-engine/internal/config"
	"jobsentry-engine/internal/domain"
	"jobsentry-engine/internal/httpapi"
	"jobsentry-engine/internal/importer"
	"jobsentry-engine/internal/secrets"
)

func newTestApp(t *testing.T) (*App, config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.App.DataDir = t.TempDir()
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, cfg
}

func TestNewWithoutModelKeyDegradesAnalysis(t *testing.T) {
	a, _ := newTestApp(t)

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><h1>Engineer</h1></body></html>"))
	}))
	defer page.Close()

	_, err := a.Pipeline.Analyze(context.Background(), page.URL+"/jobs/1", domain.ManualFields{})
	assert.ErrorIs(t, err, analyze.ErrAnalysisFailed)
}

func TestRunImportRequiresMailbox(t *testing.T) {
	a, cfg := newTestApp(t)
	_, err := a.RunImport(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrNoMailbox)
}

func TestRunImportRequiresKeychainPassword(t *testing.T) {
	keyring.MockInit()
	a, cfg := newTestApp(t)
	cfg.Email.Username = "me@example.com"

	_, err := a.RunImport(context.Background(), cfg)
	assert.ErrorIs(t, err, secrets.ErrNoIMAPPassword)
}

func TestRecordImportUpdatesStatus(t *testing.T) {
	a, _ := newTestApp(t)
	ch := a.Hub.Subscribe()
	defer a.Hub.Unsubscribe(ch)

	a.setRunning()
	assert.True(t, a.ImportStatus.Load().(httpapi.ImportStatus).Running)

	a.recordImport(importer.Result{Imported: 2, Skipped: 1}, nil)
	st := a.ImportStatus.Load().(httpapi.ImportStatus)
	assert.False(t, st.Running)
	assert.Equal(t, 2, st.LastImported)
	assert.Equal(t, 1, st.LastSkipped)
	assert.NotEmpty(t, st.LastOkAt)

	assert.Contains(t, <-ch, "import_started")
	assert.Contains(t, <-ch, "import_finished")
}

func TestStartScheduleDisabled(t *testing.T) {
	a, _ := newTestApp(t)
	assert.NoError(t, a.StartSchedule(context.Background()))
}

func TestDepsServeHealth(t *testing.T) {
	a, _ := newTestApp(t)
	srv := httptest.NewServer(httpapi.Handler(httpapi.NewMux(a.Deps("config.yml", nil))))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
