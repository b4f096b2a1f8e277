package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobsentry-engine/internal/analyze"
	"jobsentry-engine/internal/config"
	"jobsentry-engine/internal/domain"
	"jobsentry-engine/internal/events"
	"jobsentry-engine/internal/importer"
	"jobsentry-engine/internal/platform"
	email_scrape "jobsentry-engine/internal/scrape/email"
	"jobsentry-engine/internal/store"
)

type fakeAnalyzer struct {
	classifier *platform.Classifier
	result     domain.AnalysisResult
	err        error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, url string, _ domain.ManualFields) (domain.AnalysisResult, error) {
	if f.err != nil {
		return domain.AnalysisResult{}, f.err
	}
	r := f.result
	r.Platform = f.classifier.Classify(url)
	return r, nil
}

func (f *fakeAnalyzer) Classify(url string) string { return f.classifier.Classify(url) }

type fakeScanner struct {
	apps []domain.EmailApplication
	err  error
}

func (f *fakeScanner) Scan(_ context.Context, creds email_scrape.Credentials, _, _ int) ([]domain.EmailApplication, error) {
	if _, err := creds.Normalized(); err != nil {
		return nil, err
	}
	return f.apps, f.err
}

type fakeImporter struct {
	res importer.Result
	err error
}

func (f *fakeImporter) Import(context.Context, email_scrape.Credentials, int, bool) (importer.Result, error) {
	return f.res, f.err
}

type fakeAlerts struct {
	mu      sync.Mutex
	flagged int
	changes []domain.Status
}

func (f *fakeAlerts) JobFlagged(context.Context, domain.Job) {
	f.mu.Lock()
	f.flagged++
	f.mu.Unlock()
}

func (f *fakeAlerts) StatusChanged(_ context.Context, _ domain.Job, from domain.Status) {
	f.mu.Lock()
	f.changes = append(f.changes, from)
	f.mu.Unlock()
}

type harness struct {
	srv      *httptest.Server
	store    *store.SQLiteStore
	analyzer *fakeAnalyzer
	scanner  *fakeScanner
	importer *fakeImporter
	alerts   *fakeAlerts
	status   *atomic.Value
	hub      *events.Hub
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.App.ExtensionSecret = "ext-secret"
	cfg.LLM.APIKey = "model-key"
	var cfgVal atomic.Value
	cfgVal.Store(cfg)
	var status atomic.Value
	status.Store(ImportStatus{})

	h := &harness{
		store: st,
		analyzer: &fakeAnalyzer{
			classifier: platform.New(config.DefaultRubric()),
			result: domain.AnalysisResult{
				Verdict:         domain.VerdictReal,
				Confidence:      85,
				RiskScore:       10,
				Summary:         "Looks legitimate.",
				RedFlags:        []string{},
				PositiveSignals: []string{"Named recruiter"},
			},
		},
		scanner:  &fakeScanner{},
		importer: &fakeImporter{},
		alerts:   &fakeAlerts{},
		status:   &status,
		hub:      events.NewHub(),
	}

	mux := NewMux(Deps{
		Store:        st,
		Hub:          h.hub,
		Analyzer:     h.analyzer,
		Scanner:      h.scanner,
		Importer:     h.importer,
		Alerts:       h.alerts,
		CfgVal:       &cfgVal,
		ImportStatus: &status,
		UserCfgPath:  filepath.Join(t.TempDir(), "config.yml"),
		LoadCfg:      func() (config.Config, error) { return cfg, nil },
		RunImport: func(context.Context, config.Config) (importer.Result, error) {
			return importer.Result{Imported: 3, Skipped: 1}, nil
		},
	})
	h.srv = httptest.NewServer(Handler(mux))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any, hdr map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func errCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	s, _ := e["code"].(string)
	return s
}

func TestHealthCarriesRequestID(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Len(t, resp.Header.Get("X-Request-ID"), 36)

	resp, _ = h.do(t, http.MethodGet, "/health", nil, map[string]string{"X-Request-ID": "abc"})
	assert.Equal(t, "abc", resp.Header.Get("X-Request-ID"))
}

func TestAnalyzeReturnsResult(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(t, http.MethodPost, "/api/analyze", map[string]any{
		"url":     "https://www.linkedin.com/jobs/view/123",
		"company": "Acme",
	}, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "REAL", body["verdict"])
	assert.Equal(t, "LinkedIn", body["platform"])
}

func TestAnalyzeRejectsBadURL(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodPost, "/api/analyze", map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", errCode(body))

	resp, body = h.do(t, http.MethodPost, "/api/analyze", map[string]any{"url": "ftp://example.com/job"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_url", errCode(body))
}

func TestAnalyzeFailureReturnsFallback(t *testing.T) {
	h := newHarness(t)
	h.analyzer.err = &analyze.CompletionError{Stage: "parse", Err: errors.New("not json")}

	resp, body := h.do(t, http.MethodPost, "/api/analyze", map[string]any{"url": "https://www.indeed.com/viewjob?jk=ab12"}, nil)

	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "analysis_failed", errCode(body))
	fb, ok := body["fallback"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "UNKNOWN", fb["verdict"])
	assert.Equal(t, float64(0), fb["riskScore"])
	assert.Equal(t, "Indeed", fb["platform"])
}

func TestJobLifecycle(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodPost, "/api/jobs", map[string]any{
		"title":   "Data Entry Clerk",
		"company": "QuickCash",
		"url":     "https://www.indeed.com/viewjob?jk=beef",
		"analysis": map[string]any{
			"verdict":   "FAKE",
			"riskScore": 90,
			"platform":  "Spoofed",
		},
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := int64(body["id"].(float64))
	assert.Equal(t, "Indeed", body["platform"])
	assert.Equal(t, "Applied", body["status"])
	assert.Equal(t, "Indeed", body["analysis"].(map[string]any)["platform"])
	assert.Equal(t, 1, h.alerts.flagged)

	resp, body = h.do(t, http.MethodPost, "/api/jobs", map[string]any{
		"title": "x", "company": "y", "url": "https://www.indeed.com/viewjob?jk=beef",
	}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "duplicate_url", errCode(body))

	path := "/api/jobs/" + jsonNumber(id)
	resp, body = h.do(t, http.MethodPatch, path, map[string]any{"status": "Interview", "statusNote": "phone screen"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Interview", body["status"])
	assert.Len(t, body["statusHistory"], 2)
	assert.Equal(t, []domain.Status{domain.StatusApplied}, h.alerts.changes)

	resp, body = h.do(t, http.MethodPatch, path, map[string]any{"status": "Hired"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", errCode(body))

	resp, _ = h.do(t, http.MethodGet, "/api/jobs?verdict=FAKE&search=quick", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = h.do(t, http.MethodGet, "/api/analytics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(100), body["responseRate"])

	resp, _ = h.do(t, http.MethodDelete, path, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = h.do(t, http.MethodGet, path, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errCode(body))

	resp, _ = h.do(t, http.MethodGet, "/api/jobs/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestListFiltersJobs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, j := range []domain.Job{
		{Title: "SRE", Company: "Acme", URL: "https://a.test/jobs/1", Platform: "Other", Status: domain.StatusSaved, Source: domain.SourceManual},
		{Title: "Backend", Company: "Globex", URL: "https://www.linkedin.com/jobs/view/2", Platform: "LinkedIn", Status: domain.StatusApplied, Source: domain.SourceEmail},
	} {
		require.NoError(t, h.store.Create(ctx, &j))
	}

	req, _ := http.NewRequest(http.MethodGet, h.srv.URL+"/api/jobs?platform=LinkedIn", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var jobs []domain.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "Globex", jobs[0].Company)
}

func TestExtensionRequiresSecretAndDeduplicates(t *testing.T) {
	h := newHarness(t)
	payload := map[string]any{"url": "https://www.naukri.com/job-listings-dev-1", "title": "Developer"}

	resp, body := h.do(t, http.MethodPost, "/api/jobs/extension", payload, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", errCode(body))

	hdr := map[string]string{"X-Extension-Secret": "ext-secret"}
	resp, body = h.do(t, http.MethodPost, "/api/jobs/extension", payload, hdr)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, false, body["duplicate"])
	job := body["job"].(map[string]any)
	assert.Equal(t, "Saved", job["status"])
	assert.Equal(t, "extension", job["source"])
	assert.Equal(t, "Unknown", job["company"])
	assert.Equal(t, "Naukri", job["platform"])

	resp, body = h.do(t, http.MethodPost, "/api/jobs/extension", payload, hdr)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["duplicate"])
}

func TestEmailScanPreview(t *testing.T) {
	h := newHarness(t)
	h.scanner.apps = []domain.EmailApplication{{
		Subject: "Application received",
		URLs:    []string{"https://www.linkedin.com/jobs/view/1", "https://www.linkedin.com/jobs/view/2"},
		Status:  domain.StatusApplied,
		Company: "Acme",
	}}

	resp, body := h.do(t, http.MethodPost, "/api/email/scan", map[string]any{
		"email": "me@example.com", "password": "abcd efgh ijkl mnop",
	}, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["preview"])
	assert.Equal(t, float64(1), body["count"])
	app := body["applications"].([]any)[0].(map[string]any)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/1", app["url"])
}

func TestEmailScanErrorMapping(t *testing.T) {
	h := newHarness(t)
	good := map[string]any{"email": "me@example.com", "password": "abcdefghijklmnop"}

	resp, body := h.do(t, http.MethodPost, "/api/email/scan", map[string]any{"email": "me@example.com", "password": "short"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_app_password", errCode(body))

	h.scanner.err = email_scrape.ErrAuthFailed
	resp, body = h.do(t, http.MethodPost, "/api/email/scan", good, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "mail_auth_failed", errCode(body))
	assert.Contains(t, body["error"].(map[string]any)["hint"], "apppasswords")

	h.scanner.err = email_scrape.ErrConnection
	resp, body = h.do(t, http.MethodPost, "/api/email/scan", good, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "mail_connection_failed", errCode(body))

	h.importer.err = importer.ErrImportInProgress
	good["preview"] = false
	resp, body = h.do(t, http.MethodPost, "/api/email/scan", good, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "import_in_progress", errCode(body))

	resp, _ = h.do(t, http.MethodPost, "/api/email/scan", map[string]any{"email": "me@example.com", "password": "abcdefghijklmnop", "daysBack": 400}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEmailImportReturnsCounters(t *testing.T) {
	h := newHarness(t)
	h.importer.res = importer.Result{Imported: 2, Skipped: 1, Errors: 0, Jobs: []domain.Job{}}

	resp, body := h.do(t, http.MethodPost, "/api/email/scan", map[string]any{
		"email": "me@example.com", "password": "abcdefghijklmnop", "preview": false,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["preview"])
	assert.Equal(t, float64(2), body["imported"])
	assert.Equal(t, float64(1), body["skipped"])

	resp, body = h.do(t, http.MethodGet, "/api/email/status", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["emailImportedCount"])
}

func TestImportRunUpdatesStatus(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(t, http.MethodPost, "/api/import/run", nil, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, true, body["ok"])

	assert.Eventually(t, func() bool {
		st := h.status.Load().(ImportStatus)
		return !st.Running && st.LastImported == 3
	}, 2*time.Second, 10*time.Millisecond)

	_, body = h.do(t, http.MethodGet, "/api/import/status", nil, nil)
	assert.Equal(t, float64(1), body["last_skipped"])
}

func TestConfigIsRedacted(t *testing.T) {
	h := newHarness(t)
	_, body := h.do(t, http.MethodGet, "/config", nil, nil)
	llm := body["llm"].(map[string]any)
	assert.Equal(t, "********", llm["api_key"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodGet, "/health", nil, nil)

	resp, err := http.Get(h.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(t, http.MethodPut, "/api/analyze", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "method_not_allowed", errCode(body))
}

func TestRouteLabelCollapsesIDs(t *testing.T) {
	assert.Equal(t, "/api/jobs/:id", routeLabel("/api/jobs/42"))
	assert.Equal(t, "/api/jobs", routeLabel("/api/jobs"))
}
