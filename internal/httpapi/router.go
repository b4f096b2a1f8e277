package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	hh := HealthHandler{}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Analysis
	ah := AnalyzeHandler{Analyzer: d.Analyzer, Hub: d.Hub}
	mux.HandleFunc("/api/analyze", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ah.Analyze,
	}))

	// Jobs
	jh := JobsHandler{Store: d.Store, Hub: d.Hub, Classify: d.Analyzer.Classify, Alerts: d.Alerts, CfgVal: d.CfgVal}
	mux.HandleFunc("/api/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  jh.List,
		http.MethodPost: jh.Create,
	}))
	mux.HandleFunc("/api/jobs/extension", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: jh.FromExtension,
	}))
	mux.HandleFunc("/api/jobs/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:    jh.GetByPath, // expects /api/jobs/{id}
		http.MethodPatch:  jh.PatchByPath,
		http.MethodDelete: jh.DeleteByPath,
	}))
	mux.HandleFunc("/api/analytics", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.Analytics,
	}))

	// Email
	mh := EmailHandler{Store: d.Store, Scanner: d.Scanner, Importer: d.Importer, CfgVal: d.CfgVal}
	mux.HandleFunc("/api/email/scan", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: mh.Scan,
	}))
	mux.HandleFunc("/api/email/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: mh.Status,
	}))

	// Background import with the configured mailbox
	ih := ImportHandler{
		CfgVal:    d.CfgVal,
		Status:    d.ImportStatus,
		Hub:       d.Hub,
		RunImport: d.RunImport,
	}
	mux.HandleFunc("/api/import/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ih.StatusHandler,
	}))
	mux.HandleFunc("/api/import/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ih.Run,
	}))

	// Secrets (use cfgVal, NOT a snapshot cfg)
	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/imap", methodMux(map[string]http.HandlerFunc{
		http.MethodPost:   sh.SetIMAPPassword,
		http.MethodDelete: sh.DeleteIMAPPassword,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Handler wraps h with the standard middleware stack.
func Handler(h http.Handler) http.Handler {
	return Chain(h, RequestID, Recover, AccessLog, Metrics, Cors)
}
