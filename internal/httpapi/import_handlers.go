package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"jobsentry-engine/internal/config"
	"jobsentry-engine/internal/events"
	"jobsentry-engine/internal/importer"
)

type ImportHandler struct {
	CfgVal    *atomic.Value // config.Config
	Status    *atomic.Value // httpapi.ImportStatus
	Hub       *events.Hub
	RunImport func(ctx context.Context, cfg config.Config) (importer.Result, error)
}

func (h ImportHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	st := h.Status.Load().(ImportStatus)
	writeJSON(w, st)
}

func (h ImportHandler) Run(w http.ResponseWriter, r *http.Request) {
	st := h.Status.Load().(ImportStatus)
	if st.Running {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	running := st
	running.Running = true
	running.LastRunAt = time.Now().Format(time.RFC3339)
	running.LastError = ""
	if !h.Status.CompareAndSwap(st, running) {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	reqID := RequestIDFrom(r.Context())
	if h.Hub != nil {
		h.Hub.Emit(reqID, events.TypeImportStarted, nil)
	}

	go func() {
		cfg := h.CfgVal.Load().(config.Config)
		res, err := h.RunImport(context.Background(), cfg)

		now := time.Now().Format(time.RFC3339)
		next := h.Status.Load().(ImportStatus)
		next.Running = false
		next.LastRunAt = now
		next.LastImported = res.Imported
		next.LastSkipped = res.Skipped
		next.LastErrors = res.Errors
		if err != nil {
			next.LastError = err.Error()
		} else {
			next.LastError = ""
			next.LastOkAt = now
		}
		h.Status.Store(next)

		if h.Hub != nil {
			h.Hub.Emit(reqID, events.TypeImportFinished, next)
		}
	}()

	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
