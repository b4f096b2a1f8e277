package httpapi

import (
	"net/http"
	"sync/atomic"
	"time"

	"jobsentry-engine/internal/config"
	"jobsentry-engine/internal/domain"
	email_scrape "jobsentry-engine/internal/scrape/email"
	"jobsentry-engine/internal/store"
)

type EmailHandler struct {
	Store    store.JobStore
	Scanner  MailScanner
	Importer MailImporter
	CfgVal   *atomic.Value // config.Config
}

type emailScanReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	DaysBack int    `json:"daysBack" validate:"omitempty,min=1,max=365"`
	Preview  *bool  `json:"preview"`
}

type previewApp struct {
	Subject      string        `json:"subject"`
	Status       domain.Status `json:"status"`
	Title        string        `json:"title"`
	Company      string        `json:"company"`
	URL          string        `json:"url"`
	ReceivedDate time.Time     `json:"receivedDate"`
	EmailFrom    string        `json:"emailFrom"`
}

// Scan previews job-application emails, or imports them when preview is false.
func (h EmailHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req emailScanReq
	if !decodeBody(w, r, &req) {
		return
	}
	cfg := h.CfgVal.Load().(config.Config)

	days := req.DaysBack
	if days == 0 {
		days = 30
	}
	creds := email_scrape.Credentials{Username: req.Email, Password: req.Password}

	if req.Preview == nil || *req.Preview {
		apps, err := h.Scanner.Scan(r.Context(), creds, days, cfg.Email.ScanLimit)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		out := make([]previewApp, 0, len(apps))
		for _, a := range apps {
			p := previewApp{
				Subject:      a.Subject,
				Status:       a.Status,
				Title:        a.Title,
				Company:      a.Company,
				ReceivedDate: a.ReceivedDate,
				EmailFrom:    a.EmailFrom,
			}
			if len(a.URLs) > 0 {
				p.URL = a.URLs[0]
			}
			out = append(out, p)
		}
		writeJSON(w, map[string]any{"preview": true, "count": len(out), "applications": out})
		return
	}

	res, err := h.Importer.Import(r.Context(), creds, days, cfg.Email.AnalyzeOnImport)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{
		"preview":      false,
		"imported":     res.Imported,
		"skipped":      res.Skipped,
		"errors":       res.Errors,
		"applications": res.Jobs,
	})
}

func (h EmailHandler) Status(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.CountBySource(r.Context(), domain.SourceEmail)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	cfg := h.CfgVal.Load().(config.Config)
	writeJSON(w, map[string]any{
		"emailImportedCount": n,
		"imapEnabled":        true,
		"imapHost":           cfg.Email.IMAPHost,
		"scheduledImport":    cfg.Email.Enabled,
		"supportedProviders": []string{"Gmail"},
		"instructions": map[string]string{
			"step1": "Enable 2-Step Verification in your Google Account",
			"step2": "Generate an App Password at https://myaccount.google.com/apppasswords",
			"step3": "Use your email and the 16-character app password (not your regular password)",
			"step4": "Scan emails from the past 30 days",
		},
	})
}
