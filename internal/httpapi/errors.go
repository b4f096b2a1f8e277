package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"jobsentry-engine/internal/analyze"
	"jobsentry-engine/internal/importer"
	email_scrape "jobsentry-engine/internal/scrape/email"
	"jobsentry-engine/internal/secrets"
	"jobsentry-engine/internal/store"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Hint      string `json:"hint,omitempty"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeErrorHint(w, r, status, code, message, "")
}

func writeErrorHint(w http.ResponseWriter, r *http.Request, status int, code, message, hint string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.Hint = hint
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

const (
	hintAppPassword = "Use a 16-character app password, not your regular password. Generate one at https://myaccount.google.com/apppasswords"
	hintIMAP        = "Make sure IMAP is enabled in your mail settings"
)

// writeDomainError maps the engine's error taxonomy onto HTTP responses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, email_scrape.ErrInvalidAppPassword):
		writeErrorHint(w, r, http.StatusBadRequest, "invalid_app_password", err.Error(), hintAppPassword)
	case errors.Is(err, email_scrape.ErrAuthFailed):
		writeErrorHint(w, r, http.StatusUnauthorized, "mail_auth_failed",
			"Invalid email or app password", hintAppPassword)
	case errors.Is(err, email_scrape.ErrConnection):
		writeErrorHint(w, r, http.StatusBadGateway, "mail_connection_failed", err.Error(), hintIMAP)
	case errors.Is(err, importer.ErrImportInProgress):
		WriteError(w, r, http.StatusConflict, "import_in_progress", err.Error())
	case errors.Is(err, secrets.ErrNoIMAPPassword):
		writeErrorHint(w, r, http.StatusBadRequest, "imap_password_missing", err.Error(),
			"Store the app password with POST /api/secrets/imap")
	case errors.Is(err, analyze.ErrAnalysisFailed):
		WriteError(w, r, http.StatusBadGateway, "analysis_failed", err.Error())
	case errors.Is(err, store.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, "not_found", "Job not found")
	case errors.Is(err, store.ErrDuplicateURL):
		WriteError(w, r, http.StatusConflict, "duplicate_url", err.Error())
	default:
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
