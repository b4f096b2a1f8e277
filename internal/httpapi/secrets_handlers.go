package httpapi

import (
	"net/http"
	"sync/atomic"

	"jobsentry-engine/internal/config"
	email_scrape "jobsentry-engine/internal/scrape/email"
	"jobsentry-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setIMAPPasswordReq struct {
	Password string `json:"password" validate:"required"`
}

func (h SecretsHandler) SetIMAPPassword(w http.ResponseWriter, r *http.Request) {
	var req setIMAPPasswordReq
	if !decodeBody(w, r, &req) {
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if cfg.Email.Username == "" {
		WriteError(w, r, http.StatusBadRequest, "mailbox_not_configured", "set email.username in the config first")
		return
	}
	creds, err := email_scrape.Credentials{Username: cfg.Email.Username, Password: req.Password}.Normalized()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := secrets.SetIMAPPassword(secrets.IMAPKeyringAccount(cfg), creds.Password); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "keychain_error", "failed to store password: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) DeleteIMAPPassword(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.DeleteIMAPPassword(secrets.IMAPKeyringAccount(cfg)); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "keychain_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
