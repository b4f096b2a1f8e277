package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus any problems found.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.LLM.Provider = strings.ToLower(strings.TrimSpace(out.LLM.Provider))
	out.Store.Driver = strings.ToLower(strings.TrimSpace(out.Store.Driver))
	out.Email.Username = strings.TrimSpace(out.Email.Username)
	out.Email.IMAPHost = strings.TrimSpace(out.Email.IMAPHost)

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	if strings.TrimSpace(out.App.DataDir) == "" {
		res.addErr("app.data_dir is required")
	}
	if out.App.ExtensionSecret == "" {
		res.addWarn("app.extension_secret is empty; the extension endpoint will reject every request.")
	}

	// fetch sanity
	if out.Fetch.TimeoutSeconds <= 0 {
		res.addErr("fetch.timeout_seconds must be > 0")
	} else if out.Fetch.TimeoutSeconds > 10 {
		res.addWarn("fetch.timeout_seconds capped at 10 (was %d).", out.Fetch.TimeoutSeconds)
		out.Fetch.TimeoutSeconds = 10
	}
	if out.Fetch.MaxChars <= 0 {
		out.Fetch.MaxChars = 4000
	} else if out.Fetch.MaxChars > 4000 {
		res.addWarn("fetch.max_chars capped at 4000 (was %d).", out.Fetch.MaxChars)
		out.Fetch.MaxChars = 4000
	}
	if out.Fetch.ReqPerSec <= 0 {
		res.addErr("fetch.req_per_sec must be > 0")
	}
	if out.Fetch.Burst <= 0 {
		out.Fetch.Burst = 1
	}

	switch out.LLM.Provider {
	case "gemini", "openai":
	default:
		res.addErr("llm.provider must be gemini or openai (got %q)", out.LLM.Provider)
	}
	if strings.TrimSpace(out.LLM.Model) == "" {
		res.addErr("llm.model is required")
	}
	if out.LLM.APIKey == "" {
		res.addWarn("llm.api_key is empty; analysis requests will fail.")
	}
	if out.LLM.TimeoutSeconds <= 0 || out.LLM.TimeoutSeconds > 10 {
		res.addWarn("llm.timeout_seconds must be 1..10; using 10.")
		out.LLM.TimeoutSeconds = 10
	}

	// email required fields if enabled (password not required here; it's in keychain)
	if out.Email.Enabled {
		if out.Email.IMAPHost == "" {
			res.addErr("email.imap_host is required when email.enabled=true")
		}
		if out.Email.IMAPPort == 0 {
			res.addErr("email.imap_port is required when email.enabled=true")
		}
		if out.Email.Username == "" {
			res.addErr("email.username is required when email.enabled=true")
		}
	}
	if strings.TrimSpace(out.Email.Mailbox) == "" {
		out.Email.Mailbox = "INBOX"
	}
	if out.Email.DaysBack <= 0 || out.Email.DaysBack > 365 {
		res.addErr("email.days_back must be 1..365")
	}
	if out.Email.ScanLimit <= 0 {
		res.addErr("email.scan_limit must be > 0")
	} else if out.Email.ScanLimit > 500 {
		res.addWarn("email.scan_limit is very high (%d); scans will be slow.", out.Email.ScanLimit)
	}
	if out.Email.ConnectSeconds <= 0 {
		out.Email.ConnectSeconds = 10
	}
	if out.Email.ParseConcurrency <= 0 {
		out.Email.ParseConcurrency = 1
	}

	if s := strings.TrimSpace(out.Schedule.ImportCron); s != "" {
		if _, err := cron.ParseStandard(s); err != nil {
			res.addErr("schedule.import_cron invalid: %v", err)
		}
	}

	switch out.Store.Driver {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(out.Store.DSN) == "" {
			res.addErr("store.dsn is required when store.driver=postgres")
		}
	default:
		res.addErr("store.driver must be sqlite or postgres (got %q)", out.Store.Driver)
	}

	if out.Cache.RedisURL != "" && out.Cache.TTLHours <= 0 {
		res.addWarn("cache.ttl_hours <= 0; defaulting to 24.")
		out.Cache.TTLHours = 24
	}

	if out.SMTP.Host != "" && out.SMTP.From == "" {
		res.addErr("smtp.from is required when smtp.host is set")
	}

	return out, res
}
