package httpapi

import (
	"context"
	"sync/atomic"

	"jobsentry-engine/internal/config"
	"jobsentry-engine/internal/domain"
	"jobsentry-engine/internal/events"
	"jobsentry-engine/internal/importer"
	email_scrape "jobsentry-engine/internal/scrape/email"
	"jobsentry-engine/internal/store"
)

type Analyzer interface {
	Analyze(ctx context.Context, url string, manual domain.ManualFields) (domain.AnalysisResult, error)
	Classify(url string) string
}

type MailScanner interface {
	Scan(ctx context.Context, creds email_scrape.Credentials, daysBack, limit int) ([]domain.EmailApplication, error)
}

type MailImporter interface {
	Import(ctx context.Context, creds email_scrape.Credentials, daysBack int, analyze bool) (importer.Result, error)
}

type Alerter interface {
	JobFlagged(ctx context.Context, j domain.Job)
	StatusChanged(ctx context.Context, j domain.Job, from domain.Status)
}

type Deps struct {
	Store    store.JobStore
	Hub      *events.Hub
	Analyzer Analyzer
	Scanner  MailScanner
	Importer MailImporter
	Alerts   Alerter

	// Atomic stores
	CfgVal       *atomic.Value // stores config.Config
	ImportStatus *atomic.Value // stores httpapi.ImportStatus

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Background import with the configured mailbox (inject for testability)
	RunImport func(ctx context.Context, cfg config.Config) (importer.Result, error)
}
