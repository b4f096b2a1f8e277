// Package app builds the engine's components from a Config and holds them
// for the lifetime of the process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"jobsentry-engine/internal/analyze"
	"jobsentry-engine/internal/cache"
	"jobsentry-engine/internal/config"
	"jobsentry-engine/internal/events"
	"jobsentry-engine/internal/httpapi"
	"jobsentry-engine/internal/importer"
	"jobsentry-engine/internal/llm"
	"jobsentry-engine/internal/notify"
	"jobsentry-engine/internal/platform"
	"jobsentry-engine/internal/scheduler"
	"jobsentry-engine/internal/scrape"
	email_scrape "jobsentry-engine/internal/scrape/email"
	"jobsentry-engine/internal/secrets"
	"jobsentry-engine/internal/store"
)

var ErrNoMailbox = errors.New("email.username is not configured")

type App struct {
	CfgVal       *atomic.Value // config.Config
	ImportStatus *atomic.Value // httpapi.ImportStatus

	Store    store.JobStore
	Hub      *events.Hub
	Pipeline *analyze.Pipeline
	Scanner  *email_scrape.Scanner
	Importer *importer.Importer
	Alerts   notify.Alerts

	closers []func() error
}

// New wires every component from cfg. Components read cfg once; changes
// made later through the config API apply to per-request settings only.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{CfgVal: &atomic.Value{}, ImportStatus: &atomic.Value{}}
	a.CfgVal.Store(cfg)
	a.ImportStatus.Store(httpapi.ImportStatus{})

	rubric, err := config.LoadRubric(cfg.App.RubricPath)
	if err != nil {
		return nil, fmt.Errorf("load rubric: %w", err)
	}
	classifier := platform.New(rubric)

	client, err := llm.NewClient(ctx, cfg)
	if err != nil {
		log.Printf("[app] llm unavailable, analyses will return UNKNOWN: %v", err)
		client = llm.Unavailable{Err: err}
	}
	a.closers = append(a.closers, client.Close)

	var analysisCache analyze.Cache
	if cfg.Cache.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, time.Duration(cfg.Cache.TTLHours)*time.Hour)
		if err != nil {
			log.Printf("[app] redis cache disabled: %v", err)
		} else {
			analysisCache = rc
			a.closers = append(a.closers, rc.Close)
		}
	}

	a.Pipeline = analyze.NewPipeline(analyze.Options{
		Fetcher:    scrape.NewFetcher(cfg),
		Classifier: classifier,
		Composer:   analyze.NewComposer(rubric),
		Client:     client,
		Cache:      analysisCache,
		Timeout:    time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})

	st, err := store.Open(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.Store = st
	a.closers = append(a.closers, st.Close)

	a.Hub = events.NewHub()

	heur, err := email_scrape.NewHeuristics(rubric, classifier)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("email heuristics: %w", err)
	}
	dialer := email_scrape.IMAPDialer{
		Host:           cfg.Email.IMAPHost,
		Port:           cfg.Email.IMAPPort,
		Mailbox:        cfg.Email.Mailbox,
		ConnectTimeout: time.Duration(cfg.Email.ConnectSeconds) * time.Second,
		SessionTimeout: 2 * time.Minute,
	}
	a.Scanner = email_scrape.NewScanner(dialer, heur, cfg.Email.ParseConcurrency)

	a.Alerts = notify.Alerts{
		Sender:    notify.NewSender(cfg),
		DefaultTo: cfg.Email.Username,
	}

	a.Importer = importer.New(importer.Options{
		Scanner:    a.Scanner,
		Store:      st,
		Classifier: classifier,
		Analyzer:   a.Pipeline,
		Events:     a.Hub,
		Alerter:    a.Alerts,
		LockDir:    filepath.Join(cfg.App.DataDir, "locks"),
		ScanLimit:  cfg.Email.ScanLimit,
	})
	return a, nil
}

// RunImport imports from the configured mailbox using the app password
// stored in the OS keychain.
func (a *App) RunImport(ctx context.Context, cfg config.Config) (importer.Result, error) {
	user := strings.TrimSpace(cfg.Email.Username)
	if user == "" {
		return importer.Result{}, ErrNoMailbox
	}
	pw, err := secrets.GetIMAPPassword(secrets.IMAPKeyringAccount(cfg))
	if err != nil {
		return importer.Result{}, err
	}
	return a.Importer.Import(ctx, email_scrape.Credentials{Username: user, Password: pw}, cfg.Email.DaysBack, cfg.Email.AnalyzeOnImport)
}

// StartSchedule runs the background import on the configured cron expression
// when email import is enabled.
func (a *App) StartSchedule(ctx context.Context) error {
	cfg := a.CfgVal.Load().(config.Config)
	if !cfg.Email.Enabled {
		log.Printf("[import] scheduled import disabled")
		return nil
	}
	return scheduler.Start(ctx, cfg.Schedule.ImportCron, "import", false, func(ctx context.Context) error {
		cur := a.CfgVal.Load().(config.Config)
		if !cur.Email.Enabled {
			return nil
		}
		a.setRunning()
		res, err := a.RunImport(ctx, cur)
		a.recordImport(res, err)
		return err
	})
}

func (a *App) setRunning() {
	st := a.ImportStatus.Load().(httpapi.ImportStatus)
	st.Running = true
	st.LastRunAt = time.Now().Format(time.RFC3339)
	a.ImportStatus.Store(st)
	a.Hub.Emit("", events.TypeImportStarted, nil)
}

func (a *App) recordImport(res importer.Result, err error) {
	now := time.Now().Format(time.RFC3339)
	st := a.ImportStatus.Load().(httpapi.ImportStatus)
	st.Running = false
	st.LastRunAt = now
	st.LastImported = res.Imported
	st.LastSkipped = res.Skipped
	st.LastErrors = res.Errors
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
		st.LastOkAt = now
	}
	a.ImportStatus.Store(st)
	a.Hub.Emit("", events.TypeImportFinished, st)
}

// Deps exposes the app to the HTTP layer.
func (a *App) Deps(userCfgPath string, loadCfg func() (config.Config, error)) httpapi.Deps {
	return httpapi.Deps{
		Store:        a.Store,
		Hub:          a.Hub,
		Analyzer:     a.Pipeline,
		Scanner:      a.Scanner,
		Importer:     a.Importer,
		Alerts:       a.Alerts,
		CfgVal:       a.CfgVal,
		ImportStatus: a.ImportStatus,
		UserCfgPath:  userCfgPath,
		LoadCfg:      loadCfg,
		RunImport:    a.RunImport,
	}
}

// Close releases components in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
