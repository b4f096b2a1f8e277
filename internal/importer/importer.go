// Package importer turns job-application emails into tracked jobs.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"jobsentry-engine/internal/domain"
	"jobsentry-engine/internal/events"
	"jobsentry-engine/internal/metrics"
	email_scrape "jobsentry-engine/internal/scrape/email"
	"jobsentry-engine/internal/store"
)

var ErrImportInProgress = errors.New("an import for this mailbox is already running")

type Scanner interface {
	Scan(ctx context.Context, creds email_scrape.Credentials, daysBack, limit int) ([]domain.EmailApplication, error)
}

type Store interface {
	FindByURL(ctx context.Context, url string) (*domain.Job, error)
	Create(ctx context.Context, j *domain.Job) error
}

type Analyzer interface {
	Analyze(ctx context.Context, url string, manual domain.ManualFields) (domain.AnalysisResult, error)
}

type Classifier interface {
	Classify(url string) string
}

// Alerter is told about newly created jobs whose analysis looks alarming.
type Alerter interface {
	JobFlagged(ctx context.Context, j domain.Job)
}

type Result struct {
	Imported int          `json:"imported"`
	Skipped  int          `json:"skipped"`
	Errors   int          `json:"errors"`
	Jobs     []domain.Job `json:"jobs"`
}

type Options struct {
	Scanner    Scanner
	Store      Store
	Classifier Classifier
	Analyzer   Analyzer         // optional
	Events     events.Publisher // optional
	Alerter    Alerter          // optional
	LockDir    string           // empty disables the mailbox lock
	ScanLimit  int
	Now        func() time.Time
}

type Importer struct {
	o Options
}

func New(o Options) *Importer {
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Importer{o: o}
}

// Import scans the mailbox and creates one job per new application URL.
// Applications are processed one at a time, so the first of several
// emails sharing a URL wins and the rest are skipped.
//
// For every application with at least one URL exactly one of
// imported, skipped or errors is incremented.
func (im *Importer) Import(ctx context.Context, creds email_scrape.Credentials, daysBack int, analyze bool) (Result, error) {
	creds, err := creds.Normalized()
	if err != nil {
		return Result{}, err
	}

	unlock, err := im.lock(creds.Username)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	apps, err := im.o.Scanner.Scan(ctx, creds, daysBack, im.o.ScanLimit)
	if err != nil {
		return Result{}, fmt.Errorf("scan mailbox: %w", err)
	}

	res := Result{Jobs: []domain.Job{}}
	for _, app := range apps {
		if len(app.URLs) == 0 {
			continue
		}
		im.importOne(ctx, creds.Username, app, analyze, &res)
	}

	log.Printf("[import] user=%s imported=%d skipped=%d errors=%d", creds.Username, res.Imported, res.Skipped, res.Errors)
	return res, nil
}

func (im *Importer) importOne(ctx context.Context, user string, app domain.EmailApplication, analyze bool, res *Result) {
	url := app.URLs[0]

	_, err := im.o.Store.FindByURL(ctx, url)
	switch {
	case err == nil:
		res.Skipped++
		metrics.ImportOutcomes.WithLabelValues("skipped").Inc()
		return
	case !errors.Is(err, store.ErrNotFound):
		log.Printf("[import] lookup %s: %v", url, err)
		res.Errors++
		metrics.ImportOutcomes.WithLabelValues("error").Inc()
		return
	}

	job := im.buildJob(user, url, app)

	if analyze && im.o.Analyzer != nil {
		manual := domain.ManualFields{Title: app.Title, Company: app.Company}
		a, err := im.o.Analyzer.Analyze(ctx, url, manual)
		if err != nil {
			log.Printf("[import] analysis of %s failed, importing without it: %v", url, err)
		} else {
			job.Analysis = &a
			if job.Title == domain.ImportedTitle && a.ExtractedTitle != "" {
				job.Title = a.ExtractedTitle
			}
			if job.Company == domain.ImportedCompany && a.ExtractedCompany != "" {
				job.Company = a.ExtractedCompany
			}
		}
	}

	if err := im.o.Store.Create(ctx, &job); err != nil {
		if errors.Is(err, store.ErrDuplicateURL) {
			// created by someone else since the lookup
			res.Skipped++
			metrics.ImportOutcomes.WithLabelValues("skipped").Inc()
			return
		}
		log.Printf("[import] create %s: %v", url, err)
		res.Errors++
		metrics.ImportOutcomes.WithLabelValues("error").Inc()
		return
	}

	res.Imported++
	res.Jobs = append(res.Jobs, job)
	metrics.ImportOutcomes.WithLabelValues("imported").Inc()

	if im.o.Events != nil {
		im.o.Events.Emit("", events.TypeJobImported, map[string]any{"id": job.ID, "url": job.URL})
	}
	if im.o.Alerter != nil && job.Analysis != nil && job.Analysis.Verdict.Alarming() {
		im.o.Alerter.JobFlagged(ctx, job)
	}
}

func (im *Importer) buildJob(user, url string, app domain.EmailApplication) domain.Job {
	title := app.Title
	if title == "" {
		title = domain.ImportedTitle
	}
	company := app.Company
	if company == "" {
		company = domain.ImportedCompany
	}
	status := app.Status
	if !status.Valid() {
		status = domain.StatusApplied
	}
	received := app.ReceivedDate
	if received.IsZero() {
		received = im.o.Now()
	}

	return domain.Job{
		Title:       title,
		Company:     company,
		URL:         url,
		Platform:    im.o.Classifier.Classify(url),
		Status:      status,
		AppliedDate: &received,
		UserEmail:   user,
		Source:      domain.SourceEmail,
		StatusHistory: []domain.StatusChange{{
			Status:    status,
			Note:      "Auto-imported from email: " + app.Subject,
			ChangedAt: im.o.Now(),
		}},
	}
}

// lock takes the per-mailbox lock file. The returned func releases it.
func (im *Importer) lock(user string) (func(), error) {
	if im.o.LockDir == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(im.o.LockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	path := LockPath(im.o.LockDir, user)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, ErrImportInProgress
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			log.Printf("[import] unlock %s: %v", path, err)
		}
	}, nil
}

// LockPath is the lock file guarding imports for user's mailbox.
func LockPath(dir, user string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(user))))
	return filepath.Join(dir, "import-"+hex.EncodeToString(sum[:8])+".lock")
}
