package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"jobsentry-engine/internal/config"
	"jobsentry-engine/internal/domain"
)

var (
	ErrNotFound     = errors.New("job not found")
	ErrDuplicateURL = errors.New("a job with this url already exists")
)

// JobStore is implemented by the SQLite and Postgres backends.
type JobStore interface {
	FindByURL(ctx context.Context, url string) (*domain.Job, error)
	Create(ctx context.Context, j *domain.Job) error
	Get(ctx context.Context, id int64) (*domain.Job, error)
	List(ctx context.Context, f JobFilter) ([]domain.Job, error)
	Update(ctx context.Context, j *domain.Job) error
	Delete(ctx context.Context, id int64) error
	CountBySource(ctx context.Context, src domain.Source) (int, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

type JobFilter struct {
	Status   string
	Platform string
	Verdict  string
	Search   string // substring of title or company
	Sort     string // newest | oldest | updated | company | risk
	Limit    int
}

// sortClause whitelists sort keys; unknown keys fall back to newest.
func sortClause(key string) string {
	s := map[string]string{
		"newest":  "created_at DESC, id DESC",
		"oldest":  "created_at ASC, id ASC",
		"updated": "updated_at DESC, id DESC",
		"company": "company ASC, id ASC",
		"risk":    "risk_score DESC, id DESC",
	}[key]
	if s == "" {
		s = "created_at DESC, id DESC"
	}
	return s
}

// Open picks the backend named in cfg. SQLite files live under DataDir.
func Open(ctx context.Context, cfg config.Config) (JobStore, error) {
	switch strings.ToLower(cfg.Store.Driver) {
	case "", "sqlite":
		path := cfg.Store.DSN
		if path == "" {
			path = filepath.Join(cfg.App.DataDir, "jobsentry.db")
		}
		return OpenSQLite(path)
	case "postgres":
		return OpenPostgres(ctx, cfg.Store.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type Stats struct {
	Total          int            `json:"total"`
	Applied        int            `json:"applied"`
	Interviews     int            `json:"interviews"`
	Offers         int            `json:"offers"`
	ResponseRate   int            `json:"responseRate"`
	AvgRiskScore   int            `json:"avgRiskScore"`
	ByStatus       map[string]int `json:"byStatus"`
	ByPlatform     map[string]int `json:"byPlatform"`
	ByVerdict      map[string]int `json:"byVerdict"`
	ByMonth        []MonthCount   `json:"byMonth"`
	RecentActivity []domain.Job   `json:"recentActivity"`
}

const (
	statsMonths = 12
	statsRecent = 5
)

// computeStats aggregates in Go for both backends.
func computeStats(jobs []domain.Job) Stats {
	st := Stats{
		Total:          len(jobs),
		ByStatus:       map[string]int{},
		ByPlatform:     map[string]int{},
		ByVerdict:      map[string]int{},
		ByMonth:        []MonthCount{},
		RecentActivity: []domain.Job{},
	}

	months := map[string]int{}
	riskSum, riskN := 0, 0
	for _, j := range jobs {
		st.ByStatus[string(j.Status)]++
		st.ByPlatform[j.Platform]++
		months[j.CreatedAt.UTC().Format("2006-01")]++
		if j.Analysis != nil {
			st.ByVerdict[string(j.Analysis.Verdict)]++
			if j.Analysis.RiskScore > 0 {
				riskSum += j.Analysis.RiskScore
				riskN++
			}
		}
	}

	st.Interviews = st.ByStatus[string(domain.StatusInterview)]
	st.Offers = st.ByStatus[string(domain.StatusOffer)]
	st.Applied = st.Total - st.ByStatus[string(domain.StatusSaved)]
	if st.Applied > 0 {
		st.ResponseRate = roundDiv((st.Interviews+st.Offers)*100, st.Applied)
	}
	if riskN > 0 {
		st.AvgRiskScore = roundDiv(riskSum, riskN)
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > statsMonths {
		keys = keys[len(keys)-statsMonths:]
	}
	for _, k := range keys {
		st.ByMonth = append(st.ByMonth, MonthCount{Month: k, Count: months[k]})
	}

	recent := append([]domain.Job(nil), jobs...)
	sort.SliceStable(recent, func(a, b int) bool {
		return recent[a].UpdatedAt.After(recent[b].UpdatedAt)
	})
	if len(recent) > statsRecent {
		recent = recent[:statsRecent]
	}
	st.RecentActivity = append(st.RecentActivity, recent...)
	return st
}

func roundDiv(a, b int) int {
	return (2*a + b) / (2 * b)
}
