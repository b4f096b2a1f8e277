package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobsentry-engine/internal/domain"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS jobs (
  id BIGSERIAL PRIMARY KEY,
  title TEXT NOT NULL,
  company TEXT NOT NULL,
  url TEXT NOT NULL UNIQUE,
  platform TEXT NOT NULL DEFAULT 'Other',
  status TEXT NOT NULL DEFAULT 'Saved',
  salary TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  job_type TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  applied_date TIMESTAMPTZ,
  follow_up_date TIMESTAMPTZ,
  recruiter_name TEXT NOT NULL DEFAULT '',
  recruiter_email TEXT NOT NULL DEFAULT '',
  user_email TEXT NOT NULL DEFAULT '',
  verdict TEXT NOT NULL DEFAULT '',
  risk_score INTEGER NOT NULL DEFAULT 0,
  analysis JSONB,
  status_history JSONB NOT NULL DEFAULT '[]',
  source TEXT NOT NULL DEFAULT 'manual',
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
CREATE INDEX IF NOT EXISTS idx_jobs_source ON jobs(source);
`

// PostgresStore is the multi-user backend, selected with DATABASE_URL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPGJob(r rowScanner) (*domain.Job, error) {
	var (
		j                 domain.Job
		status, source    string
		analysis, history []byte
	)
	if err := r.Scan(
		&j.ID, &j.Title, &j.Company, &j.URL, &j.Platform, &status,
		&j.Salary, &j.Location, &j.JobType, &j.Description, &j.Notes,
		&j.AppliedDate, &j.FollowUpDate, &j.RecruiterName, &j.RecruiterEmail, &j.UserEmail,
		&analysis, &history, &source, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	j.Status = domain.Status(status)
	j.Source = domain.Source(source)
	if err := decodeJSONColumns(&j, analysis, history); err != nil {
		return nil, err
	}
	return &j, nil
}

func isPGUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) FindByURL(ctx context.Context, url string) (*domain.Job, error) {
	j, err := scanPGJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE url = $1 LIMIT 1`, url))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job by url: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*domain.Job, error) {
	j, err := scanPGJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) Create(ctx context.Context, j *domain.Job) error {
	now := time.Now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now

	analysis, history, verdict, risk, err := jsonColumns(j)
	if err != nil {
		return err
	}

	err = s.pool.QueryRow(ctx, `
INSERT INTO jobs (title, company, url, platform, status, salary, location, job_type,
  description, notes, applied_date, follow_up_date, recruiter_name, recruiter_email,
  user_email, verdict, risk_score, analysis, status_history, source, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18::jsonb, $19::jsonb, $20, $21, $22)
RETURNING id`,
		j.Title, j.Company, j.URL, j.Platform, string(j.Status), j.Salary, j.Location, j.JobType,
		j.Description, j.Notes, j.AppliedDate, j.FollowUpDate, j.RecruiterName, j.RecruiterEmail,
		j.UserEmail, verdict, risk, analysis, history, string(j.Source), j.CreatedAt, j.UpdatedAt,
	).Scan(&j.ID)
	if isPGUnique(err) {
		return ErrDuplicateURL
	}
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, j *domain.Job) error {
	j.UpdatedAt = time.Now().UTC()

	analysis, history, verdict, risk, err := jsonColumns(j)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
UPDATE jobs SET title = $1, company = $2, url = $3, platform = $4, status = $5, salary = $6,
  location = $7, job_type = $8, description = $9, notes = $10, applied_date = $11, follow_up_date = $12,
  recruiter_name = $13, recruiter_email = $14, user_email = $15, verdict = $16, risk_score = $17,
  analysis = $18::jsonb, status_history = $19::jsonb, source = $20, updated_at = $21
WHERE id = $22`,
		j.Title, j.Company, j.URL, j.Platform, string(j.Status), j.Salary,
		j.Location, j.JobType, j.Description, j.Notes, j.AppliedDate, j.FollowUpDate,
		j.RecruiterName, j.RecruiterEmail, j.UserEmail, verdict, risk,
		analysis, history, string(j.Source), j.UpdatedAt,
		j.ID,
	)
	if isPGUnique(err) {
		return ErrDuplicateURL
	}
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f JobFilter) ([]domain.Job, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	if f.Platform != "" {
		where = append(where, "platform = "+arg(f.Platform))
	}
	if f.Verdict != "" {
		where = append(where, "verdict = "+arg(strings.ToUpper(f.Verdict)))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		p := arg("%" + q + "%")
		where = append(where, "(title ILIKE "+p+" OR company ILIKE "+p+")")
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + sortClause(f.Sort)
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := []domain.Job{}
	for rows.Next() {
		j, err := scanPGJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) CountBySource(ctx context.Context, src domain.Source) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE source = $1`, string(src)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	jobs, err := s.List(ctx, JobFilter{})
	if err != nil {
		return Stats{}, err
	}
	return computeStats(jobs), nil
}
