package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobsentry-engine/internal/domain"
)

const jobColumns = `id, title, company, url, platform, status, salary, location, job_type,
description, notes, applied_date, follow_up_date, recruiter_name, recruiter_email,
user_email, analysis, status_history, source, created_at, updated_at`

// rowScanner is satisfied by *sql.Row, *sql.Rows and pgx rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// jsonColumns returns the analysis, history, verdict and risk values stored
// alongside a job.
func jsonColumns(j *domain.Job) (analysis *string, history string, verdict string, risk int, err error) {
	if j.StatusHistory == nil {
		j.StatusHistory = []domain.StatusChange{}
	}
	hb, err := json.Marshal(j.StatusHistory)
	if err != nil {
		return nil, "", "", 0, fmt.Errorf("encode status history: %w", err)
	}
	if j.Analysis != nil {
		ab, err := json.Marshal(j.Analysis)
		if err != nil {
			return nil, "", "", 0, fmt.Errorf("encode analysis: %w", err)
		}
		s := string(ab)
		analysis = &s
		verdict = string(j.Analysis.Verdict)
		risk = j.Analysis.RiskScore
	}
	return analysis, string(hb), verdict, risk, nil
}

func decodeJSONColumns(j *domain.Job, analysis []byte, history []byte) error {
	if len(analysis) > 0 {
		var a domain.AnalysisResult
		if err := json.Unmarshal(analysis, &a); err != nil {
			return fmt.Errorf("decode analysis: %w", err)
		}
		j.Analysis = &a
	}
	j.StatusHistory = []domain.StatusChange{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &j.StatusHistory); err != nil {
			return fmt.Errorf("decode status history: %w", err)
		}
	}
	return nil
}

// Fixed-width so text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func fmtTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := fmtTime(*t)
	return &s
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func scanSQLiteJob(r rowScanner) (*domain.Job, error) {
	var (
		j                    domain.Job
		status, source       string
		applied, followUp    sql.NullString
		analysis             sql.NullString
		history              string
		createdAt, updatedAt string
	)
	if err := r.Scan(
		&j.ID, &j.Title, &j.Company, &j.URL, &j.Platform, &status,
		&j.Salary, &j.Location, &j.JobType, &j.Description, &j.Notes,
		&applied, &followUp, &j.RecruiterName, &j.RecruiterEmail, &j.UserEmail,
		&analysis, &history, &source, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	j.Status = domain.Status(status)
	j.Source = domain.Source(source)
	j.AppliedDate = parseTimePtr(applied)
	j.FollowUpDate = parseTimePtr(followUp)
	j.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	j.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)

	var ab []byte
	if analysis.Valid {
		ab = []byte(analysis.String)
	}
	if err := decodeJSONColumns(&j, ab, []byte(history)); err != nil {
		return nil, err
	}
	return &j, nil
}

func isSQLiteUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) FindByURL(ctx context.Context, url string) (*domain.Job, error) {
	row := s.Pool.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE url = ? LIMIT 1;`, url)
	j, err := scanSQLiteJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job by url: %w", err)
	}
	return j, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*domain.Job, error) {
	row := s.Pool.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?;`, id)
	j, err := scanSQLiteJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// Create fills in ID and timestamps on success.
func (s *SQLiteStore) Create(ctx context.Context, j *domain.Job) error {
	now := time.Now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now

	analysis, history, verdict, risk, err := jsonColumns(j)
	if err != nil {
		return err
	}

	res, err := s.Pool.ExecContext(ctx, `
INSERT INTO jobs (title, company, url, platform, status, salary, location, job_type,
  description, notes, applied_date, follow_up_date, recruiter_name, recruiter_email,
  user_email, verdict, risk_score, analysis, status_history, source, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		j.Title, j.Company, j.URL, j.Platform, string(j.Status), j.Salary, j.Location, j.JobType,
		j.Description, j.Notes, fmtTimePtr(j.AppliedDate), fmtTimePtr(j.FollowUpDate), j.RecruiterName, j.RecruiterEmail,
		j.UserEmail, verdict, risk, analysis, history, string(j.Source), fmtTime(j.CreatedAt), fmtTime(j.UpdatedAt),
	)
	if isSQLiteUnique(err) {
		return ErrDuplicateURL
	}
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	j.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, j *domain.Job) error {
	j.UpdatedAt = time.Now().UTC()

	analysis, history, verdict, risk, err := jsonColumns(j)
	if err != nil {
		return err
	}

	res, err := s.Pool.ExecContext(ctx, `
UPDATE jobs SET title = ?, company = ?, url = ?, platform = ?, status = ?, salary = ?,
  location = ?, job_type = ?, description = ?, notes = ?, applied_date = ?, follow_up_date = ?,
  recruiter_name = ?, recruiter_email = ?, user_email = ?, verdict = ?, risk_score = ?,
  analysis = ?, status_history = ?, source = ?, updated_at = ?
WHERE id = ?;`,
		j.Title, j.Company, j.URL, j.Platform, string(j.Status), j.Salary,
		j.Location, j.JobType, j.Description, j.Notes, fmtTimePtr(j.AppliedDate), fmtTimePtr(j.FollowUpDate),
		j.RecruiterName, j.RecruiterEmail, j.UserEmail, verdict, risk,
		analysis, history, string(j.Source), fmtTime(j.UpdatedAt),
		j.ID,
	)
	if isSQLiteUnique(err) {
		return ErrDuplicateURL
	}
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.Pool.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, f JobFilter) ([]domain.Job, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Platform != "" {
		where = append(where, "platform = ?")
		args = append(args, f.Platform)
	}
	if f.Verdict != "" {
		where = append(where, "verdict = ?")
		args = append(args, strings.ToUpper(f.Verdict))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		// LIKE is case-insensitive for ASCII in sqlite
		where = append(where, "(title LIKE ? OR company LIKE ?)")
		args = append(args, "%"+q+"%", "%"+q+"%")
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + sortClause(f.Sort)
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.Pool.QueryContext(ctx, query+";", args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := []domain.Job{}
	for rows.Next() {
		j, err := scanSQLiteJob(rows)
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

func (s *SQLiteStore) CountBySource(ctx context.Context, src domain.Source) (int, error) {
	var n int
	if err := s.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE source = ?;`, string(src)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	jobs, err := s.List(ctx, JobFilter{})
	if err != nil {
		return Stats{}, err
	}
	return computeStats(jobs), nil
}
