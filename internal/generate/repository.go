package generate

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	ListPendingJobs(ctx context.Context) ([]*Job, error)
	UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error
	CompleteJob(ctx context.Context, id, sourceHandle string, duration float64, clipID string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateJob(ctx context.Context, j *Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO generation_jobs (id, prompt, kind, status, error, source_handle, duration, clip_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.Prompt, j.Kind, j.Status, nullString(j.Error), nullString(j.SourceHandle),
		j.Duration, nullString(j.ClipID),
		j.CreatedAt.Format(time.RFC3339), j.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, prompt, kind, status, error, source_handle, duration, clip_id, created_at, updated_at
		FROM generation_jobs WHERE id = ?
	`, id)
	return scanJob(row)
}

func scanJob(row *sql.Row) (*Job, error) {
	var j Job
	var errMsg, sourceHandle, clipID sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.Prompt, &j.Kind, &j.Status, &errMsg, &sourceHandle, &j.Duration, &clipID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	j.Error = errMsg.String
	j.SourceHandle = sourceHandle.String
	j.ClipID = clipID.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, prompt, kind, status, error, source_handle, duration, clip_id, created_at, updated_at
		FROM generation_jobs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

func (r *SQLiteRepository) ListPendingJobs(ctx context.Context) ([]*Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, prompt, kind, status, error, source_handle, duration, clip_id, created_at, updated_at
		FROM generation_jobs WHERE status = 'pending' ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		var j Job
		var errMsg, sourceHandle, clipID sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&j.ID, &j.Prompt, &j.Kind, &j.Status, &errMsg, &sourceHandle, &j.Duration, &clipID, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		j.Error = errMsg.String
		j.SourceHandle = sourceHandle.String
		j.ClipID = clipID.String
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE generation_jobs SET status = ?, error = ?, updated_at = datetime('now') WHERE id = ?
	`, status, nullString(errorMsg), id)
	return err
}

func (r *SQLiteRepository) CompleteJob(ctx context.Context, id, sourceHandle string, duration float64, clipID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE generation_jobs
		SET status = ?, error = NULL, source_handle = ?, duration = ?, clip_id = ?, updated_at = datetime('now')
		WHERE id = ?
	`, StatusCompleted, sourceHandle, duration, clipID, id)
	return err
}

// MarkInterruptedJobs fails anything still marked running, used at boot.
func (r *SQLiteRepository) MarkInterruptedJobs(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE generation_jobs SET status = 'failed', error = 'interrupted by restart', updated_at = datetime('now')
		WHERE status = 'running'
	`)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
