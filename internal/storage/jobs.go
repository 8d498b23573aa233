package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chartly/internal/domain"
)

// JobStore implements persistence for import jobs and their run logs.
type JobStore struct {
	db *DB
}

func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

// ── ImportJob CRUD ─────────────────────────────────────────

const jobColumns = `id, user_id, name, source_type, source_config, collection_name,
	 schema_json, drop_on_run, trigger_type, trigger_config, enabled,
	 last_run_at, last_status, last_error, created_at, updated_at`

func (s *JobStore) CreateJob(ctx context.Context, job *domain.ImportJob) error {
	now := time.Now()
	job.ID = uuid.New().String()
	job.CreatedAt = now
	job.UpdatedAt = now

	srcCfg, _ := json.Marshal(job.SourceCfg)

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO import_jobs (`+jobColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.UserID, job.Name, job.SourceType, string(srcCfg), job.CollectionName,
		job.SchemaJSON, job.DropOnRun, job.TriggerType, job.TriggerConfig, job.Enabled,
		job.LastRunAt, job.LastStatus, job.LastError, job.CreatedAt, job.UpdatedAt,
	)
	return err
}

func scanJob(scan func(...any) error) (*domain.ImportJob, error) {
	job := &domain.ImportJob{}
	var srcCfg string
	err := scan(
		&job.ID, &job.UserID, &job.Name, &job.SourceType, &srcCfg, &job.CollectionName,
		&job.SchemaJSON, &job.DropOnRun, &job.TriggerType, &job.TriggerConfig, &job.Enabled,
		&job.LastRunAt, &job.LastStatus, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(srcCfg), &job.SourceCfg)
	return job, nil
}

func (s *JobStore) GetJob(ctx context.Context, id string) (*domain.ImportJob, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM import_jobs WHERE id = ?`, id)
	job, err := scanJob(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("import job not found: %s", id)
	}
	return job, err
}

func (s *JobStore) UpdateJob(ctx context.Context, job *domain.ImportJob) error {
	job.UpdatedAt = time.Now()
	srcCfg, _ := json.Marshal(job.SourceCfg)

	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE import_jobs SET name=?, source_type=?, source_config=?, collection_name=?,
		 schema_json=?, drop_on_run=?, trigger_type=?, trigger_config=?, enabled=?, updated_at=?
		 WHERE id=?`,
		job.Name, job.SourceType, string(srcCfg), job.CollectionName,
		job.SchemaJSON, job.DropOnRun, job.TriggerType, job.TriggerConfig, job.Enabled,
		job.UpdatedAt, job.ID,
	)
	return err
}

func (s *JobStore) UpdateJobStatus(ctx context.Context, id, status, errMsg string) error {
	now := time.Now()
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE import_jobs SET last_run_at=?, last_status=?, last_error=?, updated_at=? WHERE id=?`,
		now, status, errMsg, now, id,
	)
	return err
}

func (s *JobStore) DeleteJob(ctx context.Context, id string) error {
	// Delete run logs first.
	if _, err := s.db.conn.ExecContext(ctx, `DELETE FROM import_run_logs WHERE job_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.conn.ExecContext(ctx, `DELETE FROM import_jobs WHERE id = ?`, id)
	return err
}

func (s *JobStore) listJobs(ctx context.Context, query string, args ...any) ([]domain.ImportJob, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.ImportJob
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (s *JobStore) ListJobs(ctx context.Context, userID string) ([]domain.ImportJob, error) {
	return s.listJobs(ctx,
		`SELECT `+jobColumns+` FROM import_jobs WHERE user_id = ? ORDER BY created_at ASC`, userID)
}

// ListTriggeredJobs returns enabled jobs with a schedule or file-watch
// trigger, across all users. The watcher layer consumes this.
func (s *JobStore) ListTriggeredJobs(ctx context.Context) ([]domain.ImportJob, error) {
	return s.listJobs(ctx,
		`SELECT `+jobColumns+` FROM import_jobs
		 WHERE enabled = 1 AND trigger_type IN ('schedule', 'file_watch')
		 ORDER BY created_at ASC`)
}

// ── Run Logs ───────────────────────────────────────────────

func (s *JobStore) CreateRunLog(ctx context.Context, log *domain.ImportRunLog) error {
	log.ID = uuid.New().String()
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO import_run_logs (id, job_id, started_at, finished_at, status, rows_read, rows_inserted, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.JobID, log.StartedAt, log.FinishedAt, log.Status, log.RowsRead, log.RowsInserted, log.Error,
	)
	return err
}

func (s *JobStore) ListRunLogs(ctx context.Context, jobID string, limit int) ([]domain.ImportRunLog, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, job_id, started_at, finished_at, status, rows_read, rows_inserted, error
		 FROM import_run_logs WHERE job_id = ? ORDER BY started_at DESC LIMIT ?`,
		jobID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.ImportRunLog
	for rows.Next() {
		var l domain.ImportRunLog
		if err := rows.Scan(&l.ID, &l.JobID, &l.StartedAt, &l.FinishedAt, &l.Status, &l.RowsRead, &l.RowsInserted, &l.Error); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
