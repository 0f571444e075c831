package storage

import (
	"database/sql"

	"nestling-tracker/internal/core/domain"
)

type PostgresExportRepository struct {
	db *sql.DB
}

func NewPostgresExportRepository(db *sql.DB) *PostgresExportRepository {
	return &PostgresExportRepository{db: db}
}

func (r *PostgresExportRepository) Save(job domain.ExportJob) error {
	query := `
		INSERT INTO exports (id, family_id, child_id, username, format, task_id, status, progress,
			result_download_url, result_filename, result_created_at, result_expires_at,
			error_message, cancelled, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, progress = EXCLUDED.progress,
			result_download_url = EXCLUDED.result_download_url, result_filename = EXCLUDED.result_filename,
			result_created_at = EXCLUDED.result_created_at, result_expires_at = EXCLUDED.result_expires_at,
			error_message = EXCLUDED.error_message, cancelled = EXCLUDED.cancelled,
			completed_at = EXCLUDED.completed_at`

	var downloadURL, filename, resultCreatedAt, resultExpiresAt interface{}
	if job.Result != nil {
		downloadURL = job.Result.DownloadURL
		filename = job.Result.Filename
		resultCreatedAt = job.Result.CreatedAt
		resultExpiresAt = job.Result.ExpiresAt
	}

	_, err := r.db.Exec(query, job.ID, job.FamilyID, job.ChildID, job.Username,
		string(job.Format), job.TaskID, string(job.Status), job.Progress,
		downloadURL, filename, resultCreatedAt, resultExpiresAt,
		job.ErrorMessage, job.Cancelled, job.CreatedAt, job.CompletedAt)
	return err
}

func (r *PostgresExportRepository) FindByID(id string) (domain.ExportJob, error) {
	row := r.db.QueryRow(postgresExportSelect+` WHERE id = $1`, id)
	job, err := scanPostgresExport(row)
	if err == sql.ErrNoRows {
		return domain.ExportJob{}, domain.ErrExportNotFound
	}
	return job, err
}

func (r *PostgresExportRepository) FindByFamilyID(familyID string) ([]domain.ExportJob, error) {
	rows, err := r.db.Query(postgresExportSelect+` WHERE family_id = $1 ORDER BY created_at DESC`, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]domain.ExportJob, 0)
	for rows.Next() {
		job, err := scanPostgresExport(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

const postgresExportSelect = `SELECT id, family_id, child_id, username, format, task_id, status, progress,
	result_download_url, result_filename, result_created_at, result_expires_at,
	error_message, cancelled, created_at, completed_at FROM exports`

func scanPostgresExport(row rowScanner) (domain.ExportJob, error) {
	var job domain.ExportJob
	var format, status string
	var downloadURL, filename sql.NullString
	var resultCreatedAt, resultExpiresAt sql.NullTime

	err := row.Scan(&job.ID, &job.FamilyID, &job.ChildID, &job.Username, &format, &job.TaskID,
		&status, &job.Progress, &downloadURL, &filename, &resultCreatedAt, &resultExpiresAt,
		&job.ErrorMessage, &job.Cancelled, &job.CreatedAt, &job.CompletedAt)
	if err != nil {
		return domain.ExportJob{}, err
	}

	job.Format = domain.ExportFormat(format)
	job.Status = domain.ExportStatus(status)

	if downloadURL.Valid {
		job.Result = &domain.ExportResult{
			DownloadURL: downloadURL.String,
			Filename:    filename.String,
			CreatedAt:   resultCreatedAt.Time,
			ExpiresAt:   resultExpiresAt.Time,
		}
	}
	return job, nil
}

type PostgresScheduleRepository struct {
	db *sql.DB
}

func NewPostgresScheduleRepository(db *sql.DB) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{db: db}
}

func (r *PostgresScheduleRepository) Save(schedule domain.ExportSchedule) error {
	query := `
		INSERT INTO export_schedules (id, family_id, child_id, username, format, schedule, timezone,
			enabled, last_run, next_run_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			format = EXCLUDED.format, schedule = EXCLUDED.schedule, timezone = EXCLUDED.timezone,
			enabled = EXCLUDED.enabled, last_run = EXCLUDED.last_run, next_run_at = EXCLUDED.next_run_at`

	_, err := r.db.Exec(query, schedule.ID, schedule.FamilyID, schedule.ChildID, schedule.Username,
		string(schedule.Format), string(schedule.Schedule), schedule.Timezone,
		schedule.Enabled, schedule.LastRun, schedule.NextRunAt, schedule.CreatedAt)
	return err
}

func (r *PostgresScheduleRepository) FindByID(id string) (domain.ExportSchedule, error) {
	row := r.db.QueryRow(postgresScheduleSelect+` WHERE id = $1`, id)
	schedule, err := scanPostgresSchedule(row)
	if err == sql.ErrNoRows {
		return domain.ExportSchedule{}, domain.ErrScheduleNotFound
	}
	return schedule, err
}

func (r *PostgresScheduleRepository) FindByFamilyID(familyID string) ([]domain.ExportSchedule, error) {
	return r.querySchedules(postgresScheduleSelect+` WHERE family_id = $1 ORDER BY created_at`, familyID)
}

func (r *PostgresScheduleRepository) FindEnabled() ([]domain.ExportSchedule, error) {
	return r.querySchedules(postgresScheduleSelect + ` WHERE enabled`)
}

func (r *PostgresScheduleRepository) querySchedules(query string, args ...interface{}) ([]domain.ExportSchedule, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]domain.ExportSchedule, 0)
	for rows.Next() {
		schedule, err := scanPostgresSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

func (r *PostgresScheduleRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM export_schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

const postgresScheduleSelect = `SELECT id, family_id, child_id, username, format, schedule, timezone,
	enabled, last_run, next_run_at, created_at FROM export_schedules`

func scanPostgresSchedule(row rowScanner) (domain.ExportSchedule, error) {
	var schedule domain.ExportSchedule
	var format, scheduleExpr string

	err := row.Scan(&schedule.ID, &schedule.FamilyID, &schedule.ChildID, &schedule.Username,
		&format, &scheduleExpr, &schedule.Timezone, &schedule.Enabled,
		&schedule.LastRun, &schedule.NextRunAt, &schedule.CreatedAt)
	if err != nil {
		return domain.ExportSchedule{}, err
	}

	schedule.Format = domain.ExportFormat(format)
	schedule.Schedule = domain.Schedule(scheduleExpr)
	return schedule, nil
}
