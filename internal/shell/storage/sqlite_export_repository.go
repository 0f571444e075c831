package storage

import (
	"database/sql"

	"nestling-tracker/internal/core/domain"
)

type SQLiteExportRepository struct {
	db *sql.DB
}

func NewSQLiteExportRepository(db *sql.DB) *SQLiteExportRepository {
	return &SQLiteExportRepository{db: db}
}

func (r *SQLiteExportRepository) Save(job domain.ExportJob) error {
	query := `
		INSERT INTO exports (id, family_id, child_id, username, format, task_id, status, progress,
			result_download_url, result_filename, result_created_at, result_expires_at,
			error_message, cancelled, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status, progress = excluded.progress,
			result_download_url = excluded.result_download_url, result_filename = excluded.result_filename,
			result_created_at = excluded.result_created_at, result_expires_at = excluded.result_expires_at,
			error_message = excluded.error_message, cancelled = excluded.cancelled,
			completed_at = excluded.completed_at`

	var downloadURL, filename, resultCreatedAt, resultExpiresAt interface{}
	if job.Result != nil {
		downloadURL = job.Result.DownloadURL
		filename = job.Result.Filename
		resultCreatedAt = formatTime(job.Result.CreatedAt)
		resultExpiresAt = formatTime(job.Result.ExpiresAt)
	}

	var errorMessage interface{}
	if job.ErrorMessage != nil {
		errorMessage = *job.ErrorMessage
	}

	_, err := r.db.Exec(query, job.ID, job.FamilyID, job.ChildID, job.Username,
		string(job.Format), job.TaskID, string(job.Status), job.Progress,
		downloadURL, filename, resultCreatedAt, resultExpiresAt,
		errorMessage, job.Cancelled, formatTime(job.CreatedAt), formatTimePtr(job.CompletedAt))
	return err
}

func (r *SQLiteExportRepository) FindByID(id string) (domain.ExportJob, error) {
	row := r.db.QueryRow(exportSelect+` WHERE id = ?`, id)
	return scanExport(row)
}

func (r *SQLiteExportRepository) FindByFamilyID(familyID string) ([]domain.ExportJob, error) {
	rows, err := r.db.Query(exportSelect+` WHERE family_id = ? ORDER BY created_at DESC`, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]domain.ExportJob, 0)
	for rows.Next() {
		job, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

const exportSelect = `SELECT id, family_id, child_id, username, format, task_id, status, progress,
	result_download_url, result_filename, result_created_at, result_expires_at,
	error_message, cancelled, created_at, completed_at FROM exports`

func scanExport(row rowScanner) (domain.ExportJob, error) {
	var job domain.ExportJob
	var format, status, createdAt string
	var downloadURL, filename, resultCreatedAt, resultExpiresAt, errorMessage, completedAt sql.NullString

	err := row.Scan(&job.ID, &job.FamilyID, &job.ChildID, &job.Username, &format, &job.TaskID,
		&status, &job.Progress, &downloadURL, &filename, &resultCreatedAt, &resultExpiresAt,
		&errorMessage, &job.Cancelled, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return domain.ExportJob{}, domain.ErrExportNotFound
	}
	if err != nil {
		return domain.ExportJob{}, err
	}

	job.Format = domain.ExportFormat(format)
	job.Status = domain.ExportStatus(status)
	job.CreatedAt = parseTime(createdAt)
	job.CompletedAt = parseTimePtr(completedAt)

	if downloadURL.Valid {
		job.Result = &domain.ExportResult{
			DownloadURL: downloadURL.String,
			Filename:    filename.String,
		}
		if resultCreatedAt.Valid {
			job.Result.CreatedAt = parseTime(resultCreatedAt.String)
		}
		if resultExpiresAt.Valid {
			job.Result.ExpiresAt = parseTime(resultExpiresAt.String)
		}
	}
	if errorMessage.Valid {
		job.ErrorMessage = &errorMessage.String
	}
	return job, nil
}

type SQLiteScheduleRepository struct {
	db *sql.DB
}

func NewSQLiteScheduleRepository(db *sql.DB) *SQLiteScheduleRepository {
	return &SQLiteScheduleRepository{db: db}
}

func (r *SQLiteScheduleRepository) Save(schedule domain.ExportSchedule) error {
	query := `
		INSERT INTO export_schedules (id, family_id, child_id, username, format, schedule, timezone,
			enabled, last_run, next_run_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			format = excluded.format, schedule = excluded.schedule, timezone = excluded.timezone,
			enabled = excluded.enabled, last_run = excluded.last_run, next_run_at = excluded.next_run_at`

	_, err := r.db.Exec(query, schedule.ID, schedule.FamilyID, schedule.ChildID, schedule.Username,
		string(schedule.Format), string(schedule.Schedule), schedule.Timezone,
		schedule.Enabled, formatTimePtr(schedule.LastRun), formatTimePtr(schedule.NextRunAt),
		formatTime(schedule.CreatedAt))
	return err
}

func (r *SQLiteScheduleRepository) FindByID(id string) (domain.ExportSchedule, error) {
	row := r.db.QueryRow(scheduleSelect+` WHERE id = ?`, id)
	return scanSchedule(row)
}

func (r *SQLiteScheduleRepository) FindByFamilyID(familyID string) ([]domain.ExportSchedule, error) {
	return r.querySchedules(scheduleSelect+` WHERE family_id = ? ORDER BY created_at`, familyID)
}

func (r *SQLiteScheduleRepository) FindEnabled() ([]domain.ExportSchedule, error) {
	return r.querySchedules(scheduleSelect + ` WHERE enabled = 1`)
}

func (r *SQLiteScheduleRepository) querySchedules(query string, args ...interface{}) ([]domain.ExportSchedule, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]domain.ExportSchedule, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

func (r *SQLiteScheduleRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM export_schedules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

const scheduleSelect = `SELECT id, family_id, child_id, username, format, schedule, timezone,
	enabled, last_run, next_run_at, created_at FROM export_schedules`

func scanSchedule(row rowScanner) (domain.ExportSchedule, error) {
	var schedule domain.ExportSchedule
	var format, scheduleExpr, createdAt string
	var lastRun, nextRunAt sql.NullString

	err := row.Scan(&schedule.ID, &schedule.FamilyID, &schedule.ChildID, &schedule.Username,
		&format, &scheduleExpr, &schedule.Timezone, &schedule.Enabled, &lastRun, &nextRunAt, &createdAt)
	if err == sql.ErrNoRows {
		return domain.ExportSchedule{}, domain.ErrScheduleNotFound
	}
	if err != nil {
		return domain.ExportSchedule{}, err
	}

	schedule.Format = domain.ExportFormat(format)
	schedule.Schedule = domain.Schedule(scheduleExpr)
	schedule.LastRun = parseTimePtr(lastRun)
	schedule.NextRunAt = parseTimePtr(nextRunAt)
	schedule.CreatedAt = parseTime(createdAt)
	return schedule, nil
}
