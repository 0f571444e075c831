package domain

import (
	"time"

	"github.com/google/uuid"
)

type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

type ExportStatus string

const (
	ExportPending    ExportStatus = "pending"
	ExportProcessing ExportStatus = "processing"
	ExportCompleted  ExportStatus = "completed"
	ExportFailed     ExportStatus = "failed"
)

// Terminal reports whether the status ends the lifecycle of an export.
func (s ExportStatus) Terminal() bool {
	return s == ExportCompleted || s == ExportFailed
}

// ExportResult describes a finished document on the report service.
type ExportResult struct {
	DownloadURL string    `json:"download_url"`
	Filename    string    `json:"filename"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// StatusReport is a single status response from the report service.
// Progress, Result and Error are only present when the service reports
// them.
type StatusReport struct {
	Status   ExportStatus  `json:"status"`
	Progress *int          `json:"progress,omitempty"`
	Result   *ExportResult `json:"result,omitempty"`
	Error    *string       `json:"error,omitempty"`
}

// ReportRequest describes the document a family asked the report service
// to render. From and To bound the exported time range when set; Sections
// picks the report sections and falls back to the service default when
// empty.
type ReportRequest struct {
	Name     string
	Format   ExportFormat
	ChildID  string
	From     *time.Time
	To       *time.Time
	Sections []string
}

type ExportJob struct {
	ID           string        `json:"id"`
	FamilyID     string        `json:"family_id"`
	ChildID      string        `json:"child_id"`
	Username     string        `json:"username"`
	Format       ExportFormat  `json:"format"`
	TaskID       string        `json:"task_id"`
	Status       ExportStatus  `json:"status"`
	Progress     int           `json:"progress"`
	Result       *ExportResult `json:"result,omitempty"`
	ErrorMessage *string       `json:"error_message,omitempty"`
	Cancelled    bool          `json:"cancelled,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

func NewExportJob(familyID string, childID string, username string, format ExportFormat, taskID string) ExportJob {
	return ExportJob{
		ID:        uuid.New().String(),
		FamilyID:  familyID,
		ChildID:   childID,
		Username:  username,
		Format:    format,
		TaskID:    taskID,
		Status:    ExportPending,
		Progress:  0,
		CreatedAt: time.Now().UTC(),
	}
}

func (e ExportJob) WithProgress(status ExportStatus, progress int) ExportJob {
	return ExportJob{
		ID:           e.ID,
		FamilyID:     e.FamilyID,
		ChildID:      e.ChildID,
		Username:     e.Username,
		Format:       e.Format,
		TaskID:       e.TaskID,
		Status:       status,
		Progress:     progress,
		Result:       e.Result,
		ErrorMessage: e.ErrorMessage,
		Cancelled:    e.Cancelled,
		CreatedAt:    e.CreatedAt,
		CompletedAt:  e.CompletedAt,
	}
}

func (e ExportJob) WithCompleted(result ExportResult) ExportJob {
	now := time.Now().UTC()
	return ExportJob{
		ID:           e.ID,
		FamilyID:     e.FamilyID,
		ChildID:      e.ChildID,
		Username:     e.Username,
		Format:       e.Format,
		TaskID:       e.TaskID,
		Status:       ExportCompleted,
		Progress:     100,
		Result:       &result,
		ErrorMessage: nil,
		Cancelled:    e.Cancelled,
		CreatedAt:    e.CreatedAt,
		CompletedAt:  &now,
	}
}

func (e ExportJob) WithFailed(errorMessage string) ExportJob {
	now := time.Now().UTC()
	return ExportJob{
		ID:           e.ID,
		FamilyID:     e.FamilyID,
		ChildID:      e.ChildID,
		Username:     e.Username,
		Format:       e.Format,
		TaskID:       e.TaskID,
		Status:       ExportFailed,
		Progress:     e.Progress,
		Result:       nil,
		ErrorMessage: &errorMessage,
		Cancelled:    e.Cancelled,
		CreatedAt:    e.CreatedAt,
		CompletedAt:  &now,
	}
}

func (e ExportJob) WithCancelled() ExportJob {
	return ExportJob{
		ID:           e.ID,
		FamilyID:     e.FamilyID,
		ChildID:      e.ChildID,
		Username:     e.Username,
		Format:       e.Format,
		TaskID:       e.TaskID,
		Status:       e.Status,
		Progress:     e.Progress,
		Result:       e.Result,
		ErrorMessage: e.ErrorMessage,
		Cancelled:    true,
		CreatedAt:    e.CreatedAt,
		CompletedAt:  e.CompletedAt,
	}
}

func IsValidExportFormat(f string) bool {
	switch ExportFormat(f) {
	case FormatCSV, FormatPDF:
		return true
	default:
		return false
	}
}

func IsValidExportStatus(s string) bool {
	switch ExportStatus(s) {
	case ExportPending, ExportProcessing, ExportCompleted, ExportFailed:
		return true
	default:
		return false
	}
}
