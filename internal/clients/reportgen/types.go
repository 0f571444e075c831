package reportgen

import (
	"time"

	"nestling-tracker/internal/core/domain"
)

// CreateReportRequest describes the document the report service should
// render.
type CreateReportRequest struct {
	Name     string              `json:"name"`
	Format   domain.ExportFormat `json:"format"`
	ChildID  string              `json:"child_id"`
	From     *time.Time          `json:"from,omitempty"`
	To       *time.Time          `json:"to,omitempty"`
	Sections []string            `json:"sections,omitempty"`
}

// CreateReportResponse is returned when a render task is accepted.
type CreateReportResponse struct {
	TaskID string              `json:"task_id"`
	Status domain.ExportStatus `json:"status"`
}

// ErrorResponse represents an error from the report service API
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DefaultSections are rendered when the caller does not narrow the report.
var DefaultSections = []string{"feeding", "diaper", "sleep", "stats"}
