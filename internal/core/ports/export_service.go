package ports

import (
	"context"

	"nestling-tracker/internal/core/domain"
	"nestling-tracker/internal/export"
)

// ExportService defines the contract for asynchronous document exports.
// Implemented by export.Manager.
type ExportService interface {
	// StartExport creates a render task on the report service and begins
	// polling it. The returned job is in pending state.
	StartExport(ctx context.Context, familyID, username string, req domain.ReportRequest) (domain.ExportJob, error)

	// GetExport returns the export record, live poller state merged in
	GetExport(id, familyID string) (domain.ExportJob, error)

	// ListExports returns the family's export records
	ListExports(familyID string) ([]domain.ExportJob, error)

	// CancelExport silently stops polling for the export
	CancelExport(id, familyID string) error

	// WatchExport streams state snapshots until the terminal one
	WatchExport(id, familyID string) (<-chan export.State, error)

	// DownloadExport fetches the finished document into the local spool
	// and returns the stored path
	DownloadExport(ctx context.Context, id, familyID string) (string, error)
}
