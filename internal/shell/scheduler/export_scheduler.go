package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"nestling-tracker/internal/core/domain"
	"nestling-tracker/internal/core/usecases"
)

// ExportStarter launches one export job. Implemented by export.Manager.
type ExportStarter interface {
	StartExport(ctx context.Context, familyID, username string, req domain.ReportRequest) (domain.ExportJob, error)
}

// ExportScheduler scans for due export schedules on an interval and starts
// an export for each one through the manager. A schedule that fires is
// advanced to its next run time whether the export started or not, so a
// persistently failing schedule cannot fire in a tight loop.
type ExportScheduler struct {
	schedules     *usecases.ScheduleService
	starter       ExportStarter
	checkInterval time.Duration

	now func() time.Time // swappable for tests
}

// NewExportScheduler creates a scheduler scanning every checkInterval.
func NewExportScheduler(schedules *usecases.ScheduleService, starter ExportStarter, checkInterval time.Duration) *ExportScheduler {
	return &ExportScheduler{
		schedules:     schedules,
		starter:       starter,
		checkInterval: checkInterval,
		now:           time.Now,
	}
}

// Start begins the scan loop and blocks until the context is cancelled.
func (s *ExportScheduler) Start(ctx context.Context) {
	zap.S().Infow("Export scheduler started", "check_interval", s.checkInterval)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.S().Info("Export scheduler stopped")
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// runDue fires every schedule that is due at the time of the scan.
func (s *ExportScheduler) runDue(ctx context.Context) {
	now := s.now()

	due, err := s.schedules.DueSchedules(now)
	if err != nil {
		zap.S().Errorw("Failed to scan for due schedules", "error", err)
		return
	}

	for _, sched := range due {
		s.fire(ctx, sched, now)
	}
}

func (s *ExportScheduler) fire(ctx context.Context, sched domain.ExportSchedule, now time.Time) {
	// Advance first: a failed start must not retrigger on the next scan.
	if err := s.schedules.MarkRun(sched.ID, now); err != nil {
		zap.S().Errorw("Failed to advance schedule", "schedule_id", sched.ID, "error", err)
		return
	}

	job, err := s.starter.StartExport(ctx, sched.FamilyID, sched.Username, domain.ReportRequest{
		Name:    scheduledExportName(sched, now),
		Format:  sched.Format,
		ChildID: sched.ChildID,
	})
	if err != nil {
		zap.S().Errorw("Failed to start scheduled export",
			"schedule_id", sched.ID, "child_id", sched.ChildID, "error", err)
		return
	}

	zap.S().Infow("Scheduled export started",
		"schedule_id", sched.ID, "export_id", job.ID, "task_id", job.TaskID)
}

func scheduledExportName(sched domain.ExportSchedule, now time.Time) string {
	return "Scheduled " + string(sched.Format) + " export " + now.UTC().Format("2006-01-02")
}
