package ports

import "nestling-tracker/internal/core/domain"

// ScheduleService defines the contract for recurring export schedules.
type ScheduleService interface {
	// CreateSchedule registers a recurring export for a child of the family
	CreateSchedule(familyID, childID, username, format, schedule, timezone string) (domain.ExportSchedule, error)

	// GetSchedule retrieves one schedule of the family
	GetSchedule(familyID, id string) (domain.ExportSchedule, error)

	// ListSchedules retrieves all schedules of the family
	ListSchedules(familyID string) ([]domain.ExportSchedule, error)

	// SetScheduleEnabled enables or disables the schedule
	SetScheduleEnabled(familyID, id string, enabled bool) (domain.ExportSchedule, error)

	// DeleteSchedule removes the schedule
	DeleteSchedule(familyID, id string) error
}
