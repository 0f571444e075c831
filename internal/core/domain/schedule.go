package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

type Schedule string

const (
	ScheduleDaily   Schedule = "0 6 * * *"   // Every day at 06:00
	ScheduleWeekly  Schedule = "0 6 * * MON" // Every Monday at 06:00
	ScheduleMonthly Schedule = "0 6 1 * *"   // Every month on the 1st at 06:00
)

// ExportSchedule is a recurring export: on every firing of the cron
// expression a new export job is started for the child.
type ExportSchedule struct {
	ID        string       `json:"id"`
	FamilyID  string       `json:"family_id"`
	ChildID   string       `json:"child_id"`
	Username  string       `json:"username"`
	Format    ExportFormat `json:"format"`
	Schedule  Schedule     `json:"schedule"`
	Timezone  string       `json:"timezone"`
	Enabled   bool         `json:"enabled"`
	LastRun   *time.Time   `json:"last_run,omitempty"`
	NextRunAt *time.Time   `json:"next_run_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

func NewExportSchedule(familyID string, childID string, username string, format ExportFormat, schedule Schedule, timezone string) ExportSchedule {
	// Default to UTC if not specified
	if timezone == "" {
		timezone = "UTC"
	}

	return ExportSchedule{
		ID:        uuid.New().String(),
		FamilyID:  familyID,
		ChildID:   childID,
		Username:  username,
		Format:    format,
		Schedule:  schedule,
		Timezone:  timezone,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}
}

func (s ExportSchedule) WithEnabled(enabled bool) ExportSchedule {
	return ExportSchedule{
		ID:        s.ID,
		FamilyID:  s.FamilyID,
		ChildID:   s.ChildID,
		Username:  s.Username,
		Format:    s.Format,
		Schedule:  s.Schedule,
		Timezone:  s.Timezone,
		Enabled:   enabled,
		LastRun:   s.LastRun,
		NextRunAt: s.NextRunAt,
		CreatedAt: s.CreatedAt,
	}
}

func (s ExportSchedule) WithLastRun(lastRun time.Time) ExportSchedule {
	return ExportSchedule{
		ID:        s.ID,
		FamilyID:  s.FamilyID,
		ChildID:   s.ChildID,
		Username:  s.Username,
		Format:    s.Format,
		Schedule:  s.Schedule,
		Timezone:  s.Timezone,
		Enabled:   s.Enabled,
		LastRun:   &lastRun,
		NextRunAt: s.NextRunAt,
		CreatedAt: s.CreatedAt,
	}
}

func (s ExportSchedule) WithNextRunAt(nextRunAt time.Time) ExportSchedule {
	return ExportSchedule{
		ID:        s.ID,
		FamilyID:  s.FamilyID,
		ChildID:   s.ChildID,
		Username:  s.Username,
		Format:    s.Format,
		Schedule:  s.Schedule,
		Timezone:  s.Timezone,
		Enabled:   s.Enabled,
		LastRun:   s.LastRun,
		NextRunAt: &nextRunAt,
		CreatedAt: s.CreatedAt,
	}
}

func IsValidSchedule(s string) bool {
	// Check if it's one of our predefined schedules
	switch Schedule(s) {
	case ScheduleDaily, ScheduleWeekly, ScheduleMonthly:
		return true
	}

	// If not predefined, validate as a standard 5-field cron expression (minute hour dom month dow)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(s)
	return err == nil
}

func IsValidTimezone(tz string) bool {
	if tz == "" {
		return true // Empty string defaults to UTC
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}
