package http

import (
	"time"

	"nestling-tracker/internal/core/domain"
)

// ChildResponse is the API response model for children.
type ChildResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BirthDate string    `json:"birth_date"` // YYYY-MM-DD
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToChildResponse converts a domain.Child to a ChildResponse DTO.
// FamilyID is excluded: the family is implied by the authenticated caller.
func ToChildResponse(child domain.Child) ChildResponse {
	return ChildResponse{
		ID:        child.ID,
		Name:      child.Name,
		BirthDate: child.BirthDate.Format("2006-01-02"),
		CreatedAt: child.CreatedAt,
		UpdatedAt: child.UpdatedAt,
	}
}

// ToChildResponseList converts a slice of domain.Child to DTOs
func ToChildResponseList(children []domain.Child) []ChildResponse {
	responses := make([]ChildResponse, len(children))
	for i, child := range children {
		responses[i] = ToChildResponse(child)
	}
	return responses
}

// EventResponse is the API response model for care events.
type EventResponse struct {
	ID         string     `json:"id"`
	ChildID    string     `json:"child_id"`
	Type       string     `json:"type"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Amount     *float64   `json:"amount,omitempty"`
	Unit       string     `json:"unit,omitempty"`
	DiaperKind string     `json:"diaper_kind,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ToEventResponse converts a domain.CareEvent to an EventResponse DTO
func ToEventResponse(event domain.CareEvent) EventResponse {
	return EventResponse{
		ID:         event.ID,
		ChildID:    event.ChildID,
		Type:       string(event.Type),
		StartedAt:  event.StartedAt,
		EndedAt:    event.EndedAt,
		Amount:     event.Amount,
		Unit:       event.Unit,
		DiaperKind: string(event.DiaperKind),
		Notes:      event.Notes,
		CreatedAt:  event.CreatedAt,
	}
}

// ToEventResponseList converts a slice of domain.CareEvent to DTOs
func ToEventResponseList(events []domain.CareEvent) []EventResponse {
	responses := make([]EventResponse, len(events))
	for i, event := range events {
		responses[i] = ToEventResponse(event)
	}
	return responses
}

// ExportResponse is the API response model for export jobs.
type ExportResponse struct {
	ID           string               `json:"id"`
	ChildID      string               `json:"child_id"`
	Format       string               `json:"format"`
	Status       string               `json:"status"`
	Progress     int                  `json:"progress"`
	Result       *domain.ExportResult `json:"result,omitempty"`
	ErrorMessage *string              `json:"error_message,omitempty"`
	Cancelled    bool                 `json:"cancelled,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
}

// ToExportResponse converts a domain.ExportJob to an ExportResponse DTO.
// The report service task ID is internal plumbing and stays out of the API.
func ToExportResponse(job domain.ExportJob) ExportResponse {
	return ExportResponse{
		ID:           job.ID,
		ChildID:      job.ChildID,
		Format:       string(job.Format),
		Status:       string(job.Status),
		Progress:     job.Progress,
		Result:       job.Result,
		ErrorMessage: job.ErrorMessage,
		Cancelled:    job.Cancelled,
		CreatedAt:    job.CreatedAt,
		CompletedAt:  job.CompletedAt,
	}
}

// ToExportResponseList converts a slice of domain.ExportJob to DTOs
func ToExportResponseList(jobs []domain.ExportJob) []ExportResponse {
	responses := make([]ExportResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = ToExportResponse(job)
	}
	return responses
}

// ScheduleResponse is the API response model for export schedules.
// Timestamps (LastRun, NextRunAt) are converted from UTC to the schedule's
// timezone.
type ScheduleResponse struct {
	ID        string     `json:"id"`
	ChildID   string     `json:"child_id"`
	Format    string     `json:"format"`
	Schedule  string     `json:"schedule"`
	Timezone  string     `json:"timezone"`
	Enabled   bool       `json:"enabled"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToScheduleResponse converts a domain.ExportSchedule to a DTO
func ToScheduleResponse(schedule domain.ExportSchedule) ScheduleResponse {
	lastRun := schedule.LastRun
	nextRunAt := schedule.NextRunAt

	if schedule.Timezone != "" {
		if loc, err := time.LoadLocation(schedule.Timezone); err == nil {
			if lastRun != nil {
				converted := lastRun.In(loc)
				lastRun = &converted
			}
			if nextRunAt != nil {
				converted := nextRunAt.In(loc)
				nextRunAt = &converted
			}
		}
	}

	return ScheduleResponse{
		ID:        schedule.ID,
		ChildID:   schedule.ChildID,
		Format:    string(schedule.Format),
		Schedule:  string(schedule.Schedule),
		Timezone:  schedule.Timezone,
		Enabled:   schedule.Enabled,
		LastRun:   lastRun,
		NextRunAt: nextRunAt,
		CreatedAt: schedule.CreatedAt,
	}
}

// ToScheduleResponseList converts a slice of domain.ExportSchedule to DTOs
func ToScheduleResponseList(schedules []domain.ExportSchedule) []ScheduleResponse {
	responses := make([]ScheduleResponse, len(schedules))
	for i, schedule := range schedules {
		responses[i] = ToScheduleResponse(schedule)
	}
	return responses
}
