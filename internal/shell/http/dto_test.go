package http

import (
	"testing"
	"time"

	"nestling-tracker/internal/core/domain"
)

func TestToChildResponse(t *testing.T) {
	child := domain.NewChild("fam-1", "Maja", time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC))

	resp := ToChildResponse(child)

	if resp.ID != child.ID {
		t.Errorf("Expected ID %s, got %s", child.ID, resp.ID)
	}
	if resp.BirthDate != "2025-11-03" {
		t.Errorf("Expected birth date 2025-11-03, got %s", resp.BirthDate)
	}
}

func TestToExportResponseHidesTaskID(t *testing.T) {
	job := domain.NewExportJob("fam-1", "child-1", "alice", domain.FormatCSV, "task-42")

	resp := ToExportResponse(job)

	if resp.ID != job.ID {
		t.Errorf("Expected ID %s, got %s", job.ID, resp.ID)
	}
	if resp.Format != "csv" {
		t.Errorf("Expected format csv, got %s", resp.Format)
	}
	if resp.Status != "pending" {
		t.Errorf("Expected status pending, got %s", resp.Status)
	}
}

func TestToScheduleResponseConvertsTimezone(t *testing.T) {
	schedule := domain.NewExportSchedule("fam-1", "child-1", "alice", domain.FormatPDF, domain.ScheduleDaily, "America/New_York")

	// 06:00 New York standard time stored as 11:00 UTC
	nextRun := time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC)
	schedule = schedule.WithNextRunAt(nextRun)

	resp := ToScheduleResponse(schedule)

	if resp.NextRunAt == nil {
		t.Fatal("Expected next run time to be set")
	}
	if resp.NextRunAt.Hour() != 6 {
		t.Errorf("Expected next run at 06:00 local time, got %02d:00", resp.NextRunAt.Hour())
	}
	if !resp.NextRunAt.Equal(nextRun) {
		t.Error("Timezone conversion must not change the instant")
	}
}

func TestToScheduleResponseInvalidTimezoneFallsBackToUTC(t *testing.T) {
	schedule := domain.ExportSchedule{
		ID:       "sched-1",
		FamilyID: "fam-1",
		Timezone: "Mars/Olympus",
	}
	lastRun := time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC)
	schedule.LastRun = &lastRun

	resp := ToScheduleResponse(schedule)

	if resp.LastRun == nil || !resp.LastRun.Equal(lastRun) {
		t.Errorf("Expected last run unchanged, got %v", resp.LastRun)
	}
}

func TestToEventResponseList(t *testing.T) {
	events := []domain.CareEvent{
		domain.NewCareEvent("child-1", domain.EventFeeding, time.Now().UTC()).WithFeeding(90, "ml"),
		domain.NewCareEvent("child-1", domain.EventDiaper, time.Now().UTC()).WithDiaperKind(domain.DiaperWet),
	}

	responses := ToEventResponseList(events)

	if len(responses) != 2 {
		t.Fatalf("Expected 2 responses, got %d", len(responses))
	}
	if responses[0].Type != "feeding" || responses[1].DiaperKind != "wet" {
		t.Errorf("Unexpected conversion: %+v", responses)
	}
}
