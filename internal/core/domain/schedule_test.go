package domain

import (
	"testing"
)

func TestIsValidSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		expected bool
	}{
		{
			name:     "Valid predefined daily",
			schedule: string(ScheduleDaily),
			expected: true,
		},
		{
			name:     "Valid predefined weekly",
			schedule: string(ScheduleWeekly),
			expected: true,
		},
		{
			name:     "Valid predefined monthly",
			schedule: string(ScheduleMonthly),
			expected: true,
		},
		{
			name:     "Valid custom cron expression",
			schedule: "30 0 * * *", // Every day at 30 minutes past midnight (minute hour dom month dow)
			expected: true,
		},
		{
			name:     "Invalid 6-field cron expression (seconds not supported)",
			schedule: "0 0 12 * * *", // 6-field format should fail
			expected: false,
		},
		{
			name:     "Invalid cron expression",
			schedule: "invalid cron",
			expected: false,
		},
		{
			name:     "Empty schedule",
			schedule: "",
			expected: false,
		},
		{
			name:     "Interval shorthand should fail",
			schedule: "24h",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidSchedule(tt.schedule)
			if result != tt.expected {
				t.Errorf("IsValidSchedule(%q) = %v; expected %v", tt.schedule, result, tt.expected)
			}
		})
	}
}

func TestScheduleConstants(t *testing.T) {
	// Verify our predefined schedules are valid cron expressions
	schedules := []Schedule{
		ScheduleDaily,
		ScheduleWeekly,
		ScheduleMonthly,
	}

	for _, schedule := range schedules {
		if !IsValidSchedule(string(schedule)) {
			t.Errorf("Predefined schedule %q should be valid", schedule)
		}
	}
}

func TestNewExportSchedule(t *testing.T) {
	schedule := NewExportSchedule("family-123", "child-456", "testuser", FormatPDF, ScheduleWeekly, "")

	if schedule.ID == "" {
		t.Error("Schedule ID should not be empty")
	}

	if schedule.Timezone != "UTC" {
		t.Errorf("Expected timezone to default to UTC, got %s", schedule.Timezone)
	}

	if !schedule.Enabled {
		t.Error("New schedule should be enabled")
	}

	if schedule.LastRun != nil {
		t.Error("LastRun should be nil for new schedule")
	}

	if schedule.NextRunAt != nil {
		t.Error("NextRunAt should be nil for new schedule")
	}
}

func TestIsValidTimezone(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		expected bool
	}{
		{
			name:     "Empty defaults to UTC",
			timezone: "",
			expected: true,
		},
		{
			name:     "Valid IANA zone",
			timezone: "Europe/Amsterdam",
			expected: true,
		},
		{
			name:     "Valid UTC",
			timezone: "UTC",
			expected: true,
		},
		{
			name:     "Invalid zone",
			timezone: "Mars/Olympus_Mons",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidTimezone(tt.timezone)
			if result != tt.expected {
				t.Errorf("IsValidTimezone(%q) = %v; expected %v", tt.timezone, result, tt.expected)
			}
		})
	}
}
