package domain

import "errors"

var (
	ErrChildNotFound     = errors.New("child not found")
	ErrEventNotFound     = errors.New("care event not found")
	ErrExportNotFound    = errors.New("export not found")
	ErrExportNotReady    = errors.New("export has no document to download")
	ErrScheduleNotFound  = errors.New("export schedule not found")
	ErrInvalidEventType  = errors.New("invalid event type")
	ErrInvalidDiaperKind = errors.New("invalid diaper kind")
	ErrInvalidAmount     = errors.New("feeding amount and unit are required")
	ErrInvalidFormat     = errors.New("invalid export format")
	ErrInvalidSchedule   = errors.New("invalid schedule format")
	ErrInvalidTimezone   = errors.New("invalid timezone")
	ErrInvalidFamilyID   = errors.New("invalid or missing family_id")
	ErrInvalidChildName  = errors.New("child name must not be empty")
	ErrInvalidBirthDate  = errors.New("birth date must not be in the future")
	ErrInvalidTimeRange  = errors.New("time range end must be after start")
	ErrFutureTimestamp   = errors.New("timestamp must not be in the future")
	ErrEventAlreadyEnded = errors.New("care event has already ended")
)
