// Package ports defines the service contracts the HTTP shell consumes.
// The usecases package and the export manager provide the implementations.
package ports

import (
	"time"

	"nestling-tracker/internal/core/domain"
)

// TrackingService defines the contract for child and care event
// management. Every method is scoped to the caller's family: records of
// other families are reported as not found.
type TrackingService interface {
	// CreateChild registers a child in the family
	CreateChild(familyID, name string, birthDate time.Time) (domain.Child, error)

	// GetChild retrieves one child of the family
	GetChild(familyID, id string) (domain.Child, error)

	// ListChildren retrieves all children of the family
	ListChildren(familyID string) ([]domain.Child, error)

	// UpdateChild applies the non-nil fields to the child
	UpdateChild(familyID, id string, name *string, birthDate *time.Time) (domain.Child, error)

	// DeleteChild removes the child and all its care events
	DeleteChild(familyID, id string) error

	// RecordEvent stores one care event for a child of the family
	RecordEvent(familyID, childID, eventType string, startedAt time.Time, endedAt *time.Time, amount *float64, unit, diaperKind, notes string) (domain.CareEvent, error)

	// GetEvent retrieves one care event of the child
	GetEvent(familyID, childID, id string) (domain.CareEvent, error)

	// ListEvents returns a page of the child's events and the total count
	// matching the filter
	ListEvents(familyID, childID string, filter domain.EventFilter) ([]domain.CareEvent, int, error)

	// EndEvent closes an open event, typically an ongoing sleep
	EndEvent(familyID, childID, id string, endedAt time.Time) (domain.CareEvent, error)

	// DeleteEvent removes one care event of the child
	DeleteEvent(familyID, childID, id string) error
}

// StatsService computes daily aggregates for a child's care events.
type StatsService interface {
	// DailyStats returns one entry per day over the trailing window of
	// `days` days, most recent day last
	DailyStats(familyID, childID string, days int) ([]domain.DailyStats, error)
}
