package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventFeeding EventType = "feeding"
	EventDiaper  EventType = "diaper"
	EventSleep   EventType = "sleep"
)

type DiaperKind string

const (
	DiaperWet   DiaperKind = "wet"
	DiaperDirty DiaperKind = "dirty"
	DiaperBoth  DiaperKind = "both"
)

type CareEvent struct {
	ID         string     `json:"id"`
	ChildID    string     `json:"child_id"`
	Type       EventType  `json:"type"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Amount     *float64   `json:"amount,omitempty"`
	Unit       string     `json:"unit,omitempty"`
	DiaperKind DiaperKind `json:"diaper_kind,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func NewCareEvent(childID string, eventType EventType, startedAt time.Time) CareEvent {
	return CareEvent{
		ID:        uuid.New().String(),
		ChildID:   childID,
		Type:      eventType,
		StartedAt: startedAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
}

func (e CareEvent) WithEnded(endedAt time.Time) CareEvent {
	ended := endedAt.UTC()
	return CareEvent{
		ID:         e.ID,
		ChildID:    e.ChildID,
		Type:       e.Type,
		StartedAt:  e.StartedAt,
		EndedAt:    &ended,
		Amount:     e.Amount,
		Unit:       e.Unit,
		DiaperKind: e.DiaperKind,
		Notes:      e.Notes,
		CreatedAt:  e.CreatedAt,
	}
}

func (e CareEvent) WithFeeding(amount float64, unit string) CareEvent {
	return CareEvent{
		ID:         e.ID,
		ChildID:    e.ChildID,
		Type:       e.Type,
		StartedAt:  e.StartedAt,
		EndedAt:    e.EndedAt,
		Amount:     &amount,
		Unit:       unit,
		DiaperKind: e.DiaperKind,
		Notes:      e.Notes,
		CreatedAt:  e.CreatedAt,
	}
}

func (e CareEvent) WithDiaperKind(kind DiaperKind) CareEvent {
	return CareEvent{
		ID:         e.ID,
		ChildID:    e.ChildID,
		Type:       e.Type,
		StartedAt:  e.StartedAt,
		EndedAt:    e.EndedAt,
		Amount:     e.Amount,
		Unit:       e.Unit,
		DiaperKind: kind,
		Notes:      e.Notes,
		CreatedAt:  e.CreatedAt,
	}
}

func (e CareEvent) WithNotes(notes string) CareEvent {
	return CareEvent{
		ID:         e.ID,
		ChildID:    e.ChildID,
		Type:       e.Type,
		StartedAt:  e.StartedAt,
		EndedAt:    e.EndedAt,
		Amount:     e.Amount,
		Unit:       e.Unit,
		DiaperKind: e.DiaperKind,
		Notes:      notes,
		CreatedAt:  e.CreatedAt,
	}
}

// Duration returns the elapsed time between start and end for events that
// have ended. Ongoing events report zero.
func (e CareEvent) Duration() time.Duration {
	if e.EndedAt == nil {
		return 0
	}
	return e.EndedAt.Sub(e.StartedAt)
}

// EventFilter narrows an event listing. Zero fields are not applied;
// Limit 0 means no limit.
type EventFilter struct {
	Type   EventType
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

func IsValidEventType(t string) bool {
	switch EventType(t) {
	case EventFeeding, EventDiaper, EventSleep:
		return true
	default:
		return false
	}
}

func IsValidDiaperKind(k string) bool {
	switch DiaperKind(k) {
	case DiaperWet, DiaperDirty, DiaperBoth:
		return true
	default:
		return false
	}
}

func IsValidFeedingUnit(u string) bool {
	switch u {
	case "ml", "oz":
		return true
	default:
		return false
	}
}
