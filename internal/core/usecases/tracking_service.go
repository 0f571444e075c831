// Package usecases holds the application services of the tracker. Every
// method is family scoped: records belonging to another family are
// reported as not found.
package usecases

import (
	"time"

	"go.uber.org/zap"

	"nestling-tracker/internal/core/domain"
)

type ChildRepository interface {
	Save(child domain.Child) error
	FindByID(id string) (domain.Child, error)
	FindByFamilyID(familyID string) ([]domain.Child, error)
	Delete(id string) error
}

type EventRepository interface {
	Save(event domain.CareEvent) error
	FindByID(id string) (domain.CareEvent, error)
	FindByChildID(childID string, filter domain.EventFilter) ([]domain.CareEvent, int, error)
	Delete(id string) error
	DeleteByChildID(childID string) error
}

// TrackingService manages children and their care events.
type TrackingService struct {
	children ChildRepository
	events   EventRepository
}

func NewTrackingService(children ChildRepository, events EventRepository) *TrackingService {
	return &TrackingService{
		children: children,
		events:   events,
	}
}

func (s *TrackingService) CreateChild(familyID string, name string, birthDate time.Time) (domain.Child, error) {
	if familyID == "" {
		return domain.Child{}, domain.ErrInvalidFamilyID
	}
	if !domain.IsValidChildName(name) {
		return domain.Child{}, domain.ErrInvalidChildName
	}
	if !domain.IsValidBirthDate(birthDate) {
		return domain.Child{}, domain.ErrInvalidBirthDate
	}

	child := domain.NewChild(familyID, name, birthDate)
	if err := s.children.Save(child); err != nil {
		return domain.Child{}, err
	}

	zap.S().Debugf("Created child %s for family %s", child.ID, familyID)
	return child, nil
}

func (s *TrackingService) GetChild(familyID string, id string) (domain.Child, error) {
	child, err := s.children.FindByID(id)
	if err != nil {
		return domain.Child{}, err
	}

	if child.FamilyID != familyID {
		return domain.Child{}, domain.ErrChildNotFound // Don't reveal existence of children from other families
	}

	return child, nil
}

func (s *TrackingService) ListChildren(familyID string) ([]domain.Child, error) {
	return s.children.FindByFamilyID(familyID)
}

func (s *TrackingService) UpdateChild(familyID string, id string, name *string, birthDate *time.Time) (domain.Child, error) {
	child, err := s.GetChild(familyID, id)
	if err != nil {
		return domain.Child{}, err
	}

	if name != nil && !domain.IsValidChildName(*name) {
		return domain.Child{}, domain.ErrInvalidChildName
	}
	if birthDate != nil && !domain.IsValidBirthDate(*birthDate) {
		return domain.Child{}, domain.ErrInvalidBirthDate
	}

	updated := child.UpdateFields(name, birthDate)
	if err := s.children.Save(updated); err != nil {
		return domain.Child{}, err
	}

	return updated, nil
}

// DeleteChild removes the child and every care event recorded for it.
func (s *TrackingService) DeleteChild(familyID string, id string) error {
	if _, err := s.GetChild(familyID, id); err != nil {
		return err
	}

	if err := s.events.DeleteByChildID(id); err != nil {
		return err
	}

	return s.children.Delete(id)
}

// RecordEvent stores one care event for a child. Feeding events require a
// positive amount and a known unit, diaper events a diaper kind. Sleep
// events may stay open (no end time) while the child is still asleep.
func (s *TrackingService) RecordEvent(familyID string, childID string, eventType string, startedAt time.Time, endedAt *time.Time, amount *float64, unit string, diaperKind string, notes string) (domain.CareEvent, error) {
	if _, err := s.GetChild(familyID, childID); err != nil {
		return domain.CareEvent{}, err
	}

	if !domain.IsValidEventType(eventType) {
		return domain.CareEvent{}, domain.ErrInvalidEventType
	}

	now := time.Now()
	if startedAt.After(now) {
		return domain.CareEvent{}, domain.ErrFutureTimestamp
	}
	if endedAt != nil {
		if endedAt.After(now) {
			return domain.CareEvent{}, domain.ErrFutureTimestamp
		}
		if endedAt.Before(startedAt) {
			return domain.CareEvent{}, domain.ErrInvalidTimeRange
		}
	}

	event := domain.NewCareEvent(childID, domain.EventType(eventType), startedAt)

	switch event.Type {
	case domain.EventFeeding:
		if amount == nil || *amount <= 0 || !domain.IsValidFeedingUnit(unit) {
			return domain.CareEvent{}, domain.ErrInvalidAmount
		}
		event = event.WithFeeding(*amount, unit)
	case domain.EventDiaper:
		if !domain.IsValidDiaperKind(diaperKind) {
			return domain.CareEvent{}, domain.ErrInvalidDiaperKind
		}
		event = event.WithDiaperKind(domain.DiaperKind(diaperKind))
	}

	if endedAt != nil {
		event = event.WithEnded(*endedAt)
	}
	if notes != "" {
		event = event.WithNotes(notes)
	}

	if err := s.events.Save(event); err != nil {
		return domain.CareEvent{}, err
	}

	return event, nil
}

func (s *TrackingService) GetEvent(familyID string, childID string, id string) (domain.CareEvent, error) {
	if _, err := s.GetChild(familyID, childID); err != nil {
		return domain.CareEvent{}, err
	}

	event, err := s.events.FindByID(id)
	if err != nil {
		return domain.CareEvent{}, err
	}

	if event.ChildID != childID {
		return domain.CareEvent{}, domain.ErrEventNotFound // Don't reveal events of other children
	}

	return event, nil
}

// ListEvents returns a page of the child's events plus the total count
// matching the filter.
func (s *TrackingService) ListEvents(familyID string, childID string, filter domain.EventFilter) ([]domain.CareEvent, int, error) {
	if _, err := s.GetChild(familyID, childID); err != nil {
		return nil, 0, err
	}

	if filter.Type != "" && !domain.IsValidEventType(string(filter.Type)) {
		return nil, 0, domain.ErrInvalidEventType
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, domain.ErrInvalidTimeRange
	}

	return s.events.FindByChildID(childID, filter)
}

// EndEvent closes an open event, typically a sleep that the child woke up
// from.
func (s *TrackingService) EndEvent(familyID string, childID string, id string, endedAt time.Time) (domain.CareEvent, error) {
	event, err := s.GetEvent(familyID, childID, id)
	if err != nil {
		return domain.CareEvent{}, err
	}

	if event.EndedAt != nil {
		return domain.CareEvent{}, domain.ErrEventAlreadyEnded
	}
	if endedAt.After(time.Now()) {
		return domain.CareEvent{}, domain.ErrFutureTimestamp
	}
	if endedAt.Before(event.StartedAt) {
		return domain.CareEvent{}, domain.ErrInvalidTimeRange
	}

	ended := event.WithEnded(endedAt)
	if err := s.events.Save(ended); err != nil {
		return domain.CareEvent{}, err
	}

	return ended, nil
}

func (s *TrackingService) DeleteEvent(familyID string, childID string, id string) error {
	if _, err := s.GetEvent(familyID, childID, id); err != nil {
		return err
	}

	return s.events.Delete(id)
}
