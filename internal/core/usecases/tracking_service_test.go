package usecases

import (
	"errors"
	"testing"
	"time"

	"nestling-tracker/internal/core/domain"
)

// Verify interface compliance
var _ ChildRepository = (*fakeChildRepo)(nil)
var _ EventRepository = (*fakeEventRepo)(nil)
var _ ScheduleRepository = (*fakeScheduleRepo)(nil)

type fakeChildRepo struct {
	children map[string]domain.Child
	saveErr  error
}

func newFakeChildRepo() *fakeChildRepo {
	return &fakeChildRepo{children: make(map[string]domain.Child)}
}

func (r *fakeChildRepo) Save(child domain.Child) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.children[child.ID] = child
	return nil
}

func (r *fakeChildRepo) FindByID(id string) (domain.Child, error) {
	child, ok := r.children[id]
	if !ok {
		return domain.Child{}, domain.ErrChildNotFound
	}
	return child, nil
}

func (r *fakeChildRepo) FindByFamilyID(familyID string) ([]domain.Child, error) {
	var out []domain.Child
	for _, c := range r.children {
		if c.FamilyID == familyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeChildRepo) Delete(id string) error {
	if _, ok := r.children[id]; !ok {
		return domain.ErrChildNotFound
	}
	delete(r.children, id)
	return nil
}

type fakeEventRepo struct {
	events map[string]domain.CareEvent
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]domain.CareEvent)}
}

func (r *fakeEventRepo) Save(event domain.CareEvent) error {
	r.events[event.ID] = event
	return nil
}

func (r *fakeEventRepo) FindByID(id string) (domain.CareEvent, error) {
	event, ok := r.events[id]
	if !ok {
		return domain.CareEvent{}, domain.ErrEventNotFound
	}
	return event, nil
}

func (r *fakeEventRepo) FindByChildID(childID string, filter domain.EventFilter) ([]domain.CareEvent, int, error) {
	var out []domain.CareEvent
	for _, e := range r.events {
		if e.ChildID != childID {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.From != nil && e.StartedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.StartedAt.After(*filter.To) {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (r *fakeEventRepo) Delete(id string) error {
	if _, ok := r.events[id]; !ok {
		return domain.ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) DeleteByChildID(childID string) error {
	for id, e := range r.events {
		if e.ChildID == childID {
			delete(r.events, id)
		}
	}
	return nil
}

type fakeScheduleRepo struct {
	schedules map[string]domain.ExportSchedule
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{schedules: make(map[string]domain.ExportSchedule)}
}

func (r *fakeScheduleRepo) Save(schedule domain.ExportSchedule) error {
	r.schedules[schedule.ID] = schedule
	return nil
}

func (r *fakeScheduleRepo) FindByID(id string) (domain.ExportSchedule, error) {
	sched, ok := r.schedules[id]
	if !ok {
		return domain.ExportSchedule{}, domain.ErrScheduleNotFound
	}
	return sched, nil
}

func (r *fakeScheduleRepo) FindByFamilyID(familyID string) ([]domain.ExportSchedule, error) {
	var out []domain.ExportSchedule
	for _, s := range r.schedules {
		if s.FamilyID == familyID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) FindEnabled() ([]domain.ExportSchedule, error) {
	var out []domain.ExportSchedule
	for _, s := range r.schedules {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) Delete(id string) error {
	if _, ok := r.schedules[id]; !ok {
		return domain.ErrScheduleNotFound
	}
	delete(r.schedules, id)
	return nil
}

func newTrackingService() (*TrackingService, *fakeChildRepo, *fakeEventRepo) {
	children := newFakeChildRepo()
	events := newFakeEventRepo()
	return NewTrackingService(children, events), children, events
}

func mustCreateChild(t *testing.T, svc *TrackingService, familyID string) domain.Child {
	t.Helper()
	child, err := svc.CreateChild(familyID, "Maja", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CreateChild failed: %v", err)
	}
	return child
}

func TestCreateChildValidation(t *testing.T) {
	svc, _, _ := newTrackingService()

	tests := []struct {
		name      string
		familyID  string
		childName string
		birthDate time.Time
		wantErr   error
	}{
		{
			name:      "valid child",
			familyID:  "fam-1",
			childName: "Maja",
			birthDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			wantErr:   nil,
		},
		{
			name:      "missing family id",
			familyID:  "",
			childName: "Maja",
			birthDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			wantErr:   domain.ErrInvalidFamilyID,
		},
		{
			name:      "blank name",
			familyID:  "fam-1",
			childName: "   ",
			birthDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			wantErr:   domain.ErrInvalidChildName,
		},
		{
			name:      "birth date in the future",
			familyID:  "fam-1",
			childName: "Maja",
			birthDate: time.Now().Add(48 * time.Hour),
			wantErr:   domain.ErrInvalidBirthDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateChild(tt.familyID, tt.childName, tt.birthDate)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetChildFamilyScoping(t *testing.T) {
	svc, _, _ := newTrackingService()
	child := mustCreateChild(t, svc, "fam-1")

	if _, err := svc.GetChild("fam-1", child.ID); err != nil {
		t.Errorf("Expected owner to see the child, got %v", err)
	}

	if _, err := svc.GetChild("fam-2", child.ID); !errors.Is(err, domain.ErrChildNotFound) {
		t.Errorf("Expected ErrChildNotFound for another family, got %v", err)
	}
}

func TestUpdateChild(t *testing.T) {
	svc, _, _ := newTrackingService()
	child := mustCreateChild(t, svc, "fam-1")

	newName := "Maja Lou"
	updated, err := svc.UpdateChild("fam-1", child.ID, &newName, nil)
	if err != nil {
		t.Fatalf("UpdateChild failed: %v", err)
	}
	if updated.Name != newName {
		t.Errorf("Expected name %q, got %q", newName, updated.Name)
	}
	if !updated.BirthDate.Equal(child.BirthDate) {
		t.Errorf("Expected birth date to be unchanged")
	}

	blank := " "
	if _, err := svc.UpdateChild("fam-1", child.ID, &blank, nil); !errors.Is(err, domain.ErrInvalidChildName) {
		t.Errorf("Expected ErrInvalidChildName, got %v", err)
	}
}

func TestDeleteChildRemovesEvents(t *testing.T) {
	svc, children, events := newTrackingService()
	child := mustCreateChild(t, svc, "fam-1")

	started := time.Now().Add(-time.Hour)
	if _, err := svc.RecordEvent("fam-1", child.ID, "diaper", started, nil, nil, "", "wet", ""); err != nil {
		t.Fatalf("RecordEvent failed: %v", err)
	}

	if err := svc.DeleteChild("fam-1", child.ID); err != nil {
		t.Fatalf("DeleteChild failed: %v", err)
	}

	if len(children.children) != 0 {
		t.Errorf("Expected no children left, got %d", len(children.children))
	}
	if len(events.events) != 0 {
		t.Errorf("Expected events to be cascade-deleted, got %d", len(events.events))
	}
}

func TestRecordEventValidation(t *testing.T) {
	svc, _, _ := newTrackingService()
	child := mustCreateChild(t, svc, "fam-1")

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	beforeStart := past.Add(-time.Minute)
	amount := 120.0
	negative := -10.0

	tests := []struct {
		name       string
		eventType  string
		startedAt  time.Time
		endedAt    *time.Time
		amount     *float64
		unit       string
		diaperKind string
		wantErr    error
	}{
		{
			name:      "valid feeding",
			eventType: "feeding",
			startedAt: past,
			amount:    &amount,
			unit:      "ml",
		},
		{
			name:       "valid diaper",
			eventType:  "diaper",
			startedAt:  past,
			diaperKind: "both",
		},
		{
			name:      "valid open sleep",
			eventType: "sleep",
			startedAt: past,
		},
		{
			name:      "unknown event type",
			eventType: "bath",
			startedAt: past,
			wantErr:   domain.ErrInvalidEventType,
		},
		{
			name:      "start in the future",
			eventType: "sleep",
			startedAt: future,
			wantErr:   domain.ErrFutureTimestamp,
		},
		{
			name:      "end before start",
			eventType: "sleep",
			startedAt: past,
			endedAt:   &beforeStart,
			wantErr:   domain.ErrInvalidTimeRange,
		},
		{
			name:      "feeding without amount",
			eventType: "feeding",
			startedAt: past,
			unit:      "ml",
			wantErr:   domain.ErrInvalidAmount,
		},
		{
			name:      "feeding with negative amount",
			eventType: "feeding",
			startedAt: past,
			amount:    &negative,
			unit:      "ml",
			wantErr:   domain.ErrInvalidAmount,
		},
		{
			name:      "feeding with unknown unit",
			eventType: "feeding",
			startedAt: past,
			amount:    &amount,
			unit:      "cups",
			wantErr:   domain.ErrInvalidAmount,
		},
		{
			name:       "diaper with unknown kind",
			eventType:  "diaper",
			startedAt:  past,
			diaperKind: "soaked",
			wantErr:    domain.ErrInvalidDiaperKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordEvent("fam-1", child.ID, tt.eventType, tt.startedAt, tt.endedAt, tt.amount, tt.unit, tt.diaperKind, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRecordEventForForeignChild(t *testing.T) {
	svc, _, _ := newTrackingService()
	child := mustCreateChild(t, svc, "fam-1")

	_, err := svc.RecordEvent("fam-2", child.ID, "sleep", time.Now().Add(-time.Hour), nil, nil, "", "", "")
	if !errors.Is(err, domain.ErrChildNotFound) {
		t.Errorf("Expected ErrChildNotFound, got %v", err)
	}
}

func TestEndEvent(t *testing.T) {
	svc, _, _ := newTrackingService()
	child := mustCreateChild(t, svc, "fam-1")

	started := time.Now().Add(-2 * time.Hour)
	event, err := svc.RecordEvent("fam-1", child.ID, "sleep", started, nil, nil, "", "", "")
	if err != nil {
		t.Fatalf("RecordEvent failed: %v", err)
	}

	endedAt := started.Add(90 * time.Minute)
	ended, err := svc.EndEvent("fam-1", child.ID, event.ID, endedAt)
	if err != nil {
		t.Fatalf("EndEvent failed: %v", err)
	}
	if ended.EndedAt == nil || !ended.EndedAt.Equal(endedAt.UTC()) {
		t.Errorf("Expected ended at %v, got %v", endedAt.UTC(), ended.EndedAt)
	}

	// Ending twice is an error
	if _, err := svc.EndEvent("fam-1", child.ID, event.ID, endedAt.Add(time.Minute)); !errors.Is(err, domain.ErrEventAlreadyEnded) {
		t.Errorf("Expected ErrEventAlreadyEnded, got %v", err)
	}
}

func TestListEventsValidatesFilter(t *testing.T) {
	svc, _, _ := newTrackingService()
	child := mustCreateChild(t, svc, "fam-1")

	if _, _, err := svc.ListEvents("fam-1", child.ID, domain.EventFilter{Type: "bath"}); !errors.Is(err, domain.ErrInvalidEventType) {
		t.Errorf("Expected ErrInvalidEventType, got %v", err)
	}

	from := time.Now()
	to := from.Add(-time.Hour)
	if _, _, err := svc.ListEvents("fam-1", child.ID, domain.EventFilter{From: &from, To: &to}); !errors.Is(err, domain.ErrInvalidTimeRange) {
		t.Errorf("Expected ErrInvalidTimeRange, got %v", err)
	}
}
