// Package storage provides the persistence backends of the tracker:
// in-memory maps for tests and demos, SQLite for single-node deployments
// and Postgres for everything else.
package storage

import (
	"sort"
	"sync"

	"nestling-tracker/internal/core/domain"
)

type MemoryChildRepository struct {
	children map[string]domain.Child
	mu       sync.RWMutex
}

func NewMemoryChildRepository() *MemoryChildRepository {
	return &MemoryChildRepository{
		children: make(map[string]domain.Child),
	}
}

func (r *MemoryChildRepository) Save(child domain.Child) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.children[child.ID] = child
	return nil
}

func (r *MemoryChildRepository) FindByID(id string) (domain.Child, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	child, exists := r.children[id]
	if !exists {
		return domain.Child{}, domain.ErrChildNotFound
	}

	return child, nil
}

func (r *MemoryChildRepository) FindByFamilyID(familyID string) ([]domain.Child, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	children := make([]domain.Child, 0)
	for _, child := range r.children {
		if child.FamilyID == familyID {
			children = append(children, child)
		}
	}

	sort.Slice(children, func(i, j int) bool {
		return children[i].CreatedAt.Before(children[j].CreatedAt)
	})

	return children, nil
}

func (r *MemoryChildRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.children[id]; !exists {
		return domain.ErrChildNotFound
	}

	delete(r.children, id)
	return nil
}

type MemoryEventRepository struct {
	events map[string]domain.CareEvent
	mu     sync.RWMutex
}

func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{
		events: make(map[string]domain.CareEvent),
	}
}

func (r *MemoryEventRepository) Save(event domain.CareEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[event.ID] = event
	return nil
}

func (r *MemoryEventRepository) FindByID(id string) (domain.CareEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, exists := r.events[id]
	if !exists {
		return domain.CareEvent{}, domain.ErrEventNotFound
	}

	return event, nil
}

// FindByChildID returns the filtered page, newest events first, together
// with the total number of events matching the filter.
func (r *MemoryEventRepository) FindByChildID(childID string, filter domain.EventFilter) ([]domain.CareEvent, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]domain.CareEvent, 0)
	for _, event := range r.events {
		if event.ChildID != childID {
			continue
		}
		if filter.Type != "" && event.Type != filter.Type {
			continue
		}
		if filter.From != nil && event.StartedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && event.StartedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, event)
	}

	sortEventsNewestFirst(matched)

	total := len(matched)
	return paginateEvents(matched, filter.Offset, filter.Limit), total, nil
}

func (r *MemoryEventRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.events[id]; !exists {
		return domain.ErrEventNotFound
	}

	delete(r.events, id)
	return nil
}

func (r *MemoryEventRepository) DeleteByChildID(childID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, event := range r.events {
		if event.ChildID == childID {
			delete(r.events, id)
		}
	}
	return nil
}

// sortEventsNewestFirst orders newest first, ties broken by ID so pagination
// is stable.
func sortEventsNewestFirst(events []domain.CareEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartedAt.Equal(events[j].StartedAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartedAt.After(events[j].StartedAt)
	})
}

func paginateEvents(events []domain.CareEvent, offset, limit int) []domain.CareEvent {
	if offset >= len(events) {
		return []domain.CareEvent{}
	}
	if offset > 0 {
		events = events[offset:]
	}
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	return events
}

type MemoryExportRepository struct {
	exports map[string]domain.ExportJob
	mu      sync.RWMutex
}

func NewMemoryExportRepository() *MemoryExportRepository {
	return &MemoryExportRepository{
		exports: make(map[string]domain.ExportJob),
	}
}

func (r *MemoryExportRepository) Save(job domain.ExportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.exports[job.ID] = job
	return nil
}

func (r *MemoryExportRepository) FindByID(id string) (domain.ExportJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, exists := r.exports[id]
	if !exists {
		return domain.ExportJob{}, domain.ErrExportNotFound
	}

	return job, nil
}

func (r *MemoryExportRepository) FindByFamilyID(familyID string) ([]domain.ExportJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]domain.ExportJob, 0)
	for _, job := range r.exports {
		if job.FamilyID == familyID {
			jobs = append(jobs, job)
		}
	}

	// Newest exports first
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	return jobs, nil
}

type MemoryScheduleRepository struct {
	schedules map[string]domain.ExportSchedule
	mu        sync.RWMutex
}

func NewMemoryScheduleRepository() *MemoryScheduleRepository {
	return &MemoryScheduleRepository{
		schedules: make(map[string]domain.ExportSchedule),
	}
}

func (r *MemoryScheduleRepository) Save(schedule domain.ExportSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.schedules[schedule.ID] = schedule
	return nil
}

func (r *MemoryScheduleRepository) FindByID(id string) (domain.ExportSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schedule, exists := r.schedules[id]
	if !exists {
		return domain.ExportSchedule{}, domain.ErrScheduleNotFound
	}

	return schedule, nil
}

func (r *MemoryScheduleRepository) FindByFamilyID(familyID string) ([]domain.ExportSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schedules := make([]domain.ExportSchedule, 0)
	for _, schedule := range r.schedules {
		if schedule.FamilyID == familyID {
			schedules = append(schedules, schedule)
		}
	}

	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].CreatedAt.Before(schedules[j].CreatedAt)
	})

	return schedules, nil
}

func (r *MemoryScheduleRepository) FindEnabled() ([]domain.ExportSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schedules := make([]domain.ExportSchedule, 0)
	for _, schedule := range r.schedules {
		if schedule.Enabled {
			schedules = append(schedules, schedule)
		}
	}
	return schedules, nil
}

func (r *MemoryScheduleRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schedules[id]; !exists {
		return domain.ErrScheduleNotFound
	}

	delete(r.schedules, id)
	return nil
}
