package usecases

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"nestling-tracker/internal/core/domain"
)

type ScheduleRepository interface {
	Save(schedule domain.ExportSchedule) error
	FindByID(id string) (domain.ExportSchedule, error)
	FindByFamilyID(familyID string) ([]domain.ExportSchedule, error)
	FindEnabled() ([]domain.ExportSchedule, error)
	Delete(id string) error
}

// ScheduleService manages recurring export schedules. It owns the next-run
// bookkeeping the shell scheduler scans.
type ScheduleService struct {
	schedules ScheduleRepository
	children  ChildRepository
}

func NewScheduleService(schedules ScheduleRepository, children ChildRepository) *ScheduleService {
	return &ScheduleService{
		schedules: schedules,
		children:  children,
	}
}

func (s *ScheduleService) CreateSchedule(familyID string, childID string, username string, format string, schedule string, timezone string) (domain.ExportSchedule, error) {
	if familyID == "" {
		return domain.ExportSchedule{}, domain.ErrInvalidFamilyID
	}
	if !domain.IsValidExportFormat(format) {
		return domain.ExportSchedule{}, domain.ErrInvalidFormat
	}
	if !domain.IsValidSchedule(schedule) {
		return domain.ExportSchedule{}, domain.ErrInvalidSchedule
	}
	if !domain.IsValidTimezone(timezone) {
		return domain.ExportSchedule{}, domain.ErrInvalidTimezone
	}

	child, err := s.children.FindByID(childID)
	if err != nil {
		return domain.ExportSchedule{}, err
	}
	if child.FamilyID != familyID {
		return domain.ExportSchedule{}, domain.ErrChildNotFound // Don't reveal existence of children from other families
	}

	sched := domain.NewExportSchedule(familyID, childID, username, domain.ExportFormat(format), domain.Schedule(schedule), timezone)

	next, err := nextRunTime(sched, time.Now())
	if err != nil {
		return domain.ExportSchedule{}, err
	}
	sched = sched.WithNextRunAt(next)

	if err := s.schedules.Save(sched); err != nil {
		return domain.ExportSchedule{}, err
	}

	zap.S().Infof("Created export schedule %s for child %s (%s)", sched.ID, childID, schedule)
	return sched, nil
}

func (s *ScheduleService) GetSchedule(familyID string, id string) (domain.ExportSchedule, error) {
	sched, err := s.schedules.FindByID(id)
	if err != nil {
		return domain.ExportSchedule{}, err
	}

	if sched.FamilyID != familyID {
		return domain.ExportSchedule{}, domain.ErrScheduleNotFound // Don't reveal schedules of other families
	}

	return sched, nil
}

func (s *ScheduleService) ListSchedules(familyID string) ([]domain.ExportSchedule, error) {
	return s.schedules.FindByFamilyID(familyID)
}

// SetScheduleEnabled flips the schedule on or off. Re-enabling recomputes
// the next run so a long-disabled schedule does not fire immediately for
// every missed occurrence.
func (s *ScheduleService) SetScheduleEnabled(familyID string, id string, enabled bool) (domain.ExportSchedule, error) {
	sched, err := s.GetSchedule(familyID, id)
	if err != nil {
		return domain.ExportSchedule{}, err
	}

	updated := sched.WithEnabled(enabled)
	if enabled {
		next, err := nextRunTime(updated, time.Now())
		if err != nil {
			return domain.ExportSchedule{}, err
		}
		updated = updated.WithNextRunAt(next)
	}

	if err := s.schedules.Save(updated); err != nil {
		return domain.ExportSchedule{}, err
	}

	return updated, nil
}

func (s *ScheduleService) DeleteSchedule(familyID string, id string) error {
	if _, err := s.GetSchedule(familyID, id); err != nil {
		return err
	}

	return s.schedules.Delete(id)
}

// DueSchedules returns the enabled schedules whose next run is at or
// before now.
func (s *ScheduleService) DueSchedules(now time.Time) ([]domain.ExportSchedule, error) {
	enabled, err := s.schedules.FindEnabled()
	if err != nil {
		return nil, err
	}

	var due []domain.ExportSchedule
	for _, sched := range enabled {
		if sched.NextRunAt != nil && !sched.NextRunAt.After(now) {
			due = append(due, sched)
		}
	}
	return due, nil
}

// MarkRun records that the schedule fired at ranAt and advances its next
// run time.
func (s *ScheduleService) MarkRun(id string, ranAt time.Time) error {
	sched, err := s.schedules.FindByID(id)
	if err != nil {
		return err
	}

	next, err := nextRunTime(sched, ranAt)
	if err != nil {
		return err
	}

	return s.schedules.Save(sched.WithLastRun(ranAt.UTC()).WithNextRunAt(next))
}

// nextRunTime evaluates the cron expression in the schedule's timezone and
// returns the first firing after `after`, in UTC.
func nextRunTime(sched domain.ExportSchedule, after time.Time) (time.Time, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	expr, err := parser.Parse(string(sched.Schedule))
	if err != nil {
		return time.Time{}, domain.ErrInvalidSchedule
	}

	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil {
		return time.Time{}, domain.ErrInvalidTimezone
	}

	return expr.Next(after.In(loc)).UTC(), nil
}
