package usecases

import (
	"time"

	"nestling-tracker/internal/core/domain"
)

const (
	defaultStatsDays = 7
	maxStatsDays     = 90
)

// StatsService aggregates a child's care events into per-day statistics
// for the trend views.
type StatsService struct {
	children ChildRepository
	events   EventRepository
}

func NewStatsService(children ChildRepository, events EventRepository) *StatsService {
	return &StatsService{
		children: children,
		events:   events,
	}
}

// DailyStats returns one entry per day over the trailing window, oldest
// day first. Days outside [1, 90] fall back to the 7-day default. Events
// are bucketed by their start time in UTC; sleep minutes count only
// sleeps that have ended.
func (s *StatsService) DailyStats(familyID string, childID string, days int) ([]domain.DailyStats, error) {
	child, err := s.children.FindByID(childID)
	if err != nil {
		return nil, err
	}
	if child.FamilyID != familyID {
		return nil, domain.ErrChildNotFound // Don't reveal existence of children from other families
	}

	if days <= 0 || days > maxStatsDays {
		days = defaultStatsDays
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	windowStart := today.AddDate(0, 0, -(days - 1))

	events, _, err := s.events.FindByChildID(childID, domain.EventFilter{From: &windowStart})
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*domain.DailyStats, days)
	stats := make([]domain.DailyStats, days)
	for i := 0; i < days; i++ {
		date := windowStart.AddDate(0, 0, i).Format("2006-01-02")
		stats[i] = domain.DailyStats{Date: date}
		byDay[date] = &stats[i]
	}

	for _, event := range events {
		day, ok := byDay[event.StartedAt.UTC().Format("2006-01-02")]
		if !ok {
			continue
		}

		switch event.Type {
		case domain.EventFeeding:
			day.FeedingCount++
			if event.Amount != nil {
				day.FeedingTotal += domain.AmountInMilliliters(*event.Amount, event.Unit)
			}
		case domain.EventDiaper:
			day.DiaperCount++
		case domain.EventSleep:
			day.SleepCount++
			day.SleepMinutes += int(event.Duration().Minutes())
		}
	}

	return stats, nil
}
