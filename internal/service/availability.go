package service

import (
	"context"
	"fmt"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

// AvailabilityService computes the slot grid for an employee and date.
// Slots are never stored; every call recomputes against the current
// reservations.
type AvailabilityService struct {
	repo   domain.Repository
	cfg    config.BookingConfig
	logger *zerolog.Logger
}

func NewAvailabilityService(repo domain.Repository, cfg config.BookingConfig, logger *zerolog.Logger) *AvailabilityService {
	if cfg.DayStart == "" {
		cfg.DayStart = models.DefaultDayStart
	}
	if cfg.DayEnd == "" {
		cfg.DayEnd = models.DefaultDayEnd
	}
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = models.DefaultSlotMinutes
	}
	return &AvailabilityService{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
	}
}

// Slots returns the candidate grid for (employee, date) with each slot
// marked available or taken. The candidate interval is the service
// duration; a slot is taken when it overlaps any non-cancelled
// reservation (half-open intervals). Dates in the past yield an empty
// grid.
func (s *AvailabilityService) Slots(ctx context.Context, employeeID, serviceID int64, date time.Time) ([]models.TimeSlot, error) {
	if dayUTC(date).Before(dayUTC(time.Now())) {
		return []models.TimeSlot{}, nil
	}

	duration := s.cfg.SlotMinutes
	if svc, ok := s.repo.GetServiceByID(serviceID); ok {
		duration = svc.DurationMinutes
	}

	dayStart, dayEnd, err := s.workingWindow(employeeID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetActiveReservations(ctx, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations for slot grid: %w", err)
	}

	var slots []models.TimeSlot
	for start := dayStart; start+duration <= dayEnd; start += s.cfg.SlotMinutes {
		slot := models.TimeSlot{
			Time:      fmt.Sprintf("%02d:%02d", start/60, start%60),
			Available: true,
		}
		for _, r := range existing {
			busyStart, err := models.ParseHHMM(r.Time)
			if err != nil {
				continue
			}
			if overlapsMinutes(start, duration, busyStart, r.DurationMinutes) {
				slot.Available = false
				break
			}
		}
		slots = append(slots, slot)
	}

	return slots, nil
}

// IsSlotFree reports whether a specific slot could still be booked. The
// definitive check happens inside the create transaction; this is the
// read-path preview.
func (s *AvailabilityService) IsSlotFree(ctx context.Context, employeeID, serviceID int64, date time.Time, hhmm string) (bool, error) {
	slots, err := s.Slots(ctx, employeeID, serviceID, date)
	if err != nil {
		return false, err
	}
	for _, slot := range slots {
		if slot.Time == hhmm {
			return slot.Available, nil
		}
	}
	return false, nil
}

// workingWindow resolves the grid bounds in minutes since midnight,
// preferring the employee's own hours over the store defaults.
func (s *AvailabilityService) workingWindow(employeeID int64) (int, int, error) {
	startStr, endStr := s.cfg.DayStart, s.cfg.DayEnd
	if emp, ok := s.repo.GetEmployeeByID(employeeID); ok && emp.WorkStart != "" && emp.WorkEnd != "" {
		startStr, endStr = emp.WorkStart, emp.WorkEnd
	}

	start, err := models.ParseHHMM(startStr)
	if err != nil {
		return 0, 0, err
	}
	end, err := models.ParseHHMM(endStr)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func overlapsMinutes(aStart, aDur, bStart, bDur int) bool {
	return aStart < bStart+bDur && bStart < aStart+aDur
}

// dayUTC normalizes to a UTC calendar date using the wall-clock
// year/month/day of t. Truncating to 24h would shift the date near
// midnight in zones ahead of UTC.
func dayUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
