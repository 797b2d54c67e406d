package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidTransition is returned for lifecycle events not allowed
	// from the reservation's current status.
	ErrInvalidTransition = errors.New("invalid reservation status transition")

	// ErrNotElapsed is returned when completion is requested before the
	// scheduled time has passed.
	ErrNotElapsed = errors.New("reservation has not taken place yet")
)

// ReservationService owns the reservation lifecycle: pending, confirmed,
// cancelled, completed. Every transition goes through the repository's
// versioned writes; nothing is mutated locally on failure.
type ReservationService struct {
	repo       domain.Repository
	eventBus   domain.EventPublisher
	syncWorker domain.SyncWorker
	cfg        config.BookingConfig
	logger     *zerolog.Logger
}

func NewReservationService(repo domain.Repository, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, cfg config.BookingConfig, logger *zerolog.Logger) *ReservationService {
	if cfg.BookingWindowDays <= 0 {
		cfg.BookingWindowDays = models.DefaultBookingWindowDays
	}
	return &ReservationService{
		repo:       repo,
		eventBus:   eventBus,
		syncWorker: syncWorker,
		cfg:        cfg,
		logger:     logger,
	}
}

// ValidateDate rejects past dates and dates beyond the booking window.
// An employee may narrow the window further.
func (s *ReservationService) ValidateDate(date time.Time, employeeID int64) error {
	if date.Before(time.Now().AddDate(0, 0, -1)) {
		return database.ErrPastDate
	}

	windowDays := s.cfg.BookingWindowDays
	if emp, ok := s.repo.GetEmployeeByID(employeeID); ok && emp.AcceptsBookingsWithinDays > 0 && emp.AcceptsBookingsWithinDays < windowDays {
		windowDays = emp.AcceptsBookingsWithinDays
	}
	if date.After(time.Now().AddDate(0, 0, windowDays)) {
		return database.ErrDateTooFar
	}
	return nil
}

// Create validates the selection, resolves catalog names and writes the
// reservation inside the conflict-checking transaction. ErrSlotTaken
// surfaces unchanged for the caller to re-render the grid.
func (s *ReservationService) Create(ctx context.Context, session models.SessionContext, clientName string, serviceID, employeeID int64, date time.Time, hhmm string) (*models.Reservation, error) {
	if err := s.ValidateDate(date, employeeID); err != nil {
		return nil, err
	}
	if _, err := models.ParseHHMM(hhmm); err != nil {
		return nil, err
	}

	svc, ok := s.repo.GetServiceByID(serviceID)
	if !ok {
		return nil, fmt.Errorf("%w: service %d", ErrCatalogUnavailable, serviceID)
	}
	emp, ok := s.repo.GetEmployeeByID(employeeID)
	if !ok {
		return nil, fmt.Errorf("%w: employee %d", ErrCatalogUnavailable, employeeID)
	}

	reservation := &models.Reservation{
		ClientID:        session.ClientID,
		ClientName:      clientName,
		EmployeeID:      emp.ID,
		EmployeeName:    emp.FullName,
		ServiceID:       svc.ID,
		ServiceName:     svc.Name,
		StoreID:         session.StoreID,
		Date:            date,
		Time:            hhmm,
		DurationMinutes: svc.DurationMinutes,
		Status:          models.StatusPending,
	}

	if err := s.repo.CreateReservationWithLock(ctx, reservation); err != nil {
		return nil, err
	}

	s.publishEvent(events.EventReservationCreated, reservation)
	s.enqueueSync(ctx, reservation, "upsert")

	return reservation, nil
}

// Confirm moves a pending reservation to confirmed.
func (s *ReservationService) Confirm(ctx context.Context, id, version int64) error {
	return s.transition(ctx, id, version, models.StatusConfirmed, events.EventReservationConfirmed, nil)
}

// Cancel releases the slot. Only the owning client may cancel, only from
// pending or confirmed, and only before the scheduled time.
func (s *ReservationService) Cancel(ctx context.Context, session models.SessionContext, id, version int64) error {
	guard := func(r *models.Reservation) error {
		if r.ClientID != session.ClientID {
			return database.ErrNotFound
		}
		if r.Elapsed(time.Now()) {
			return fmt.Errorf("%w: %s reservation already took place", ErrInvalidTransition, r.Status)
		}
		return nil
	}
	return s.transition(ctx, id, version, models.StatusCancelled, events.EventReservationCancelled, guard)
}

// Complete marks a confirmed reservation as having taken place. Allowed
// only after the scheduled time has elapsed.
func (s *ReservationService) Complete(ctx context.Context, id, version int64) error {
	guard := func(r *models.Reservation) error {
		if !r.Elapsed(time.Now()) {
			return ErrNotElapsed
		}
		return nil
	}
	return s.transition(ctx, id, version, models.StatusCompleted, events.EventReservationCompleted, guard)
}

// Reschedule moves a pending or confirmed reservation to a new slot,
// only before its scheduled time. The old slot is released and the new
// one claimed in a single transaction; on any failure the reservation
// keeps its current slot. A rescheduled reservation returns to pending.
func (s *ReservationService) Reschedule(ctx context.Context, session models.SessionContext, id, version int64, newDate time.Time, newTime string) error {
	current, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if current.ClientID != session.ClientID {
		return database.ErrNotFound
	}
	if !allowedTransition(current.Status, models.StatusPending) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, models.StatusPending)
	}
	if current.Elapsed(time.Now()) {
		return fmt.Errorf("%w: %s reservation already took place", ErrInvalidTransition, current.Status)
	}
	if err := s.ValidateDate(newDate, current.EmployeeID); err != nil {
		return err
	}
	if _, err := models.ParseHHMM(newTime); err != nil {
		return err
	}

	if err := s.repo.RescheduleReservationWithLock(ctx, id, version, newDate, newTime); err != nil {
		return err
	}

	if updated, err := s.repo.GetReservation(ctx, id); err == nil {
		s.publishEvent(events.EventReservationRescheduled, updated)
		s.enqueueSync(ctx, updated, "upsert")
	}
	return nil
}

// CompleteElapsed is the idempotent sweep that promotes every confirmed
// reservation whose scheduled time has passed. Intended for a periodic
// runner; a second sweep finds nothing.
func (s *ReservationService) CompleteElapsed(ctx context.Context) (int64, error) {
	n, err := s.repo.CompleteElapsed(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("reservations", n).Msg("completed elapsed reservations")
		if s.syncWorker != nil {
			s.syncWorker.EnqueueSyncSchedule(ctx, time.Time{}, time.Time{})
		}
	}
	return n, nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

func (s *ReservationService) GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error) {
	return s.repo.GetReservationsByDateRange(ctx, start, end)
}

// transition performs a guarded, versioned status update and the
// post-write side effects shared by all lifecycle events.
func (s *ReservationService) transition(ctx context.Context, id, version int64, target, eventType string, guard func(*models.Reservation) error) error {
	current, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if !allowedTransition(current.Status, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, target)
	}
	if guard != nil {
		if err := guard(current); err != nil {
			return err
		}
	}

	if err := s.repo.UpdateReservationStatusWithVersion(ctx, id, version, target); err != nil {
		return err
	}

	if updated, err := s.repo.GetReservation(ctx, id); err == nil {
		s.publishEvent(eventType, updated)
		s.enqueueSync(ctx, updated, "update_status")
	}
	return nil
}

// allowedTransition encodes the forward-only lifecycle. Cancelled and
// completed are terminal.
func allowedTransition(from, to string) bool {
	switch from {
	case models.StatusPending:
		return to == models.StatusConfirmed || to == models.StatusCancelled || to == models.StatusPending
	case models.StatusConfirmed:
		return to == models.StatusCancelled || to == models.StatusCompleted || to == models.StatusPending
	default:
		return false
	}
}

func (s *ReservationService) publishEvent(eventType string, r *models.Reservation) {
	if s.eventBus == nil {
		return
	}
	payload := events.ReservationEventPayload{
		ReservationID: r.ID,
		ClientID:      r.ClientID,
		ClientName:    r.ClientName,
		EmployeeID:    r.EmployeeID,
		EmployeeName:  r.EmployeeName,
		ServiceID:     r.ServiceID,
		ServiceName:   r.ServiceName,
		StoreID:       r.StoreID,
		Status:        r.Status,
		Date:          r.Date,
		Time:          r.Time,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func (s *ReservationService) enqueueSync(ctx context.Context, r *models.Reservation, taskType string) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueTask(ctx, taskType, r.ID, r, r.Status); err != nil {
		s.logger.Error().Err(err).Int64("reservation_id", r.ID).Msg("failed to enqueue sync task")
	}
	if err := s.syncWorker.EnqueueSyncSchedule(ctx, time.Time{}, time.Time{}); err != nil {
		s.logger.Error().Err(err).Msg("failed to enqueue schedule sync")
	}
}
