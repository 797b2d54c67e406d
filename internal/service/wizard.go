package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNoWizard is returned when an operation references a wizard session
// that does not exist or has expired.
var ErrNoWizard = errors.New("no active booking wizard")

// WizardService drives the step-gated booking flow. State lives in the
// wizard store under the client id; nothing durable is written until
// Submit. An abandoned wizard simply expires.
type WizardService struct {
	store        domain.WizardRepository
	reservations *ReservationService
	logger       *zerolog.Logger
}

func NewWizardService(store domain.WizardRepository, reservations *ReservationService, logger *zerolog.Logger) *WizardService {
	return &WizardService{
		store:        store,
		reservations: reservations,
		logger:       logger,
	}
}

// Start opens a fresh wizard for the client, replacing any in-progress
// one.
func (s *WizardService) Start(ctx context.Context, session models.SessionContext) (models.WizardState, error) {
	state := models.NewWizardState(session, uuid.NewString())
	if err := s.store.SetState(ctx, &state); err != nil {
		return models.WizardState{}, err
	}
	return state, nil
}

// Current returns the client's in-progress wizard.
func (s *WizardService) Current(ctx context.Context, session models.SessionContext) (models.WizardState, error) {
	return s.load(ctx, session)
}

func (s *WizardService) SelectService(ctx context.Context, session models.SessionContext, serviceID int64) (models.WizardState, error) {
	if _, ok := s.reservations.repo.GetServiceByID(serviceID); !ok {
		return models.WizardState{}, fmt.Errorf("%w: service %d", ErrCatalogUnavailable, serviceID)
	}
	return s.update(ctx, session, func(state models.WizardState) models.WizardState {
		return state.SelectService(serviceID)
	})
}

func (s *WizardService) SelectEmployee(ctx context.Context, session models.SessionContext, employeeID int64) (models.WizardState, error) {
	if _, ok := s.reservations.repo.GetEmployeeByID(employeeID); !ok {
		return models.WizardState{}, fmt.Errorf("%w: employee %d", ErrCatalogUnavailable, employeeID)
	}
	return s.update(ctx, session, func(state models.WizardState) models.WizardState {
		return state.SelectEmployee(employeeID)
	})
}

func (s *WizardService) SelectDate(ctx context.Context, session models.SessionContext, date time.Time) (models.WizardState, error) {
	return s.update(ctx, session, func(state models.WizardState) models.WizardState {
		return state.SelectDate(date)
	})
}

func (s *WizardService) SelectSlot(ctx context.Context, session models.SessionContext, date time.Time, hhmm string) (models.WizardState, error) {
	if _, err := models.ParseHHMM(hhmm); err != nil {
		return models.WizardState{}, err
	}
	return s.update(ctx, session, func(state models.WizardState) models.WizardState {
		return state.SelectSlot(date, hhmm)
	})
}

// Advance moves the wizard to the next step, refusing when the current
// step's selection is missing.
func (s *WizardService) Advance(ctx context.Context, session models.SessionContext) (models.WizardState, error) {
	state, err := s.load(ctx, session)
	if err != nil {
		return models.WizardState{}, err
	}
	next, err := state.Advance()
	if err != nil {
		return state, err
	}
	if err := s.store.SetState(ctx, &next); err != nil {
		return models.WizardState{}, err
	}
	return next, nil
}

// Retreat steps back one step keeping the selections made so far.
func (s *WizardService) Retreat(ctx context.Context, session models.SessionContext) (models.WizardState, error) {
	return s.update(ctx, session, func(state models.WizardState) models.WizardState {
		return state.Retreat()
	})
}

// Submit turns the completed wizard into a reservation. The slot is
// re-checked inside the create transaction; on ErrSlotTaken the wizard
// survives so the client can pick another slot.
func (s *WizardService) Submit(ctx context.Context, session models.SessionContext, clientName string) (*models.Reservation, error) {
	state, err := s.load(ctx, session)
	if err != nil {
		return nil, err
	}
	if state.Step != models.StepConfirm {
		return nil, fmt.Errorf("%w: wizard at step %s", models.ErrStepIncomplete, state.Step)
	}

	reservation, err := s.reservations.Create(ctx, session, clientName, state.ServiceID, state.EmployeeID, state.Date, state.Time)
	if err != nil {
		return nil, err
	}

	if err := s.store.ClearState(ctx, session.ClientID); err != nil {
		s.logger.Error().Err(err).Int64("client_id", session.ClientID).Msg("failed to clear wizard state")
	}
	return reservation, nil
}

// Abandon discards the wizard without side effects.
func (s *WizardService) Abandon(ctx context.Context, session models.SessionContext) error {
	return s.store.ClearState(ctx, session.ClientID)
}

func (s *WizardService) load(ctx context.Context, session models.SessionContext) (models.WizardState, error) {
	state, err := s.store.GetState(ctx, session.ClientID)
	if err != nil {
		return models.WizardState{}, err
	}
	if state == nil {
		return models.WizardState{}, ErrNoWizard
	}
	return *state, nil
}

func (s *WizardService) update(ctx context.Context, session models.SessionContext, fn func(models.WizardState) models.WizardState) (models.WizardState, error) {
	state, err := s.load(ctx, session)
	if err != nil {
		return models.WizardState{}, err
	}
	next := fn(state)
	if err := s.store.SetState(ctx, &next); err != nil {
		return models.WizardState{}, err
	}
	return next, nil
}
