package service

import (
	"context"
	"io"
	"testing"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/models"
	"salonbook/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newWizardService(repo *mockRepo, bus *mockEventBus, worker *mockWorker) *WizardService {
	logger := zerolog.New(io.Discard)
	store := repository.NewMemoryWizardRepository(time.Hour)
	cfg := config.BookingConfig{BookingWindowDays: 30}
	reservations := NewReservationService(repo, bus, worker, cfg, &logger)
	return NewWizardService(store, reservations, &logger)
}

func TestWizardService_Flow(t *testing.T) {
	ctx := context.Background()
	session := models.SessionContext{ClientID: 42, StoreID: 1}
	date := time.Now().AddDate(0, 0, 3)

	repo := new(mockRepo)
	bus := new(mockEventBus)
	worker := new(mockWorker)
	svc := newWizardService(repo, bus, worker)

	repo.On("GetServiceByID", int64(1)).Return(models.Service{ID: 1, Name: "Haircut", DurationMinutes: 30}, true)
	repo.On("GetEmployeeByID", int64(2)).Return(models.Employee{ID: 2, FullName: "Dana Reeve"}, true)

	state, err := svc.Start(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, models.StepServiceSelection, state.Step)
	assert.NotEmpty(t, state.HandleID)

	// Cannot advance before selecting.
	_, err = svc.Advance(ctx, session)
	assert.ErrorIs(t, err, models.ErrStepIncomplete)

	_, err = svc.SelectService(ctx, session, 1)
	require.NoError(t, err)
	state, err = svc.Advance(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, models.StepEmployeeSelection, state.Step)

	_, err = svc.SelectEmployee(ctx, session, 2)
	require.NoError(t, err)
	state, err = svc.Advance(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, models.StepDateTimeSelection, state.Step)

	_, err = svc.SelectSlot(ctx, session, date, "10:00")
	require.NoError(t, err)
	state, err = svc.Advance(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, models.StepConfirm, state.Step)

	repo.On("CreateReservationWithLock", ctx, mock.Anything).Return(nil).Once()
	bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil).Once()
	worker.On("EnqueueTask", ctx, "upsert", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	worker.On("EnqueueSyncSchedule", ctx, mock.Anything, mock.Anything).Return(nil).Once()

	reservation, err := svc.Submit(ctx, session, "Ivan")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, reservation.Status)
	assert.Equal(t, "Haircut", reservation.ServiceName)

	// The wizard is gone after submission.
	_, err = svc.Current(ctx, session)
	assert.ErrorIs(t, err, ErrNoWizard)
}

func TestWizardService_SubmitGates(t *testing.T) {
	ctx := context.Background()
	session := models.SessionContext{ClientID: 42, StoreID: 1}

	t.Run("NoWizard", func(t *testing.T) {
		svc := newWizardService(new(mockRepo), new(mockEventBus), new(mockWorker))
		_, err := svc.Submit(ctx, session, "Ivan")
		assert.ErrorIs(t, err, ErrNoWizard)
	})

	t.Run("NotAtConfirmStep", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newWizardService(repo, new(mockEventBus), new(mockWorker))

		repo.On("GetServiceByID", int64(1)).Return(models.Service{ID: 1}, true)

		_, err := svc.Start(ctx, session)
		require.NoError(t, err)
		_, err = svc.SelectService(ctx, session, 1)
		require.NoError(t, err)

		_, err = svc.Submit(ctx, session, "Ivan")
		assert.ErrorIs(t, err, models.ErrStepIncomplete)
	})

	t.Run("SlotTakenKeepsWizard", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newWizardService(repo, new(mockEventBus), new(mockWorker))
		date := time.Now().AddDate(0, 0, 3)

		repo.On("GetServiceByID", int64(1)).Return(models.Service{ID: 1, DurationMinutes: 30}, true)
		repo.On("GetEmployeeByID", int64(2)).Return(models.Employee{ID: 2}, true)
		repo.On("CreateReservationWithLock", ctx, mock.Anything).Return(database.ErrSlotTaken).Once()

		_, err := svc.Start(ctx, session)
		require.NoError(t, err)
		_, err = svc.SelectService(ctx, session, 1)
		require.NoError(t, err)
		_, err = svc.Advance(ctx, session)
		require.NoError(t, err)
		_, err = svc.SelectEmployee(ctx, session, 2)
		require.NoError(t, err)
		_, err = svc.Advance(ctx, session)
		require.NoError(t, err)
		_, err = svc.SelectSlot(ctx, session, date, "10:00")
		require.NoError(t, err)
		_, err = svc.Advance(ctx, session)
		require.NoError(t, err)

		_, err = svc.Submit(ctx, session, "Ivan")
		assert.ErrorIs(t, err, database.ErrSlotTaken)

		// Wizard survives so the client can pick another slot.
		state, err := svc.Current(ctx, session)
		require.NoError(t, err)
		assert.Equal(t, models.StepConfirm, state.Step)
	})
}

func TestWizardService_UnknownCatalogSelections(t *testing.T) {
	ctx := context.Background()
	session := models.SessionContext{ClientID: 42}

	repo := new(mockRepo)
	svc := newWizardService(repo, new(mockEventBus), new(mockWorker))

	repo.On("GetServiceByID", int64(99)).Return(models.Service{}, false)
	repo.On("GetEmployeeByID", int64(99)).Return(models.Employee{}, false)

	_, err := svc.Start(ctx, session)
	require.NoError(t, err)

	_, err = svc.SelectService(ctx, session, 99)
	assert.ErrorIs(t, err, ErrCatalogUnavailable)

	_, err = svc.SelectEmployee(ctx, session, 99)
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
}
