package service

import (
	"context"
	"io"
	"testing"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRatingService(repo *mockRepo, bus *mockEventBus, env string, sampleFallback bool) *RatingService {
	logger := zerolog.New(io.Discard)
	return NewRatingService(repo, bus, env, config.RatingsConfig{SampleFallback: sampleFallback}, &logger)
}

func TestRatingService_EmployeeSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("AverageRoundedToOneDecimal", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newRatingService(repo, new(mockEventBus), "production", false)

		records := []models.RatingRecord{
			{ID: 3, ClientName: "Ivan", EmployeeID: 2, ServiceID: 1, ServiceName: "Haircut", Score: 5, Date: time.Now()},
			{ID: 2, ClientName: "Olga", EmployeeID: 2, ServiceID: 1, ServiceName: "Haircut", Score: 4, Date: time.Now().AddDate(0, 0, -1)},
			{ID: 1, ClientName: "Petr", EmployeeID: 2, ServiceID: 1, ServiceName: "Haircut", Score: 4, Date: time.Now().AddDate(0, 0, -2)},
		}
		repo.On("GetRatings", ctx, int64(2), int64(1)).Return(records, nil)

		summary, err := svc.EmployeeSummary(ctx, 2, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Total)
		assert.InDelta(t, 4.3, summary.Average, 0.001)
		assert.Equal(t, int64(3), summary.Records[0].ID)
	})

	t.Run("EmptyInProductionStaysEmpty", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newRatingService(repo, new(mockEventBus), "production", true)

		repo.On("GetRatings", ctx, int64(2), int64(0)).Return([]models.RatingRecord{}, nil)

		summary, err := svc.EmployeeSummary(ctx, 2, 0)
		require.NoError(t, err)
		assert.Zero(t, summary.Total)
		assert.Zero(t, summary.Average)
		assert.Empty(t, summary.Records)
	})

	t.Run("SampleFallbackOutsideProduction", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newRatingService(repo, new(mockEventBus), "development", true)

		repo.On("GetRatings", ctx, int64(2), int64(0)).Return([]models.RatingRecord{}, nil)

		summary, err := svc.EmployeeSummary(ctx, 2, 0)
		require.NoError(t, err)
		require.NotEmpty(t, summary.Records)
		for _, rec := range summary.Records {
			assert.True(t, rec.Sample)
		}
	})

	t.Run("SampleFallbackDisabledByDefault", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newRatingService(repo, new(mockEventBus), "development", false)

		repo.On("GetRatings", ctx, int64(2), int64(0)).Return([]models.RatingRecord{}, nil)

		summary, err := svc.EmployeeSummary(ctx, 2, 0)
		require.NoError(t, err)
		assert.Empty(t, summary.Records)
	})

	t.Run("MissingNamesResolved", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newRatingService(repo, new(mockEventBus), "production", false)

		records := []models.RatingRecord{
			{ID: 1, EmployeeID: 2, ServiceID: 1, Score: 5, Date: time.Now()},
			{ID: 2, EmployeeID: 2, ServiceID: 77, Score: 3, Date: time.Now()},
		}
		repo.On("GetRatings", ctx, int64(2), int64(0)).Return(records, nil)
		repo.On("GetServiceByID", int64(1)).Return(models.Service{ID: 1, Name: "Haircut"}, true)
		repo.On("GetServiceByID", int64(77)).Return(models.Service{}, false)

		summary, err := svc.EmployeeSummary(ctx, 2, 0)
		require.NoError(t, err)
		assert.Equal(t, "Client", summary.Records[0].ClientName)
		assert.Equal(t, "Haircut", summary.Records[0].ServiceName)
		assert.Equal(t, "Service", summary.Records[1].ServiceName)
	})
}

func TestRatingService_CreateRating(t *testing.T) {
	ctx := context.Background()
	session := models.SessionContext{ClientID: 42}

	completed := &models.Reservation{
		ID: 10, ClientID: 42, ClientName: "Ivan", EmployeeID: 2,
		ServiceID: 1, ServiceName: "Haircut",
		Status: models.StatusCompleted, Date: time.Now().AddDate(0, 0, -1), Time: "10:00",
	}

	t.Run("RecordsScoreAndPublishes", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockEventBus)
		svc := newRatingService(repo, bus, "production", false)

		repo.On("GetReservation", ctx, int64(10)).Return(completed, nil)
		repo.On("CreateRating", ctx, mock.MatchedBy(func(r *models.RatingRecord) bool {
			return r.ReservationID == 10 && r.Score == 5 && r.EmployeeID == 2
		})).Return(nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil).Once()

		require.NoError(t, svc.CreateRating(ctx, session, 10, 5, "great"))
		repo.AssertExpectations(t)
		bus.AssertExpectations(t)
	})

	t.Run("ScoreOutOfRange", func(t *testing.T) {
		svc := newRatingService(new(mockRepo), new(mockEventBus), "production", false)

		assert.ErrorIs(t, svc.CreateRating(ctx, session, 10, 0, ""), ErrInvalidScore)
		assert.ErrorIs(t, svc.CreateRating(ctx, session, 10, 6, ""), ErrInvalidScore)
	})

	t.Run("ForeignReservationHidden", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newRatingService(repo, new(mockEventBus), "production", false)

		foreign := &models.Reservation{ID: 11, ClientID: 7, Status: models.StatusCompleted}
		repo.On("GetReservation", ctx, int64(11)).Return(foreign, nil)

		err := svc.CreateRating(ctx, session, 11, 4, "")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("RepositoryGateSurfaces", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newRatingService(repo, new(mockEventBus), "production", false)

		repo.On("GetReservation", ctx, int64(10)).Return(completed, nil)
		repo.On("CreateRating", ctx, mock.Anything).Return(database.ErrAlreadyRated).Once()

		err := svc.CreateRating(ctx, session, 10, 4, "")
		assert.ErrorIs(t, err, database.ErrAlreadyRated)
	})
}

func TestRatingService_CanRate(t *testing.T) {
	ctx := context.Background()
	session := models.SessionContext{ClientID: 42}

	t.Run("CompletedUnrated", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newRatingService(repo, new(mockEventBus), "production", false)

		completed := &models.Reservation{ID: 1, ClientID: 42, Status: models.StatusCompleted}
		repo.On("GetReservation", ctx, int64(1)).Return(completed, nil)
		repo.On("HasRating", ctx, int64(42), int64(1)).Return(false, nil)

		ok, err := svc.CanRate(ctx, session, 1)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("AlreadyRated", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newRatingService(repo, new(mockEventBus), "production", false)

		completed := &models.Reservation{ID: 2, ClientID: 42, Status: models.StatusCompleted}
		repo.On("GetReservation", ctx, int64(2)).Return(completed, nil)
		repo.On("HasRating", ctx, int64(42), int64(2)).Return(true, nil)

		ok, err := svc.CanRate(ctx, session, 2)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("NotCompleted", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newRatingService(repo, new(mockEventBus), "production", false)

		confirmed := &models.Reservation{ID: 3, ClientID: 42, Status: models.StatusConfirmed}
		repo.On("GetReservation", ctx, int64(3)).Return(confirmed, nil)

		ok, err := svc.CanRate(ctx, session, 3)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("UnknownReservation", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newRatingService(repo, new(mockEventBus), "production", false)

		repo.On("GetReservation", ctx, int64(99)).Return(nil, database.ErrNotFound)

		ok, err := svc.CanRate(ctx, session, 99)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
