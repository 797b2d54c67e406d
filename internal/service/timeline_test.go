package service

import (
	"context"
	"io"
	"testing"
	"time"

	"salonbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimelineService_ListReservations(t *testing.T) {
	ctx := context.Background()
	session := models.SessionContext{ClientID: 42}
	logger := zerolog.New(io.Discard)

	nearFuture := time.Now().AddDate(0, 0, 2)
	farFuture := time.Now().AddDate(0, 0, 9)
	recentPast := time.Now().AddDate(0, 0, -2)
	distantPast := time.Now().AddDate(0, 0, -9)

	// Ascending date order, as the repository returns them.
	reservations := []*models.Reservation{
		{ID: 1, ClientID: 42, Status: models.StatusCompleted, Date: distantPast, Time: "10:00"},
		{ID: 2, ClientID: 42, Status: models.StatusCancelled, Date: recentPast, Time: "11:00"},
		{ID: 3, ClientID: 42, Status: models.StatusConfirmed, Date: recentPast, Time: "12:00"},
		{ID: 4, ClientID: 42, Status: models.StatusConfirmed, Date: nearFuture, Time: "10:00"},
		{ID: 5, ClientID: 42, Status: models.StatusCancelled, Date: farFuture, Time: "10:00"},
		{ID: 6, ClientID: 42, Status: models.StatusPending, Date: farFuture, Time: "15:00"},
	}

	repo := new(mockRepo)
	repo.On("GetClientReservations", ctx, int64(42)).Return(reservations, nil)
	repo.On("RatedReservationIDs", ctx, int64(42)).Return(map[int64]struct{}{}, nil)

	svc := NewTimelineService(repo, &logger)
	timeline, err := svc.ListReservations(ctx, session)
	require.NoError(t, err)

	t.Run("PartitionIsCompleteAndDisjoint", func(t *testing.T) {
		assert.Len(t, timeline.Upcoming, 2)
		assert.Len(t, timeline.History, 4)
	})

	t.Run("UpcomingSoonestFirst", func(t *testing.T) {
		assert.Equal(t, int64(4), timeline.Upcoming[0].ID)
		assert.Equal(t, int64(6), timeline.Upcoming[1].ID)
	})

	t.Run("HistoryMostRecentFirst", func(t *testing.T) {
		// An elapsed confirmed visit and a future cancellation both
		// land in history.
		ids := []int64{timeline.History[0].ID, timeline.History[1].ID, timeline.History[2].ID, timeline.History[3].ID}
		assert.Equal(t, []int64{5, 3, 2, 1}, ids)
	})

	t.Run("ActionFlags", func(t *testing.T) {
		for _, v := range timeline.Upcoming {
			assert.True(t, v.CanCancel)
			assert.True(t, v.CanReschedule)
			assert.False(t, v.CanRate)
		}
		for _, v := range timeline.History {
			assert.False(t, v.CanCancel)
			assert.False(t, v.CanReschedule)
			// Stored status gates rating, not the derived partition.
			assert.Equal(t, v.Status == models.StatusCompleted, v.CanRate)
		}
	})
}

func TestTimelineService_RatedReservationsNotRatable(t *testing.T) {
	ctx := context.Background()
	session := models.SessionContext{ClientID: 42}
	logger := zerolog.New(io.Discard)
	past := time.Now().AddDate(0, 0, -5)

	reservations := []*models.Reservation{
		{ID: 1, ClientID: 42, Status: models.StatusCompleted, Date: past, Time: "10:00"},
		{ID: 2, ClientID: 42, Status: models.StatusCompleted, Date: past, Time: "12:00"},
	}

	repo := new(mockRepo)
	repo.On("GetClientReservations", ctx, int64(42)).Return(reservations, nil)
	repo.On("RatedReservationIDs", ctx, int64(42)).Return(map[int64]struct{}{1: {}}, nil)

	svc := NewTimelineService(repo, &logger)
	timeline, err := svc.ListReservations(ctx, session)
	require.NoError(t, err)

	require.Len(t, timeline.History, 2)
	assert.Equal(t, int64(2), timeline.History[0].ID)
	assert.True(t, timeline.History[0].CanRate)
	assert.Equal(t, int64(1), timeline.History[1].ID)
	assert.False(t, timeline.History[1].CanRate)
}

func TestTimelineService_EmptyTimeline(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	repo := new(mockRepo)
	repo.On("GetClientReservations", ctx, int64(7)).Return([]*models.Reservation{}, nil)
	repo.On("RatedReservationIDs", ctx, int64(7)).Return(map[int64]struct{}{}, nil)

	svc := NewTimelineService(repo, &logger)
	timeline, err := svc.ListReservations(ctx, models.SessionContext{ClientID: 7})
	require.NoError(t, err)
	assert.Empty(t, timeline.Upcoming)
	assert.Empty(t, timeline.History)
	assert.NotNil(t, timeline.Upcoming)
	assert.NotNil(t, timeline.History)
}
