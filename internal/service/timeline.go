package service

import (
	"context"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

// TimelineService partitions a client's reservations for display. The
// split is derived from status and scheduled time at read time; stored
// status alone gates rating.
type TimelineService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewTimelineService(repo domain.Repository, logger *zerolog.Logger) *TimelineService {
	return &TimelineService{
		repo:   repo,
		logger: logger,
	}
}

// ListReservations returns the client's reservations split into upcoming
// (soonest first) and history (most recent first). Every reservation
// lands in exactly one of the two.
func (s *TimelineService) ListReservations(ctx context.Context, session models.SessionContext) (models.Timeline, error) {
	reservations, err := s.repo.GetClientReservations(ctx, session.ClientID)
	if err != nil {
		return models.Timeline{}, err
	}

	rated, err := s.repo.RatedReservationIDs(ctx, session.ClientID)
	if err != nil {
		return models.Timeline{}, err
	}

	now := time.Now()
	timeline := models.Timeline{
		Upcoming: []models.ReservationView{},
		History:  []models.ReservationView{},
	}

	// Repo order is ascending by date and time; history gets reversed
	// below to put the most recent visit first.
	for _, r := range reservations {
		view := buildView(r, rated, now)
		if isUpcoming(r, now) {
			timeline.Upcoming = append(timeline.Upcoming, view)
		} else {
			timeline.History = append(timeline.History, view)
		}
	}

	for i, j := 0, len(timeline.History)-1; i < j; i, j = i+1, j-1 {
		timeline.History[i], timeline.History[j] = timeline.History[j], timeline.History[i]
	}

	return timeline, nil
}

func isUpcoming(r *models.Reservation, now time.Time) bool {
	if r.Status != models.StatusPending && r.Status != models.StatusConfirmed {
		return false
	}
	return !r.Elapsed(now)
}

func buildView(r *models.Reservation, rated map[int64]struct{}, now time.Time) models.ReservationView {
	upcoming := isUpcoming(r, now)
	_, alreadyRated := rated[r.ID]
	return models.ReservationView{
		Reservation:   *r,
		CanCancel:     upcoming,
		CanReschedule: upcoming,
		CanRate:       r.Status == models.StatusCompleted && !alreadyRated,
	}
}
