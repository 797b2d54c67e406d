package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

// ErrInvalidScore is returned for scores outside the 1..5 range.
var ErrInvalidScore = errors.New("rating score out of range")

// RatingService aggregates ratings for display and accepts new ones for
// completed visits.
type RatingService struct {
	repo        domain.Repository
	eventBus    domain.EventPublisher
	environment string
	cfg         config.RatingsConfig
	logger      *zerolog.Logger
}

func NewRatingService(repo domain.Repository, eventBus domain.EventPublisher, environment string, cfg config.RatingsConfig, logger *zerolog.Logger) *RatingService {
	return &RatingService{
		repo:        repo,
		eventBus:    eventBus,
		environment: environment,
		cfg:         cfg,
		logger:      logger,
	}
}

// EmployeeSummary returns the employee's ratings, optionally narrowed to
// one service, newest first, with the average rounded to one decimal.
// An employee with no ratings yields an empty summary; outside
// production a clearly marked sample dataset may substitute when
// enabled.
func (s *RatingService) EmployeeSummary(ctx context.Context, employeeID, serviceID int64) (models.RatingSummary, error) {
	records, err := s.repo.GetRatings(ctx, employeeID, serviceID)
	if err != nil {
		return models.RatingSummary{}, err
	}

	if len(records) == 0 && s.sampleAllowed() {
		records = sampleRatings(employeeID, serviceID)
		s.logger.Debug().Int64("employee_id", employeeID).Msg("serving sample ratings")
	}

	summary := models.RatingSummary{
		EmployeeID: employeeID,
		ServiceID:  serviceID,
		Records:    make([]models.RatingRecord, 0, len(records)),
		Total:      len(records),
	}

	var sum int
	for _, rec := range records {
		rec.ClientName = s.displayClientName(rec)
		rec.ServiceName = s.displayServiceName(rec)
		summary.Records = append(summary.Records, rec)
		sum += rec.Score
	}

	if summary.Total > 0 {
		summary.Average = math.Round(float64(sum)/float64(summary.Total)*10) / 10
	}

	return summary, nil
}

// CreateRating records a score for a completed reservation. The
// repository enforces the completed-status and once-per-reservation
// gates.
func (s *RatingService) CreateRating(ctx context.Context, session models.SessionContext, reservationID int64, score int, comment string) error {
	if score < models.RatingMin || score > models.RatingMax {
		return fmt.Errorf("%w: %d", ErrInvalidScore, score)
	}

	reservation, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if reservation.ClientID != session.ClientID {
		return database.ErrNotFound
	}

	rating := &models.RatingRecord{
		ClientID:      session.ClientID,
		ClientName:    reservation.ClientName,
		EmployeeID:    reservation.EmployeeID,
		ServiceID:     reservation.ServiceID,
		ServiceName:   reservation.ServiceName,
		ReservationID: reservationID,
		Score:         score,
		Comment:       comment,
		Date:          reservation.Date,
	}

	if err := s.repo.CreateRating(ctx, rating); err != nil {
		return err
	}

	if s.eventBus != nil {
		payload := events.RatingEventPayload{
			ReservationID: reservationID,
			ClientID:      session.ClientID,
			EmployeeID:    rating.EmployeeID,
			ServiceID:     rating.ServiceID,
			Score:         score,
			Comment:       comment,
		}
		if err := s.eventBus.PublishJSON(events.EventRatingSubmitted, payload); err != nil {
			s.logger.Error().Err(err).Msg("failed to publish rating event")
		}
	}

	return nil
}

// CanRate reports whether the client may still rate the reservation.
func (s *RatingService) CanRate(ctx context.Context, session models.SessionContext, reservationID int64) (bool, error) {
	reservation, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if reservation.ClientID != session.ClientID || reservation.Status != models.StatusCompleted {
		return false, nil
	}

	rated, err := s.repo.HasRating(ctx, session.ClientID, reservationID)
	if err != nil {
		return false, err
	}
	return !rated, nil
}

func (s *RatingService) sampleAllowed() bool {
	return s.cfg.SampleFallback && s.environment != "production"
}

func (s *RatingService) displayClientName(rec models.RatingRecord) string {
	if rec.ClientName != "" {
		return rec.ClientName
	}
	return "Client"
}

func (s *RatingService) displayServiceName(rec models.RatingRecord) string {
	if rec.ServiceName != "" {
		return rec.ServiceName
	}
	if svc, ok := s.repo.GetServiceByID(rec.ServiceID); ok {
		return svc.Name
	}
	return "Service"
}

// sampleRatings is demo data for empty environments. Records carry the
// Sample flag so no consumer mistakes them for real feedback.
func sampleRatings(employeeID, serviceID int64) []models.RatingRecord {
	base := time.Now().AddDate(0, 0, -7)
	return []models.RatingRecord{
		{ClientName: "Alex P.", EmployeeID: employeeID, ServiceID: serviceID, ServiceName: "Sample visit", Score: 5, Comment: "Great experience", Date: base, Sample: true},
		{ClientName: "Maria K.", EmployeeID: employeeID, ServiceID: serviceID, ServiceName: "Sample visit", Score: 4, Date: base.AddDate(0, 0, -3), Sample: true},
	}
}
