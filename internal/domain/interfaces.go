package domain

import (
	"context"
	"time"

	"salonbook/internal/models"
)

// Repository is the persistence surface of the booking core.
type Repository interface {
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	CreateReservationWithLock(ctx context.Context, r *models.Reservation) error
	RescheduleReservationWithLock(ctx context.Context, id, version int64, newDate time.Time, newTime string) error
	UpdateReservationStatusWithVersion(ctx context.Context, id, version int64, status string) error
	GetActiveReservations(ctx context.Context, employeeID int64, date time.Time) ([]*models.Reservation, error)
	GetClientReservations(ctx context.Context, clientID int64) ([]*models.Reservation, error)
	GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error)
	GetDailyReservations(ctx context.Context, start, end time.Time) (map[string][]*models.Reservation, error)
	CompleteElapsed(ctx context.Context, now time.Time) (int64, error)

	CreateRating(ctx context.Context, rating *models.RatingRecord) error
	GetRatings(ctx context.Context, employeeID, serviceID int64) ([]models.RatingRecord, error)
	HasRating(ctx context.Context, clientID, reservationID int64) (bool, error)
	RatedReservationIDs(ctx context.Context, clientID int64) (map[int64]struct{}, error)

	SetCatalog(catalog models.Catalog)
	GetServices(storeID int64) []models.Service
	GetEmployees(storeID int64) []models.Employee
	GetServiceByID(id int64) (models.Service, bool)
	GetEmployeeByID(id int64) (models.Employee, bool)
}

// WizardRepository stores in-progress wizard sessions keyed by client.
type WizardRepository interface {
	GetState(ctx context.Context, clientID int64) (*models.WizardState, error)
	SetState(ctx context.Context, state *models.WizardState) error
	ClearState(ctx context.Context, clientID int64) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SyncWorker queues schedule synchronization tasks.
type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, reservationID int64, r *models.Reservation, status string) error
	EnqueueSyncSchedule(ctx context.Context, startDate, endDate time.Time) error
}

// ScheduleWriter pushes the employee/day schedule grid to an external sheet.
type ScheduleWriter interface {
	UpsertReservation(ctx context.Context, r *models.Reservation) error
	UpdateReservationStatus(ctx context.Context, reservationID int64, status string) error
	ReplaceScheduleSheet(ctx context.Context, startDate, endDate time.Time, daily map[string][]*models.Reservation, employees []models.Employee) error
}
