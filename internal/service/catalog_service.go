package service

import (
	"context"
	"errors"
	"fmt"

	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

// ErrCatalogUnavailable is returned when a referenced service or employee
// cannot be resolved from the catalog.
var ErrCatalogUnavailable = errors.New("catalog entry unavailable")

// CatalogService exposes the read-only reference data. The catalog is
// loaded once at startup; all reads are side-effect free.
type CatalogService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewCatalogService(repo domain.Repository, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		logger: logger,
	}
}

// ListServices returns the services offered by a store. storeID 0 returns
// the full catalog.
func (s *CatalogService) ListServices(ctx context.Context, storeID int64) ([]models.Service, error) {
	services := s.repo.GetServices(storeID)
	if len(services) == 0 {
		s.logger.Warn().Int64("store_id", storeID).Msg("catalog returned no services")
	}
	return services, nil
}

// ListEmployees returns the bookable employees of a store. storeID 0
// returns all employees.
func (s *CatalogService) ListEmployees(ctx context.Context, storeID int64) ([]models.Employee, error) {
	return s.repo.GetEmployees(storeID), nil
}

func (s *CatalogService) GetService(ctx context.Context, id int64) (models.Service, error) {
	svc, ok := s.repo.GetServiceByID(id)
	if !ok {
		return models.Service{}, fmt.Errorf("%w: service %d", ErrCatalogUnavailable, id)
	}
	return svc, nil
}

func (s *CatalogService) GetEmployee(ctx context.Context, id int64) (models.Employee, error) {
	emp, ok := s.repo.GetEmployeeByID(id)
	if !ok {
		return models.Employee{}, fmt.Errorf("%w: employee %d", ErrCatalogUnavailable, id)
	}
	return emp, nil
}
