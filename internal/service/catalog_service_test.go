package service

import (
	"context"
	"io"
	"testing"

	"salonbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	repo := new(mockRepo)
	svc := NewCatalogService(repo, &logger)

	services := []models.Service{
		{ID: 1, Name: "Haircut", StoreID: 1},
		{ID: 2, Name: "Coloring", StoreID: 1},
	}
	employees := []models.Employee{{ID: 2, FullName: "Dana Reeve", StoreID: 1}}

	repo.On("GetServices", int64(1)).Return(services)
	repo.On("GetEmployees", int64(1)).Return(employees)
	repo.On("GetServiceByID", int64(1)).Return(services[0], true)
	repo.On("GetServiceByID", int64(99)).Return(models.Service{}, false)
	repo.On("GetEmployeeByID", int64(2)).Return(employees[0], true)
	repo.On("GetEmployeeByID", int64(99)).Return(models.Employee{}, false)

	t.Run("ListServices", func(t *testing.T) {
		got, err := svc.ListServices(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("ListEmployees", func(t *testing.T) {
		got, err := svc.ListEmployees(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("GetService", func(t *testing.T) {
		got, err := svc.GetService(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Haircut", got.Name)

		_, err = svc.GetService(ctx, 99)
		assert.ErrorIs(t, err, ErrCatalogUnavailable)
	})

	t.Run("GetEmployee", func(t *testing.T) {
		got, err := svc.GetEmployee(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "Dana Reeve", got.FullName)

		_, err = svc.GetEmployee(ctx, 99)
		assert.ErrorIs(t, err, ErrCatalogUnavailable)
	})
}
