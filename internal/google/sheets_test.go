package google

import (
	"testing"
	"time"

	"salonbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScheduleGrid(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	employees := []models.Employee{
		{ID: 1, FullName: "Dana Reeve"},
		{ID: 2, FullName: "Sam Ortiz"},
	}
	daily := map[string][]*models.Reservation{
		"2026-03-02": {
			{EmployeeID: 1, Time: "10:00", ServiceName: "Haircut", Status: models.StatusConfirmed},
			{EmployeeID: 1, Time: "12:00", ServiceName: "Coloring", Status: models.StatusCancelled},
			{EmployeeID: 2, Time: "11:00", ServiceName: "Haircut", Status: models.StatusPending},
		},
		"2026-03-03": {
			{EmployeeID: 2, Time: "09:00", ServiceName: "Coloring", Status: models.StatusCompleted},
		},
	}

	grid := buildScheduleGrid(start, 2, daily, employees)
	require.Len(t, grid, 3)

	assert.Equal(t, []interface{}{"Employee", "2026-03-02", "2026-03-03"}, grid[0])

	assert.Equal(t, "Dana Reeve", grid[1][0])
	assert.Equal(t, "10:00 Haircut (confirmed)", grid[1][1])
	assert.Equal(t, "", grid[1][2])

	assert.Equal(t, "Sam Ortiz", grid[2][0])
	assert.Equal(t, "11:00 Haircut (pending)", grid[2][1])
	assert.Equal(t, "09:00 Coloring (completed)", grid[2][2])
}

func TestReservationRowValues(t *testing.T) {
	created := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	r := &models.Reservation{
		ID: 7, ClientID: 42, EmployeeID: 2, ServiceID: 1,
		Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Time: "10:00",
		Status: models.StatusPending, ClientName: "Ivan", EmployeeName: "Dana Reeve", ServiceName: "Haircut",
		CreatedAt: created, UpdatedAt: created,
	}

	row := reservationRowValues(r)
	require.Len(t, row, 12)
	assert.Equal(t, int64(7), row[0])
	assert.Equal(t, "2026-03-02", row[4])
	assert.Equal(t, "10:00", row[5])
	assert.Equal(t, models.StatusPending, row[6])
	assert.Equal(t, "2026-02-01 09:30:00", row[10])
}

func TestRowCache(t *testing.T) {
	s := &SheetsService{rowCache: make(map[int64]int)}

	_, ok := s.getCachedRow(5)
	assert.False(t, ok)

	s.setCachedRow(5, 12)
	row, ok := s.getCachedRow(5)
	assert.True(t, ok)
	assert.Equal(t, 12, row)

	s.ClearCache()
	_, ok = s.getCachedRow(5)
	assert.False(t, ok)
}
