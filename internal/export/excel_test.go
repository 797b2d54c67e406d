package export

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"salonbook/internal/database"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.db")
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(path, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetCatalog(models.Catalog{
		Services: []models.Service{
			{ID: 1, Name: "Haircut", DurationMinutes: 30, StoreID: 1},
		},
		Employees: []models.Employee{
			{ID: 1, FullName: "Dana Reeve", StoreID: 1},
			{ID: 2, FullName: "Sam Ortiz", StoreID: 1},
		},
	})
	return db
}

func TestExcelExporter_Export(t *testing.T) {
	db := newTestDB(t)
	logger := zerolog.New(io.Discard)
	dir := t.TempDir()
	exporter := NewExcelExporter(db, dir, &logger)

	ctx := context.Background()
	start := time.Now().AddDate(0, 0, 1)
	end := start.AddDate(0, 0, 2)

	r := &models.Reservation{
		ClientID: 42, ClientName: "Ivan", EmployeeID: 1, EmployeeName: "Dana Reeve",
		ServiceID: 1, ServiceName: "Haircut", StoreID: 1,
		Date: start, Time: "10:00", DurationMinutes: 30, Status: models.StatusConfirmed,
	}
	require.NoError(t, db.CreateReservationWithLock(ctx, r))

	path, err := exporter.Export(ctx, start, end)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	a3, err := f.GetCellValue(sheetName, "A3")
	require.NoError(t, err)
	assert.Equal(t, "Dana Reeve", a3)

	b3, err := f.GetCellValue(sheetName, "B3")
	require.NoError(t, err)
	assert.Contains(t, b3, "10:00 Haircut - Ivan (confirmed)")

	// Second employee has no appointments that day.
	b4, err := f.GetCellValue(sheetName, "B4")
	require.NoError(t, err)
	assert.Equal(t, "Free", b4)
}

func TestExcelExporter_InvalidRange(t *testing.T) {
	db := newTestDB(t)
	logger := zerolog.New(io.Discard)
	exporter := NewExcelExporter(db, t.TempDir(), &logger)

	start := time.Now()
	_, err := exporter.Export(context.Background(), start, start.AddDate(0, 0, -3))
	assert.Error(t, err)
}
