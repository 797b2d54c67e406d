package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Schedule"

// ExcelExporter renders the employee/day reservation grid into an xlsx
// file for the back office.
type ExcelExporter struct {
	repo   domain.Repository
	path   string
	logger *zerolog.Logger
}

func NewExcelExporter(repo domain.Repository, path string, logger *zerolog.Logger) *ExcelExporter {
	return &ExcelExporter{
		repo:   repo,
		path:   path,
		logger: logger,
	}
}

// Export writes the schedule for the range and returns the file path.
func (e *ExcelExporter) Export(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if endDate.Before(startDate) {
		return "", fmt.Errorf("invalid export range: %s to %s", startDate.Format(models.DateLayout), endDate.Format(models.DateLayout))
	}

	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	daily, err := e.repo.GetDailyReservations(ctx, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting reservations: %v", err)
	}
	employees := e.repo.GetEmployees(0)

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Schedule: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))

	dateHeaders := writeDateHeaders(f, startDate, endDate)
	writeEmployeeHeaders(f, employees)
	e.writeReservationCells(f, daily, employees, dateHeaders)

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 22)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(dateHeaders) + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("schedule_%s_to_%s.xlsx",
		startDate.Format(models.DateLayout),
		endDate.Format(models.DateLayout))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("schedule export created")
	return filePath, nil
}

func writeDateHeaders(f *excelize.File, startDate, endDate time.Time) map[string]int {
	col := 2
	currentDate := startDate
	dateHeaders := make(map[string]int)

	for !currentDate.After(endDate) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, currentDate.Format("02.01"))
		dateHeaders[currentDate.Format(models.DateLayout)] = col

		style, _ := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		_ = f.SetCellStyle(sheetName, cell, cell, style)

		col++
		currentDate = currentDate.AddDate(0, 0, 1)
	}
	return dateHeaders
}

func writeEmployeeHeaders(f *excelize.File, employees []models.Employee) {
	row := 3
	for _, emp := range employees {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, emp.FullName)

		style, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
			Font: &excelize.Font{Bold: true},
		})
		_ = f.SetCellStyle(sheetName, cell, cell, style)

		row++
	}
}

func (e *ExcelExporter) writeReservationCells(
	f *excelize.File,
	daily map[string][]*models.Reservation,
	employees []models.Employee,
	dateHeaders map[string]int,
) {
	for dateKey, reservations := range daily {
		col, exists := dateHeaders[dateKey]
		if !exists {
			continue
		}

		byEmployee := make(map[int64][]*models.Reservation)
		for _, r := range reservations {
			if r.Status == models.StatusCancelled {
				continue
			}
			byEmployee[r.EmployeeID] = append(byEmployee[r.EmployeeID], r)
		}

		row := 3
		for _, emp := range employees {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			cellValue := buildCellText(byEmployee[emp.ID])
			_ = f.SetCellValue(sheetName, cell, cellValue)

			style, err := f.NewStyle(cellStyle(len(byEmployee[emp.ID]) > 0))
			if err == nil {
				_ = f.SetCellStyle(sheetName, cell, cell, style)
			}
			row++
		}
	}
}

func buildCellText(reservations []*models.Reservation) string {
	if len(reservations) == 0 {
		return "Free"
	}
	var text string
	for _, r := range reservations {
		text += fmt.Sprintf("%s %s - %s (%s)\n", r.Time, r.ServiceName, r.ClientName, r.Status)
	}
	return text
}

func cellStyle(busy bool) *excelize.Style {
	color := "#FFFFFF"
	if busy {
		color = "#FCE4D6"
	}
	return &excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	}
}
