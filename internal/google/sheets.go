package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"salonbook/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	reservationsSheet = "Reservations"
	scheduleSheet     = "Schedule"
)

var errRowNotFound = errors.New("reservation row not found")

// SheetsService mirrors reservations into a Google spreadsheet: one flat
// sheet with a row per reservation and one schedule grid per date range.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	rowCache      map[int64]int
	cacheMu       sync.RWMutex
}

func NewSheetsService(credentialsFile, spreadsheetID string) (*SheetsService, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	service := &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[int64]int),
	}

	// Warm up cache in background
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		service.WarmUpCache(ctx)
	}()

	return service, nil
}

// TestConnection verifies the spreadsheet is reachable.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, reservationsSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail reads the service account email from the
// credentials file, for sharing instructions in logs.
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// WarmUpCache populates the row index cache by reading the entire ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, reservationsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		var id int64
		switch v := row[0].(type) {
		case float64:
			id = int64(v)
		case string:
			fmt.Sscanf(v, "%d", &id)
		}
		if id > 0 {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

// AppendReservation adds a new reservation row.
func (s *SheetsService) AppendReservation(ctx context.Context, r *models.Reservation) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{reservationRowValues(r)},
	}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, reservationsSheet+"!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// UpsertReservation updates an existing row or appends a new one if not
// found.
func (s *SheetsService) UpsertReservation(ctx context.Context, r *models.Reservation) error {
	if r == nil {
		return fmt.Errorf("reservation is nil")
	}

	rowIdx, err := s.FindReservationRow(ctx, r.ID)
	if err != nil {
		if errors.Is(err, errRowNotFound) {
			return s.AppendReservation(ctx, r)
		}
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:L%d", reservationsSheet, rowIdx, rowIdx)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{reservationRowValues(r)},
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// UpdateReservationStatus updates status (and the updated-at column) for
// a reservation row.
func (s *SheetsService) UpdateReservationStatus(ctx context.Context, reservationID int64, status string) error {
	rowIdx, err := s.FindReservationRow(ctx, reservationID)
	if err != nil {
		return err
	}

	statusRange := fmt.Sprintf("%s!G%d:G%d", reservationsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, statusRange, &sheets.ValueRange{
		Values: [][]interface{}{{status}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return err
	}

	now := time.Now().Format("2006-01-02 15:04:05")
	updatedRange := fmt.Sprintf("%s!L%d:L%d", reservationsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, updatedRange, &sheets.ValueRange{
		Values: [][]interface{}{{now}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// ReplaceScheduleSheet rewrites the employee/day grid for the range.
func (s *SheetsService) ReplaceScheduleSheet(ctx context.Context, startDate, endDate time.Time, daily map[string][]*models.Reservation, employees []models.Employee) error {
	days := int(endDate.Sub(startDate).Hours()/24) + 1
	if days <= 0 {
		return fmt.Errorf("invalid date range: %s to %s", startDate.Format(models.DateLayout), endDate.Format(models.DateLayout))
	}

	clearRange := scheduleSheet + "!A:Z"
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to clear schedule sheet: %v", err)
	}

	values := buildScheduleGrid(startDate, days, daily, employees)

	rangeData := fmt.Sprintf("%s!A1", scheduleSheet)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: values,
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// FindReservationRow locates the 1-based row index for a reservation id
// in column A, using the cache first.
func (s *SheetsService) FindReservationRow(ctx context.Context, reservationID int64) (int, error) {
	if reservationID == 0 {
		return 0, fmt.Errorf("reservation id is required")
	}

	if row, ok := s.getCachedRow(reservationID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, reservationsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		switch v := row[0].(type) {
		case float64:
			if int64(v) == reservationID {
				rowIdx := i + 1
				s.setCachedRow(reservationID, rowIdx)
				return rowIdx, nil
			}
		case string:
			if v == fmt.Sprintf("%d", reservationID) {
				rowIdx := i + 1
				s.setCachedRow(reservationID, rowIdx)
				return rowIdx, nil
			}
		}
	}

	return 0, errRowNotFound
}

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

// ClearCache clears the row index cache.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
}

func reservationRowValues(r *models.Reservation) []interface{} {
	return []interface{}{
		r.ID,
		r.ClientID,
		r.EmployeeID,
		r.ServiceID,
		r.Date.Format(models.DateLayout),
		r.Time,
		r.Status,
		r.ClientName,
		r.EmployeeName,
		r.ServiceName,
		r.CreatedAt.Format("2006-01-02 15:04:05"),
		r.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// buildScheduleGrid lays out employees as rows and days as columns, each
// cell listing that day's appointments for the employee.
func buildScheduleGrid(startDate time.Time, days int, daily map[string][]*models.Reservation, employees []models.Employee) [][]interface{} {
	header := []interface{}{"Employee"}
	dates := make([]string, 0, days)
	for i := 0; i < days; i++ {
		d := startDate.AddDate(0, 0, i).Format(models.DateLayout)
		dates = append(dates, d)
		header = append(header, d)
	}

	values := [][]interface{}{header}
	for _, emp := range employees {
		row := []interface{}{emp.FullName}
		for _, d := range dates {
			var cell []string
			for _, r := range daily[d] {
				if r.EmployeeID != emp.ID || r.Status == models.StatusCancelled {
					continue
				}
				cell = append(cell, fmt.Sprintf("%s %s (%s)", r.Time, r.ServiceName, r.Status))
			}
			row = append(row, strings.Join(cell, "\n"))
		}
		values = append(values, row)
	}
	return values
}
