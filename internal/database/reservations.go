package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/models"
)

const reservationColumns = `id, client_id, client_name, employee_id, employee_name,
                 service_id, service_name, store_id, date, time,
                 duration_minutes, status, created_at, updated_at, version`

func scanReservation(scanner interface{ Scan(...any) error }) (*models.Reservation, error) {
	r := &models.Reservation{}
	var dateStr string
	err := scanner.Scan(
		&r.ID, &r.ClientID, &r.ClientName, &r.EmployeeID, &r.EmployeeName,
		&r.ServiceID, &r.ServiceName, &r.StoreID, &dateStr, &r.Time,
		&r.DurationMinutes, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	r.Date, err = time.ParseInLocation(models.DateLayout, dateStr, time.Local)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reservation date %s: %w", dateStr, err)
	}
	return r, nil
}

// overlaps applies half-open interval intersection on minutes since midnight.
func overlaps(aStart, aDur, bStart, bDur int) bool {
	return aStart < bStart+bDur && bStart < aStart+aDur
}

// CreateReservationWithLock checks the slot and inserts in one transaction.
// The conflict re-check is mandatory even when the caller already filtered
// by availability: another client may have submitted in between.
func (db *DB) CreateReservationWithLock(ctx context.Context, r *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := slotFreeInTx(ctx, tx, r.EmployeeID, r.Date, r.Time, r.DurationMinutes, 0); err != nil {
		return err
	}

	query := `INSERT INTO reservations (
				client_id, client_name, employee_id, employee_name,
				service_id, service_name, store_id, date, time,
				duration_minutes, status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		r.ClientID,
		r.ClientName,
		r.EmployeeID,
		r.EmployeeName,
		r.ServiceID,
		r.ServiceName,
		r.StoreID,
		r.Date.Format(models.DateLayout),
		r.Time,
		r.DurationMinutes,
		r.Status,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1

	return tx.Commit()
}

// RescheduleReservationWithLock releases the old slot and acquires the new
// one atomically: the conflict check and the date/time update commit
// together or not at all.
func (db *DB) RescheduleReservationWithLock(ctx context.Context, id, fromVersion int64, newDate time.Time, newTime string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	current, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load reservation in tx: %w", err)
	}

	if err := slotFreeInTx(ctx, tx, current.EmployeeID, newDate, newTime, current.DurationMinutes, id); err != nil {
		return err
	}

	query := `UPDATE reservations
	          SET date = ?, time = ?, status = ?, version = version + 1, updated_at = ?
	          WHERE id = ? AND version = ?`
	result, err := tx.ExecContext(ctx, query,
		newDate.Format(models.DateLayout), newTime, models.StatusPending, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to reschedule reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}

	return tx.Commit()
}

// slotFreeInTx returns ErrSlotTaken when an active reservation of the
// employee overlaps the requested interval. excludeID skips the reservation
// being rescheduled.
func slotFreeInTx(ctx context.Context, tx *sql.Tx, employeeID int64, date time.Time, hhmm string, durationMinutes int, excludeID int64) error {
	start, err := models.ParseHHMM(hhmm)
	if err != nil {
		return err
	}

	query := `SELECT id, time, duration_minutes FROM reservations
	          WHERE employee_id = ? AND date = ? AND status != ?`
	rows, err := tx.QueryContext(ctx, query, employeeID, date.Format(models.DateLayout), models.StatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to check slot in tx: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var existingTime string
		var existingDur int
		if err := rows.Scan(&id, &existingTime, &existingDur); err != nil {
			return fmt.Errorf("failed to scan reservation in tx: %w", err)
		}
		if id == excludeID {
			continue
		}
		existingStart, err := models.ParseHHMM(existingTime)
		if err != nil {
			continue
		}
		if overlaps(start, durationMinutes, existingStart, existingDur) {
			return ErrSlotTaken
		}
	}
	return rows.Err()
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

func (db *DB) UpdateReservationStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	query := `UPDATE reservations SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// GetActiveReservations returns the employee's non-cancelled reservations
// for a date; the availability calculator recomputes slots from this set.
func (db *DB) GetActiveReservations(ctx context.Context, employeeID int64, date time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE employee_id = ? AND date = ? AND status != ? ORDER BY time ASC`
	rows, err := db.QueryContext(ctx, query, employeeID, date.Format(models.DateLayout), models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func (db *DB) GetClientReservations(ctx context.Context, clientID int64) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE client_id = ? ORDER BY date ASC, time ASC`
	rows, err := db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get client reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func (db *DB) GetReservationsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE date >= ? AND date <= ? ORDER BY date ASC, time ASC`
	rows, err := db.QueryContext(ctx, query,
		startDate.Format(models.DateLayout), endDate.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get reservations by date range: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

// GetDailyReservations groups a date range by day for schedule exports.
func (db *DB) GetDailyReservations(ctx context.Context, startDate, endDate time.Time) (map[string][]*models.Reservation, error) {
	reservations, err := db.GetReservationsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	daily := make(map[string][]*models.Reservation)
	for _, r := range reservations {
		dateKey := r.Date.Format(models.DateLayout)
		daily[dateKey] = append(daily[dateKey], r)
	}
	return daily, nil
}

// CompleteElapsed flips elapsed confirmed reservations to completed.
// Idempotent; safe to run redundantly.
func (db *DB) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE reservations
	          SET status = ?, version = version + 1, updated_at = ?
	          WHERE status = ? AND datetime(date || ' ' || time) < datetime(?)`
	result, err := db.ExecContext(ctx, query,
		models.StatusCompleted, now, models.StatusConfirmed, now.Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("failed to complete elapsed reservations: %w", err)
	}
	return result.RowsAffected()
}

func collectReservations(rows *sql.Rows) ([]*models.Reservation, error) {
	var out []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
