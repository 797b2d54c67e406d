package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"salonbook/internal/models"
)

// CreateRating inserts a rating inside a transaction that re-verifies the
// reservation is completed and not yet rated by this client.
func (db *DB) CreateRating(ctx context.Context, rating *models.RatingRecord) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM reservations WHERE id = ? AND client_id = ?`,
		rating.ReservationID, rating.ClientID).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load reservation status: %w", err)
	}
	if status != models.StatusCompleted {
		return fmt.Errorf("reservation %d is not completed", rating.ReservationID)
	}

	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ratings WHERE client_id = ? AND reservation_id = ?`,
		rating.ClientID, rating.ReservationID).Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to check existing rating: %w", err)
	}
	if existing > 0 {
		return ErrAlreadyRated
	}

	now := time.Now()
	if rating.Date.IsZero() {
		rating.Date = now
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO ratings (client_id, client_name, employee_id, service_id, service_name,
		                      reservation_id, score, comment, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rating.ClientID,
		rating.ClientName,
		rating.EmployeeID,
		rating.ServiceID,
		rating.ServiceName,
		rating.ReservationID,
		rating.Score,
		rating.Comment,
		rating.Date.Format(models.DateLayout),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rating: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rating.ID = id
	rating.CreatedAt = now

	return tx.Commit()
}

// GetRatings returns an employee's ratings newest first, optionally scoped
// to one service (serviceID 0 means all services).
func (db *DB) GetRatings(ctx context.Context, employeeID, serviceID int64) ([]models.RatingRecord, error) {
	query := `SELECT id, client_id, client_name, employee_id, service_id, service_name,
	                 reservation_id, score, comment, date, created_at
	          FROM ratings WHERE employee_id = ?`
	args := []any{employeeID}
	if serviceID != 0 {
		query += ` AND service_id = ?`
		args = append(args, serviceID)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get ratings: %w", err)
	}
	defer rows.Close()

	var out []models.RatingRecord
	for rows.Next() {
		var r models.RatingRecord
		var dateStr string
		err := rows.Scan(
			&r.ID, &r.ClientID, &r.ClientName, &r.EmployeeID, &r.ServiceID, &r.ServiceName,
			&r.ReservationID, &r.Score, &r.Comment, &dateStr, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		r.Date, _ = time.ParseInLocation(models.DateLayout, dateStr, time.Local)
		out = append(out, r)
	}
	return out, rows.Err()
}

// HasRating reports whether the client already rated the reservation.
func (db *DB) HasRating(ctx context.Context, clientID, reservationID int64) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ratings WHERE client_id = ? AND reservation_id = ?`,
		clientID, reservationID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check rating: %w", err)
	}
	return count > 0, nil
}

// RatedReservationIDs returns the set of reservation ids the client has
// rated, for timeline action flags.
func (db *DB) RatedReservationIDs(ctx context.Context, clientID int64) (map[int64]struct{}, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT reservation_id FROM ratings WHERE client_id = ?`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rated reservations: %w", err)
	}
	defer rows.Close()

	rated := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan reservation id: %w", err)
		}
		rated[id] = struct{}{}
	}
	return rated, rows.Err()
}
