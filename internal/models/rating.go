package models

import "time"

// RatingRecord is created at most once per (client, reservation) and only
// for completed reservations. Immutable once written.
type RatingRecord struct {
	ID            int64     `json:"id"`
	ClientID      int64     `json:"client_id"`
	ClientName    string    `json:"client_name,omitempty"`
	EmployeeID    int64     `json:"employee_id"`
	ServiceID     int64     `json:"service_id"`
	ServiceName   string    `json:"service_name,omitempty"`
	ReservationID int64     `json:"reservation_id"`
	Score         int       `json:"score"`
	Comment       string    `json:"comment,omitempty"`
	Date          time.Time `json:"date"`
	Sample        bool      `json:"sample,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RatingSummary aggregates an employee's ratings, optionally scoped to a
// single service.
type RatingSummary struct {
	EmployeeID int64          `json:"employee_id"`
	ServiceID  int64          `json:"service_id,omitempty"`
	Average    float64        `json:"average"`
	Total      int            `json:"total"`
	Records    []RatingRecord `json:"records"`
}
