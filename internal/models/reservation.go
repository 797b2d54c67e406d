package models

import (
	"fmt"
	"time"
)

type Reservation struct {
	ID              int64     `json:"id"`
	ClientID        int64     `json:"client_id"`
	ClientName      string    `json:"client_name"`
	EmployeeID      int64     `json:"employee_id"`
	EmployeeName    string    `json:"employee_name"`
	ServiceID       int64     `json:"service_id"`
	ServiceName     string    `json:"service_name"`
	StoreID         int64     `json:"store_id"`
	Date            time.Time `json:"date"`
	Time            string    `json:"time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int64     `json:"version"`
}

// StartsAt combines the calendar date with the HH:MM wall-clock time.
func (r *Reservation) StartsAt() time.Time {
	return CombineDateTime(r.Date, r.Time)
}

// EndsAt is StartsAt plus the service duration.
func (r *Reservation) EndsAt() time.Time {
	return r.StartsAt().Add(time.Duration(r.DurationMinutes) * time.Minute)
}

// Elapsed reports whether the scheduled start is in the past.
func (r *Reservation) Elapsed(now time.Time) bool {
	return r.StartsAt().Before(now)
}

// Active reports whether the reservation still occupies its slot.
func (r *Reservation) Active() bool {
	return r.Status != StatusCancelled
}

// TimeSlot is a transient availability marker, never persisted.
type TimeSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// ReservationView is a reservation plus the actions the client may take on it.
type ReservationView struct {
	Reservation
	CanCancel     bool `json:"can_cancel"`
	CanReschedule bool `json:"can_reschedule"`
	CanRate       bool `json:"can_rate"`
}

// Timeline partitions a client's reservations for display.
type Timeline struct {
	Upcoming []ReservationView `json:"upcoming"`
	History  []ReservationView `json:"history"`
}

// SessionContext carries the identity established by the external
// session/auth collaborator. The core never reads ambient state.
type SessionContext struct {
	ClientID int64
	StoreID  int64
}

// CombineDateTime builds a wall-clock instant from a date and an HH:MM
// string. A malformed time degrades to midnight rather than erroring,
// matching how date-only records behave.
func CombineDateTime(date time.Time, hhmm string) time.Time {
	tod, err := time.Parse(TimeLayout, hhmm)
	if err != nil {
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	}
	return time.Date(date.Year(), date.Month(), date.Day(), tod.Hour(), tod.Minute(), 0, 0, date.Location())
}

// ParseHHMM validates an HH:MM string and returns minutes since midnight.
func ParseHHMM(s string) (int, error) {
	tod, err := time.Parse(TimeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return tod.Hour()*60 + tod.Minute(), nil
}
