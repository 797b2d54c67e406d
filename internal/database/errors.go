package database

import "errors"

var (
	// ErrSlotTaken means another active reservation already occupies the
	// requested (employee, date, time) slot.
	ErrSlotTaken = errors.New("slot is already taken")

	// ErrPastDate rejects bookings scheduled before today.
	ErrPastDate = errors.New("date is in the past")

	// ErrDateTooFar rejects bookings beyond the allowed horizon.
	ErrDateTooFar = errors.New("date is too far in the future")

	// ErrConcurrentModification signals an optimistic version mismatch.
	ErrConcurrentModification = errors.New("reservation was modified concurrently")

	// ErrNotFound is returned for lookups of unknown records.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyRated enforces the one-rating-per-reservation rule.
	ErrAlreadyRated = errors.New("reservation is already rated")
)
