package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"salonbook/internal/models"

	"github.com/stretchr/testify/assert"
)

// Two clients racing for the same (employee, date, time) slot: exactly one
// create succeeds, the rest observe ErrSlotTaken.
func TestConcurrentSlotAcquisition(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	date := time.Date(2025, 5, 10, 0, 0, 0, 0, time.Local)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			r := testReservation(int64(id), 1, date, "10:00", 30)
			results <- db.CreateReservationWithLock(ctx, r)
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	conflictCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, ErrSlotTaken):
			conflictCount++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successCount)
	assert.Equal(t, numGoroutines-1, conflictCount)

	got, err := db.GetActiveReservations(ctx, 1, date)
	assert.NoError(t, err)
	assert.Len(t, got, 1)
}

// Rescheduling frees the old slot and takes the new one atomically: at no
// point are both slots occupied, and at no point are both free.
func TestRescheduleAtomicity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	date := time.Date(2025, 5, 10, 0, 0, 0, 0, time.Local)

	r := testReservation(100, 1, date, "10:00", 60)
	assert.NoError(t, db.CreateReservationWithLock(ctx, r))
	assert.NoError(t, db.UpdateReservationStatusWithVersion(ctx, r.ID, 1, models.StatusConfirmed))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = db.RescheduleReservationWithLock(ctx, r.ID, 2, date, "14:00")
	}()

	// Concurrent availability reads must always see exactly one occupied
	// slot for the employee.
	for i := 0; i < 50; i++ {
		active, err := db.GetActiveReservations(ctx, 1, date)
		assert.NoError(t, err)
		assert.Len(t, active, 1)
	}

	<-done
	got, err := db.GetReservation(ctx, r.ID)
	assert.NoError(t, err)
	assert.Equal(t, "14:00", got.Time)
}
