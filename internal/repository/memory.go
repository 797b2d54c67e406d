package repository

import (
	"context"
	"sync"
	"time"

	"salonbook/internal/models"
)

// MemoryWizardRepository is the in-process fallback store. Expiry is
// checked lazily on read.
type MemoryWizardRepository struct {
	states sync.Map
	ttl    time.Duration
}

type memoryEntry struct {
	state     *models.WizardState
	expiresAt time.Time
}

func NewMemoryWizardRepository(ttl time.Duration) *MemoryWizardRepository {
	return &MemoryWizardRepository{
		ttl: ttl,
	}
}

func (r *MemoryWizardRepository) GetState(ctx context.Context, clientID int64) (*models.WizardState, error) {
	val, ok := r.states.Load(clientID)
	if !ok {
		return nil, nil
	}
	entry := val.(*memoryEntry)
	if r.ttl > 0 && time.Now().After(entry.expiresAt) {
		r.states.Delete(clientID)
		return nil, nil
	}
	return entry.state, nil
}

func (r *MemoryWizardRepository) SetState(ctx context.Context, state *models.WizardState) error {
	r.states.Store(state.ClientID, &memoryEntry{
		state:     state,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryWizardRepository) ClearState(ctx context.Context, clientID int64) error {
	r.states.Delete(clientID)
	return nil
}
