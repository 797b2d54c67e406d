package repository

import (
	"context"
	"sync/atomic"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

// FailoverWizardRepository prefers the primary store and falls back to the
// secondary when the primary errors, probing for recovery once a minute.
type FailoverWizardRepository struct {
	primary   domain.WizardRepository
	fallback  domain.WizardRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverWizardRepository(primary, fallback domain.WizardRepository, logger *zerolog.Logger) *FailoverWizardRepository {
	return &FailoverWizardRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverWizardRepository) GetState(ctx context.Context, clientID int64) (*models.WizardState, error) {
	if !r.isDown.Load() {
		state, err := r.primary.GetState(ctx, clientID)
		if err == nil {
			return state, nil
		}
		r.logger.Error().Err(err).Msg("primary wizard store failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		state, err := r.primary.GetState(ctx, clientID)
		if err == nil {
			r.isDown.Store(false)
			return state, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetState(ctx, clientID)
}

func (r *FailoverWizardRepository) SetState(ctx context.Context, state *models.WizardState) error {
	if !r.isDown.Load() {
		err := r.primary.SetState(ctx, state)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("primary wizard store failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetState(ctx, state)
}

func (r *FailoverWizardRepository) ClearState(ctx context.Context, clientID int64) error {
	if !r.isDown.Load() {
		err := r.primary.ClearState(ctx, clientID)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("primary wizard store failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.ClearState(ctx, clientID)
}
