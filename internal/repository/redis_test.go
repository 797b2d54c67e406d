package repository

import (
	"context"
	"testing"
	"time"

	"salonbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisWizardRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisWizardRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetState", func(t *testing.T) {
		state := models.NewWizardState(models.SessionContext{ClientID: 123, StoreID: 1}, "h-1")
		state = state.SelectService(7)

		err := repo.SetState(ctx, &state)
		require.NoError(t, err)

		got, err := repo.GetState(ctx, 123)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, state.ClientID, got.ClientID)
		assert.Equal(t, models.StepServiceSelection, got.Step)
		assert.Equal(t, int64(7), got.ServiceID)
	})

	t.Run("GetNonExistentState", func(t *testing.T) {
		got, err := repo.GetState(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearState", func(t *testing.T) {
		state := models.NewWizardState(models.SessionContext{ClientID: 456}, "h-2")
		require.NoError(t, repo.SetState(ctx, &state))

		err := repo.ClearState(ctx, 456)
		require.NoError(t, err)

		got, _ := repo.GetState(ctx, 456)
		assert.Nil(t, got)
	})

	t.Run("StateExpires", func(t *testing.T) {
		state := models.NewWizardState(models.SessionContext{ClientID: 789}, "h-3")
		require.NoError(t, repo.SetState(ctx, &state))

		s.FastForward(2 * time.Hour)

		got, err := repo.GetState(ctx, 789)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("NilClient", func(t *testing.T) {
		nilRepo := NewRedisWizardRepository(nil, time.Hour)
		_, err := nilRepo.GetState(ctx, 1)
		assert.Error(t, err)
		assert.Error(t, nilRepo.SetState(ctx, &models.WizardState{ClientID: 1}))
		assert.Error(t, nilRepo.ClearState(ctx, 1))
	})
}
