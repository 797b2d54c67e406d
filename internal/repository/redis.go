package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisWizardRepository keeps wizard sessions in Redis with a TTL, so an
// abandoned wizard evaporates without leaving durable state.
type RedisWizardRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisWizardRepository(client *redis.Client, ttl time.Duration) *RedisWizardRepository {
	return &RedisWizardRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisWizardRepository) GetState(ctx context.Context, clientID int64) (*models.WizardState, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("wizard_state:%d", clientID)
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wizard state from redis: %w", err)
	}

	var state models.WizardState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wizard state: %w", err)
	}

	return &state, nil
}

func (r *RedisWizardRepository) SetState(ctx context.Context, state *models.WizardState) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("wizard_state:%d", state.ClientID)
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal wizard state: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set wizard state in redis: %w", err)
	}

	return nil
}

func (r *RedisWizardRepository) ClearState(ctx context.Context, clientID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("wizard_state:%d", clientID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete wizard state from redis: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
