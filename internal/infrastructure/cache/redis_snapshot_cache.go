package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"holder-risk-engine/internal/domain/entity"
	"holder-risk-engine/internal/domain/repository"
	"holder-risk-engine/internal/infrastructure/config"
	"holder-risk-engine/internal/infrastructure/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisSnapshotCache implements SnapshotCache on top of Redis
type RedisSnapshotCache struct {
	client *redis.Client
	config *config.RedisConfig
	logger *logger.Logger
}

// NewRedisSnapshotCache creates a new Redis snapshot cache
func NewRedisSnapshotCache(cfg *config.RedisConfig, logger *logger.Logger) *RedisSnapshotCache {
	return &RedisSnapshotCache{
		config: cfg,
		logger: logger.WithComponent("redis-snapshot-cache"),
	}
}

var _ repository.SnapshotCache = (*RedisSnapshotCache)(nil)

// Connect connects to Redis
func (c *RedisSnapshotCache) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to Redis", zap.String("addr", c.config.Addr))

	client := redis.NewClient(&redis.Options{
		Addr:     c.config.Addr,
		Password: c.config.Password,
		DB:       c.config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		c.logger.Error("Failed to ping Redis", zap.Error(err))
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.client = client
	c.logger.Info("Successfully connected to Redis")
	return nil
}

// Close closes the Redis connection
func (c *RedisSnapshotCache) Close() error {
	if c.client != nil {
		c.logger.Info("Closing Redis connection")
		return c.client.Close()
	}
	return nil
}

// IsConnected checks if Redis answers a ping
func (c *RedisSnapshotCache) IsConnected(ctx context.Context) bool {
	if c.client == nil {
		return false
	}
	return c.client.Ping(ctx).Err() == nil
}

func (c *RedisSnapshotCache) key(tokenAddress string) string {
	return c.config.KeyPrefix + tokenAddress
}

// Get returns the cached snapshot of a token, or nil on a miss
func (c *RedisSnapshotCache) Get(ctx context.Context, tokenAddress string) (*entity.HolderSnapshot, error) {
	if c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, c.key(tokenAddress)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached snapshot: %w", err)
	}

	var snapshot entity.HolderSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}

	return &snapshot, nil
}

// Set stores a snapshot for the configured TTL
func (c *RedisSnapshotCache) Set(ctx context.Context, snapshot *entity.HolderSnapshot) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := c.client.Set(ctx, c.key(snapshot.TokenAddress), data, c.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}

	return nil
}
