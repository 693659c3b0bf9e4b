package cache

import (
	"context"
	"testing"

	"holder-risk-engine/internal/domain/entity"
	"holder-risk-engine/internal/infrastructure/config"
	"holder-risk-engine/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSnapshotCache_DisconnectedIsNoop(t *testing.T) {
	c := NewRedisSnapshotCache(&config.RedisConfig{KeyPrefix: "holder-risk:snapshot:"}, logger.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &entity.HolderSnapshot{TokenAddress: "abc"}))

	snapshot, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, snapshot)
	assert.False(t, c.IsConnected(ctx))
	assert.NoError(t, c.Close())
}

func TestRedisSnapshotCache_Key(t *testing.T) {
	c := NewRedisSnapshotCache(&config.RedisConfig{KeyPrefix: "holder-risk:snapshot:"}, logger.NewNopLogger())
	assert.Equal(t, "holder-risk:snapshot:abc", c.key("abc"))
}
