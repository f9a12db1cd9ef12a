package keeper

import (
	"testing"
	"time"

	"github.com/smallbiznis/relaypay/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestProvideConfigAppliesDefaults(t *testing.T) {
	cfg := ProvideConfig(config.Config{KeeperInterval: 5 * time.Minute, KeeperSchedule: "*/10 * * * *"})

	assert.Equal(t, 5*time.Minute, cfg.RunInterval)
	assert.Equal(t, "*/10 * * * *", cfg.Schedule)
	assert.Equal(t, DefaultConfig().BatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultConfig().LockKey, cfg.LockKey)
	assert.Equal(t, time.Minute, cfg.LockTTL)
}

func TestNewRedisLockerNilClient(t *testing.T) {
	assert.Nil(t, NewRedisLocker(nil))

	var l *RedisLocker
	_, ok, err := l.TryLock(t.Context(), "k", time.Second)
	assert.False(t, ok)
	assert.Error(t, err)
	assert.NoError(t, l.Release(t.Context(), "k", "t"))
}
