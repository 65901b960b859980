package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv("STEPGRAPH_STORE", "redis")
	t.Setenv("STEPGRAPH_REDIS_ADDR", "cache:6379")
	t.Setenv("STEPGRAPH_REDIS_DB", "2")
	t.Setenv("STEPGRAPH_RUN_TTL", "1h")
	t.Setenv("STEPGRAPH_MASK_KEYS", "password, ,token")
	t.Setenv("STEPGRAPH_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.LogLevel = "warn"

	changed := map[string]bool{"log-level": true}
	require.NoError(t, cfg.ApplyEnv(func(flag string) bool { return changed[flag] }))

	assert.Equal(t, "redis", cfg.Store)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, time.Hour, cfg.RunTTL)
	assert.Equal(t, []string{"password", "token"}, cfg.MaskKeys)
	assert.Equal(t, "warn", cfg.LogLevel, "explicit flags win over the environment")
	assert.Equal(t, ".stepgraph", cfg.DataDir, "unset variables keep the default")
}

func TestConfig_ApplyEnvErrors(t *testing.T) {
	none := func(string) bool { return false }

	t.Run("Redis DB", func(t *testing.T) {
		t.Setenv("STEPGRAPH_REDIS_DB", "zero")
		cfg := DefaultConfig()
		assert.ErrorContains(t, cfg.ApplyEnv(none), "STEPGRAPH_REDIS_DB")
	})

	t.Run("Run TTL", func(t *testing.T) {
		t.Setenv("STEPGRAPH_RUN_TTL", "soon")
		cfg := DefaultConfig()
		assert.ErrorContains(t, cfg.ApplyEnv(none), "STEPGRAPH_RUN_TTL")
	})
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Equal(t, []string{"a", "b"}, SplitList(" a ,b,"))
}
