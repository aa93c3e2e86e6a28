package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/bird-count/internal/config"
)

func TestApplyOverrides_OnlyChangedFlags(t *testing.T) {
	cmd := newCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9000", "--redis", "--reveal_delay_ms", "1500"}))

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"

	opts := &options{}
	opts.port, _ = cmd.Flags().GetInt("port")
	opts.redis, _ = cmd.Flags().GetBool("redis")
	opts.revealDelay, _ = cmd.Flags().GetInt("reveal-delay-ms")
	applyOverrides(cfg, cmd.Flags(), opts)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 1500, cfg.Game.RevealDelayMs)
	// 未设置的参数保留配置文件的值
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 5, cfg.Game.TotalRounds)
}

func TestNewCmd_EnvOverride(t *testing.T) {
	t.Setenv("BIRDCOUNT_ROUNDS", "3")

	cmd := newCmd()
	rounds, err := cmd.Flags().GetInt("rounds")
	require.NoError(t, err)
	assert.Equal(t, 3, rounds)
	assert.True(t, cmd.Flags().Changed("rounds"))
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [oops"), 0o600))
	_, err = loadConfig(bad)
	assert.Error(t, err)

	good := filepath.Join(t.TempDir(), "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("game:\n  total_rounds: 7\n"), 0o600))
	cfg, err = loadConfig(good)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Game.TotalRounds)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	assert.NoError(t, validate(cfg))

	cfg.Server.Port = 70000
	assert.Error(t, validate(cfg))

	cfg = config.Default()
	cfg.Game.TotalRounds = 0
	assert.Error(t, validate(cfg))
}
