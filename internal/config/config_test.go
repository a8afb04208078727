package config

import (
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ETH_RPC_URL", "http://localhost:8545")
	t.Setenv("GAME_CONTRACT_ADDRESS", "0x1111111111111111111111111111111111111111")
	t.Setenv("POSTGRES_URL", "postgres://localhost:5432/battleships")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "game-updates", cfg.UpdatesTopic)
	assert.Equal(t, int32(20), cfg.PostgresMaxConns)
	assert.Equal(t, uint64(12), cfg.ConfirmationDepth)
	assert.Equal(t, 10*time.Minute, cfg.ResyncInterval)
	assert.Equal(t, 8, cfg.RebuildConcurrency)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t,
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		cfg.Contract(),
	)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CONFIRMATION_DEPTH", "6")
	t.Setenv("RESYNC_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(6), cfg.ConfirmationDepth)
	assert.Equal(t, time.Minute, cfg.ResyncInterval)
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	// t.Setenv registers the restore; unset to simulate a missing variable.
	t.Setenv("ETH_RPC_URL", "")
	require.NoError(t, os.Unsetenv("ETH_RPC_URL"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateStreaming(t *testing.T) {
	setRequiredEnv(t)

	// Without a websocket endpoint the indexer cannot stream; it must fail
	// fast instead of burning through subscribe retries.
	cfg, err := Load()
	require.NoError(t, err)
	assert.Error(t, cfg.ValidateStreaming())

	t.Setenv("ETH_WS_URL", "ws://localhost:8546")
	cfg, err = Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateStreaming())
}

func TestLoadInvalidContract(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GAME_CONTRACT_ADDRESS", "not-an-address")

	_, err := Load()
	assert.Error(t, err)
}
