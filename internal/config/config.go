package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
)

// Config holds all configuration for the indexer.
type Config struct {
	// Ethereum node
	RPCURL          string `env:"ETH_RPC_URL,required"`
	WSURL           string `env:"ETH_WS_URL"`
	ContractAddress string `env:"GAME_CONTRACT_ADDRESS,required"`

	// PostgreSQL
	PostgresURL      string `env:"POSTGRES_URL,required"`
	PostgresMaxConns int32  `env:"POSTGRES_MAX_CONNS" envDefault:"20"`

	// Redis
	RedisURL      string `env:"REDIS_URL,required"`
	UpdatesTopic  string `env:"UPDATES_TOPIC" envDefault:"game-updates"`
	ConsumerGroup string `env:"CONSUMER_GROUP" envDefault:"api-stream"`

	// Orchestrator
	ConfirmationDepth   uint64        `env:"CONFIRMATION_DEPTH" envDefault:"12"`
	ResyncInterval      time.Duration `env:"RESYNC_INTERVAL" envDefault:"10m"`
	SubscribeMaxRetries int           `env:"SUBSCRIBE_MAX_RETRIES" envDefault:"25"`
	SubscribeRetryDelay time.Duration `env:"SUBSCRIBE_RETRY_DELAY" envDefault:"1s"`
	RebuildConcurrency  int           `env:"REBUILD_CONCURRENCY" envDefault:"8"`

	// HTTP API
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("GAME_CONTRACT_ADDRESS %q is not a valid address", cfg.ContractAddress)
	}
	return cfg, nil
}

// Contract returns the parsed game contract address.
func (c *Config) Contract() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// ValidateStreaming checks the extra settings the live indexer needs. The
// one-shot resync CLI runs without them, so Load leaves them optional.
func (c *Config) ValidateStreaming() error {
	if c.WSURL == "" {
		return errors.New("ETH_WS_URL is required for live streaming")
	}
	return nil
}
