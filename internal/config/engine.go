package config

import (
	"errors"

	"github.com/andrew-solarstorm/go-packages/common"
)

type EngineConfig struct {
	// DBPath is the bolt file holding pools, positions, accounts and events.
	DBPath string

	PersistenceEnabled bool

	// PersistInterval is how often dirty state is batch-saved, in seconds.
	PersistInterval int

	// AdminToken guards the admin API. Admin routes reject every request
	// when it is empty.
	AdminToken string

	// FaucetEnabled lets accounts mint test balances.
	FaucetEnabled bool

	// EventBuffer is the number of recent events kept in memory.
	EventBuffer int

	RateLimit int
	RateBurst int
}

func (c *EngineConfig) Key() string {
	return ENGINE_CONFIG_KEY
}

func (c *EngineConfig) Load() error {
	c.DBPath = common.GetEnvOrDefault("ENGINE_DB_PATH", "./data/clmm.db")
	c.PersistenceEnabled = common.GetEnvOrDefault("ENGINE_PERSISTENCE_ENABLED", "true") == "true"
	c.PersistInterval = common.GetEnvOrDefaultInt("ENGINE_PERSIST_INTERVAL", 10)
	c.AdminToken = common.GetEnvOrDefault("ENGINE_ADMIN_TOKEN", "")
	c.FaucetEnabled = common.GetEnvOrDefault("ENGINE_FAUCET_ENABLED", "false") == "true"
	c.EventBuffer = common.GetEnvOrDefaultInt("ENGINE_EVENT_BUFFER", 4096)
	c.RateLimit = common.GetEnvOrDefaultInt("HTTP_RATE_LIMIT", 10)
	c.RateBurst = common.GetEnvOrDefaultInt("HTTP_RATE_BURST", 20)
	return c.Validate()
}

func (c *EngineConfig) Validate() error {
	if c.PersistenceEnabled && (c.DBPath == "" || c.PersistInterval <= 0) {
		return errors.New("invalid engine persistence config")
	}
	if c.EventBuffer <= 0 || c.RateLimit <= 0 || c.RateBurst < c.RateLimit {
		return errors.New("invalid engine limits")
	}
	return nil
}
