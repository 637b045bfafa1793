package factory

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mcoot/rummy-tracker/internal/storage/kvhttp"
	redisstorage "github.com/mcoot/rummy-tracker/internal/storage/redis"
	"github.com/mcoot/rummy-tracker/internal/storage/table"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeLocal  = "local"
	StorageTypeRedis  = "redis"
	StorageTypeKV     = "kv"
	StorageTypeTable  = "table"
)

// Config holds configuration for the application factory
type Config struct {
	// StorageType selects where game snapshots live
	StorageType string `env:"STORAGE_TYPE" envDefault:"local"`

	// LocalPath is the JSON file holding device-local state (resume pointer
	// and stats), and the games themselves when StorageType is "local".
	// Empty keeps device-local state in memory.
	LocalPath string `env:"LOCAL_STATE_PATH"`

	// PollInterval is how often view-mode sessions reload the game
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`

	Redis redisstorage.Config
	KV    kvhttp.Config
	Table table.Config
}

// LoadConfig reads the factory configuration from the environment
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
