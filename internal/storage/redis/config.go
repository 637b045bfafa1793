package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`

	// Pool settings
	PoolSize     int `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`

	// GameTTL expires idle games; zero keeps them forever
	GameTTL time.Duration `env:"REDIS_GAME_TTL" envDefault:"720h"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		GameTTL:      30 * 24 * time.Hour,
	}
}
