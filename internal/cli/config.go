package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/mcoot/rummy-tracker/internal/factory"
	"github.com/mcoot/rummy-tracker/internal/storage/local"
)

// Config holds CLI configuration
type Config struct {
	Output  string `env:"RUMMY_OUTPUT" envDefault:"text"`
	Verbose bool   `env:"RUMMY_VERBOSE"`
	// Game is the key to act on; empty falls back to the resumable game
	Game string `env:"RUMMY_GAME"`

	App factory.Config
}

// DefaultConfig returns a Config populated from the environment
func DefaultConfig() (*Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if c.Output == "" {
		c.Output = "text"
	}
	if c.App.LocalPath == "" {
		c.App.LocalPath = defaultDataFile()
	}
	return &c, nil
}

func defaultDataFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".rummy", local.DefaultFileName)
	}
	return filepath.Join(home, ".rummy", local.DefaultFileName)
}
