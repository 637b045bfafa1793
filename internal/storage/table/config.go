package table

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Supported SQL dialects
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config selects the database holding the games table
type Config struct {
	// Driver is one of "sqlite", "postgres" or "mysql"
	Driver string `env:"TABLE_DRIVER" envDefault:"sqlite"`
	// DSN is the driver-specific data source (a file path for sqlite)
	DSN string `env:"TABLE_DSN" envDefault:"rummy.db"`
}

// DefaultConfig returns an embedded sqlite database in the working directory
func DefaultConfig() Config {
	return Config{
		Driver: DriverSQLite,
		DSN:    "rummy.db",
	}
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return sqlite.Open(cfg.DSN), nil
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case DriverMySQL:
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("invalid table driver %q: must be sqlite, postgres or mysql", cfg.Driver)
	}
}
