package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/rummy-tracker/internal/factory"
	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/services/session"
)

// flushTimeout bounds the wait for queued saves before a command exits
const flushTimeout = 15 * time.Second

var (
	cfg *Config
	app *factory.App
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	app = nil
	var cfgErr error
	cfg, cfgErr = DefaultConfig()
	if cfgErr != nil {
		cfg = &Config{Output: "text"}
		cfg.App.LocalPath = defaultDataFile()
	}

	rootCmd := &cobra.Command{
		Use:   "rummy",
		Short: "Keep score for a game of Rummy",
		Long: `rummy tracks per-round scores for 2-6 players, flags players who reach the
max score and eliminates them once confirmed.

Games are saved to the configured store after every change, so another
device can follow along with "rummy watch".`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return cfgErr
			}
			if cfg.Output != "text" && cfg.Output != "json" {
				return fmt.Errorf("%w: output must be text or json", model.ErrValidation)
			}

			a, err := factory.New(cfg.App, newLogger(cfg.Verbose))
			if err != nil {
				return err
			}
			app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app == nil {
				return nil
			}
			return app.Close()
		},
		SilenceUsage: true,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfg.Game, "game", "g", cfg.Game, "Game name to act on (env: RUMMY_GAME)")
	flags.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")
	flags.StringVar(&cfg.App.StorageType, "store", cfg.App.StorageType, "Game store: memory, local, redis, kv, table (env: STORAGE_TYPE)")
	flags.StringVar(&cfg.App.LocalPath, "data", cfg.App.LocalPath, "Device data file (env: LOCAL_STATE_PATH)")
	flags.StringVar(&cfg.App.KV.Endpoint, "endpoint", cfg.App.KV.Endpoint, "Key-value endpoint URL (env: KV_ENDPOINT)")
	flags.StringVar(&cfg.App.Redis.URL, "redis-url", cfg.App.Redis.URL, "Redis URL (env: REDIS_URL)")
	flags.StringVar(&cfg.App.Table.Driver, "table-driver", cfg.App.Table.Driver, "SQL driver: sqlite, postgres, mysql (env: TABLE_DRIVER)")
	flags.StringVar(&cfg.App.Table.DSN, "table-dsn", cfg.App.Table.DSN, "SQL data source (env: TABLE_DSN)")
	flags.DurationVar(&cfg.App.PollInterval, "interval", cfg.App.PollInterval, "Refresh interval for watch (env: POLL_INTERVAL)")

	// Add subcommands
	rootCmd.AddCommand(newNewCmd())
	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newEditLastCmd())
	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newEndCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newResumeCmd())
	rootCmd.AddCommand(newRecentCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// gameKey returns the game named by --game, or the resumable game
func gameKey(ctx context.Context) (string, error) {
	if cfg.Game != "" {
		return cfg.Game, nil
	}
	ptr, err := app.Resume.Current(ctx)
	if err != nil {
		return "", err
	}
	if ptr == nil {
		return "", fmt.Errorf("%w: no game to resume, pass --game", model.ErrGameNotFound)
	}
	return ptr.Key, nil
}

// openGame loads the target game in the given mode
func openGame(ctx context.Context, mode session.Mode) (*session.Session, error) {
	key, err := gameKey(ctx)
	if err != nil {
		return nil, err
	}
	return app.Controller.Open(ctx, key, mode)
}

// flush waits for the session's saves so the command reports a failed save
func flush(ctx context.Context, sess *session.Session) error {
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := sess.Flush(ctx); err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}
