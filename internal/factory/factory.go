package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/rummy-tracker/internal/dependencies/clock"
	"github.com/mcoot/rummy-tracker/internal/services/poller"
	"github.com/mcoot/rummy-tracker/internal/services/resume"
	"github.com/mcoot/rummy-tracker/internal/services/session"
	"github.com/mcoot/rummy-tracker/internal/services/stats"
	"github.com/mcoot/rummy-tracker/internal/storage"
	"github.com/mcoot/rummy-tracker/internal/storage/kvhttp"
	"github.com/mcoot/rummy-tracker/internal/storage/local"
	"github.com/mcoot/rummy-tracker/internal/storage/memory"
	redisstorage "github.com/mcoot/rummy-tracker/internal/storage/redis"
	"github.com/mcoot/rummy-tracker/internal/storage/table"
)

// App contains all wired application components
type App struct {
	// Storage
	Store  storage.GameStore
	Lister storage.GameLister // nil when Store cannot enumerate games
	Local  storage.LocalState

	// External dependencies
	Clock  clock.Clock
	Logger *slog.Logger

	// Services
	Controller   *session.Controller
	Stats        *stats.Service
	Resume       *resume.Service
	PollInterval time.Duration

	closers []io.Closer
}

// New creates a new application with all dependencies wired.
// A nil logger discards all output.
func New(cfg Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if storageTypeOrDefault(cfg.StorageType) == StorageTypeLocal && cfg.LocalPath == "" {
		cfg.LocalPath = local.DefaultFileName
	}

	var localState storage.LocalState
	if cfg.LocalPath != "" {
		fileStore, err := local.New(cfg.LocalPath)
		if err != nil {
			return nil, err
		}
		localState = fileStore
	} else {
		localState = memory.New()
	}

	store, closer, err := newGameStore(cfg, localState)
	if err != nil {
		return nil, err
	}

	app := newWithDependencies(store, localState, clock.New(), cfg.PollInterval, logger)
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	logger.Debug("application wired",
		slog.String("storage_type", storageTypeOrDefault(cfg.StorageType)),
		slog.Bool("lists_games", app.Lister != nil),
	)
	return app, nil
}

func storageTypeOrDefault(storageType string) string {
	if storageType == "" {
		return StorageTypeLocal
	}
	return storageType
}

// newGameStore opens the configured backend. The local backend shares the
// device-local document.
func newGameStore(cfg Config, localState storage.LocalState) (storage.GameStore, io.Closer, error) {
	switch storageTypeOrDefault(cfg.StorageType) {
	case StorageTypeMemory:
		return memory.New(), nil, nil
	case StorageTypeLocal:
		fileStore, ok := localState.(*local.Storage)
		if !ok {
			return nil, nil, errors.New("LOCAL_STATE_PATH required when STORAGE_TYPE is local")
		}
		return fileStore, nil, nil
	case StorageTypeRedis:
		if cfg.Redis.URL == "" {
			return nil, nil, errors.New("REDIS_URL required when STORAGE_TYPE is redis")
		}
		redisStore, err := redisstorage.New(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redisStore, redisStore, nil
	case StorageTypeKV:
		kvStore, err := kvhttp.New(cfg.KV)
		if err != nil {
			return nil, nil, err
		}
		return kvStore, nil, nil
	case StorageTypeTable:
		tableStore, err := table.Open(cfg.Table)
		if err != nil {
			return nil, nil, err
		}
		return tableStore, tableStore, nil
	default:
		return nil, nil, fmt.Errorf("invalid StorageType %q: must be memory, local, redis, kv or table", cfg.StorageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.GameStore,
	localState storage.LocalState,
	clk clock.Clock,
	pollInterval time.Duration,
	logger *slog.Logger,
) *App {
	if pollInterval <= 0 {
		pollInterval = poller.DefaultInterval
	}

	lister, _ := store.(storage.GameLister)
	statsService := stats.New(localState, logger)
	resumeService := resume.New(localState, lister, clk, logger)
	controller := session.NewController(store, statsService, resumeService, clk, logger)

	return &App{
		Store:        store,
		Lister:       lister,
		Local:        localState,
		Clock:        clk,
		Logger:       logger,
		Controller:   controller,
		Stats:        statsService,
		Resume:       resumeService,
		PollInterval: pollInterval,
	}
}

// NewPoller creates a live-refresh poller for a view-mode session
func (a *App) NewPoller(target poller.Target) *poller.Poller {
	return poller.New(a.Store, target, a.PollInterval, a.Logger)
}

// Close releases backend connections
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
