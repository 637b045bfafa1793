package storage

import (
	"context"

	"github.com/mcoot/rummy-tracker/internal/model"
)

// GameStore persists game snapshots under a string key.
//
// SaveGame is an idempotent upsert: the last writer wins. GetGame returns
// model.ErrGameNotFound when nothing is stored at key; any transport failure
// is wrapped with model.ErrStorageUnavailable.
type GameStore interface {
	SaveGame(ctx context.Context, key string, game *model.Game) error
	GetGame(ctx context.Context, key string) (*model.Game, error)
}

// GameLister is implemented by stores that can enumerate snapshots,
// used for the recent games view
type GameLister interface {
	ListGames(ctx context.Context, prefix string) ([]*model.Game, error)
}

// LocalState is device-local data that is never synced to a remote store
type LocalState interface {
	// Resume pointer operations. GetResumePointer returns nil when no game
	// is resumable.
	GetResumePointer(ctx context.Context) (*model.ResumePointer, error)
	SaveResumePointer(ctx context.Context, ptr *model.ResumePointer) error
	ClearResumePointer(ctx context.Context) error

	// Stats operations
	GetPlayerStats(ctx context.Context) (map[string]model.PlayerStats, error)
	SavePlayerStats(ctx context.Context, stats map[string]model.PlayerStats) error
}
