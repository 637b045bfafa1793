package resume

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mcoot/rummy-tracker/internal/dependencies/clock"
	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/storage"
)

// Service tracks which game this device can resume and lists recent games
type Service struct {
	local  storage.LocalState
	lister storage.GameLister
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a new resume Service. lister may be nil when the game store
// cannot enumerate snapshots.
func New(local storage.LocalState, lister storage.GameLister, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		local:  local,
		lister: lister,
		clock:  clock,
		logger: logger,
	}
}

// MarkActive makes key the game to resume
func (s *Service) MarkActive(ctx context.Context, key string) error {
	ptr := &model.ResumePointer{Key: key, UpdatedAt: s.clock.Now()}
	if err := s.local.SaveResumePointer(ctx, ptr); err != nil {
		return err
	}
	s.logger.Debug("resume pointer set", slog.String("game_id", key))
	return nil
}

// Current returns the game to resume, or nil when there is none
func (s *Service) Current(ctx context.Context) (*model.ResumePointer, error) {
	return s.local.GetResumePointer(ctx)
}

// Clear forgets the resume pointer if it still points at key
func (s *Service) Clear(ctx context.Context, key string) error {
	ptr, err := s.local.GetResumePointer(ctx)
	if err != nil {
		return err
	}
	if ptr == nil || ptr.Key != key {
		return nil
	}
	if err := s.local.ClearResumePointer(ctx); err != nil {
		return err
	}
	s.logger.Debug("resume pointer cleared", slog.String("game_id", key))
	return nil
}

// Recent lists stored games whose key starts with prefix, unfinished games
// first and then by name
func (s *Service) Recent(ctx context.Context, prefix string) ([]*model.Game, error) {
	if s.lister == nil {
		return nil, fmt.Errorf("%w: game store cannot list games", model.ErrInvalidState)
	}

	games, err := s.lister.ListGames(ctx, prefix)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(games, func(i, j int) bool {
		if games[i].GameOver != games[j].GameOver {
			return !games[i].GameOver
		}
		return games[i].GameName < games[j].GameName
	})
	return games, nil
}
