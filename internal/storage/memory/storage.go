package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/storage"
)

// Storage is an in-memory implementation of the storage interfaces
type Storage struct {
	mu sync.RWMutex

	games  map[string]*model.Game
	resume *model.ResumePointer
	stats  map[string]model.PlayerStats
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		games: make(map[string]*model.Game),
		stats: make(map[string]model.PlayerStats),
	}
}

// Ensure Storage implements the interfaces
var (
	_ storage.GameStore  = (*Storage)(nil)
	_ storage.GameLister = (*Storage)(nil)
	_ storage.LocalState = (*Storage)(nil)
)

// Game operations

func (s *Storage) SaveGame(ctx context.Context, key string, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[key] = game.Clone()
	return nil
}

func (s *Storage) GetGame(ctx context.Context, key string) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[key]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return game.Clone(), nil
}

func (s *Storage) ListGames(ctx context.Context, prefix string) ([]*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.games))
	for key := range s.games {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	games := make([]*model.Game, 0, len(keys))
	for _, key := range keys {
		games = append(games, s.games[key].Clone())
	}
	return games, nil
}

// Resume pointer operations

func (s *Storage) GetResumePointer(ctx context.Context) (*model.ResumePointer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.resume == nil {
		return nil, nil
	}
	ptr := *s.resume
	return &ptr, nil
}

func (s *Storage) SaveResumePointer(ctx context.Context, ptr *model.ResumePointer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *ptr
	s.resume = &p
	return nil
}

func (s *Storage) ClearResumePointer(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resume = nil
	return nil
}

// Stats operations

func (s *Storage) GetPlayerStats(ctx context.Context) (map[string]model.PlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.stats), nil
}

func (s *Storage) SavePlayerStats(ctx context.Context, stats map[string]model.PlayerStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = maps.Clone(stats)
	if s.stats == nil {
		s.stats = make(map[string]model.PlayerStats)
	}
	return nil
}
