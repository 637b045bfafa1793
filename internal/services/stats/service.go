package stats

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/storage"
)

// Standing is one row of the device leaderboard
type Standing struct {
	Player string `json:"player"`
	Games  int    `json:"games"`
	Wins   int    `json:"wins"`
}

// Service keeps per-player game and win counts in device-local state
type Service struct {
	local  storage.LocalState
	logger *slog.Logger
	mu     sync.Mutex
}

// New creates a new stats Service
func New(local storage.LocalState, logger *slog.Logger) *Service {
	return &Service{
		local:  local,
		logger: logger,
	}
}

// RecordGame counts a finished game for every player on the roster and a win
// for winner, if any
func (s *Service) RecordGame(ctx context.Context, game *model.Game, winner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.local.GetPlayerStats(ctx)
	if err != nil {
		return err
	}
	if counts == nil {
		counts = make(map[string]model.PlayerStats)
	}

	for _, p := range game.PlayerNames {
		c := counts[p]
		c.Games++
		if p == winner {
			c.Wins++
		}
		counts[p] = c
	}

	if err := s.local.SavePlayerStats(ctx, counts); err != nil {
		return err
	}

	s.logger.Info("stats recorded",
		slog.String("game_id", game.GameName),
		slog.String("winner", winner),
		slog.Int("player_count", len(game.PlayerNames)),
	)
	return nil
}

// Standings returns every known player ordered by wins, then fewest games,
// then name
func (s *Service) Standings(ctx context.Context) ([]Standing, error) {
	counts, err := s.local.GetPlayerStats(ctx)
	if err != nil {
		return nil, err
	}

	standings := make([]Standing, 0, len(counts))
	for p, c := range counts {
		standings = append(standings, Standing{Player: p, Games: c.Games, Wins: c.Wins})
	}
	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.Games != b.Games {
			return a.Games < b.Games
		}
		return a.Player < b.Player
	})
	return standings, nil
}
