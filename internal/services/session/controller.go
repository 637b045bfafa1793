package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/rummy-tracker/internal/dependencies/clock"
	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/storage"
)

// Controller creates and opens game sessions against a store
type Controller struct {
	store  storage.GameStore
	stats  StatsRecorder
	resume ResumeTracker
	clock  clock.Clock
	logger *slog.Logger
}

// NewController creates a new Controller. stats and resume may be nil.
func NewController(
	store storage.GameStore,
	stats StatsRecorder,
	resume ResumeTracker,
	clock clock.Clock,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		store:  store,
		stats:  stats,
		resume: resume,
		clock:  clock,
		logger: logger,
	}
}

// Create validates the setup and starts a new game in edit mode. The game is
// keyed by its name; saving it replaces any game already stored there.
func (c *Controller) Create(ctx context.Context, playerNames []string, gameName string, maxScore int) (*Session, error) {
	game, err := model.NewGame(playerNames, gameName, maxScore)
	if err != nil {
		return nil, err
	}

	s := c.newSession(game.GameName, ModeEdit, game)
	s.mu.Lock()
	s.persist()
	event := s.newEvent(model.EventGameCreated, nil)
	s.mu.Unlock()

	c.logger.Info("game created",
		slog.String("game_id", s.key),
		slog.Int("player_count", len(game.PlayerNames)),
		slog.Int("max_score", game.MaxScore),
	)

	s.markActive(ctx)
	s.emit(event)
	return s, nil
}

// Open loads a stored game. In edit mode an unfinished game also becomes the
// device's resume target.
func (c *Controller) Open(ctx context.Context, key string, mode Mode) (*Session, error) {
	if mode != ModeEdit && mode != ModeView {
		return nil, fmt.Errorf("%w: unknown mode %q", model.ErrValidation, mode)
	}

	game, err := c.store.GetGame(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := game.Validate(); err != nil {
		return nil, fmt.Errorf("%w: stored game %q: %w", model.ErrInvalidState, key, err)
	}
	if game.RoundScores == nil {
		game.RoundScores = []model.Round{}
	}
	if game.EliminatedPlayers == nil {
		game.EliminatedPlayers = []string{}
	}

	s := c.newSession(key, mode, game)

	c.logger.Debug("game opened",
		slog.String("game_id", key),
		slog.String("mode", string(mode)),
		slog.Int("round", game.CurrentRound),
	)

	if mode == ModeEdit && !game.GameOver {
		s.markActive(ctx)
	}
	return s, nil
}

func (c *Controller) newSession(key string, mode Mode, game *model.Game) *Session {
	return &Session{
		key:    key,
		mode:   mode,
		game:   game,
		input:  zeroRound(game.PlayerNames),
		writer: NewWriter(c.store, c.logger),
		stats:  c.stats,
		resume: c.resume,
		clock:  c.clock,
		logger: c.logger,
	}
}
