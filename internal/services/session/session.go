package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mcoot/rummy-tracker/internal/dependencies/clock"
	"github.com/mcoot/rummy-tracker/internal/model"
)

// Mode controls whether a session accepts mutating intents
type Mode string

const (
	ModeEdit Mode = "edit"
	ModeView Mode = "view" // Read-only, refreshed by the poller
)

// Action decides what happens to the game after pending eliminations
type Action string

const (
	ActionEnd      Action = "end"
	ActionContinue Action = "continue"
)

// Resolution is the outcome of resolving pending eliminations
type Resolution struct {
	Eliminated []string // Players newly knocked out
	GameOver   bool
	Winner     string // Set only when the game is over and someone is still active
}

// StatsRecorder records a finished game in device-local statistics
type StatsRecorder interface {
	RecordGame(ctx context.Context, game *model.Game, winner string) error
}

// ResumeTracker remembers the game a device can resume
type ResumeTracker interface {
	MarkActive(ctx context.Context, key string) error
	Clear(ctx context.Context, key string) error
}

// Session owns the in-memory state of one game and enforces the scoring and
// elimination rules. State changes are applied locally first and then handed
// to the writer.
//
// Mutations are expected one at a time from a single caller; the mutex also
// guards against the poller applying remote snapshots concurrently.
type Session struct {
	mu      sync.Mutex
	key     string
	mode    Mode
	game    *model.Game
	input   model.Round
	editing bool

	writer *Writer
	stats  StatsRecorder
	resume ResumeTracker
	clock  clock.Clock
	logger *slog.Logger

	listeners map[int]func(model.Event)
	nextID    int
}

// Key returns the store key of the game
func (s *Session) Key() string {
	return s.key
}

// Mode returns the current mode
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// ViewOnly reports whether the session is read-only
func (s *Session) ViewOnly() bool {
	return s.Mode() == ModeView
}

// SetMode switches between edit and view. Leaving edit mode drops any
// round edit in progress.
func (s *Session) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	if mode == ModeView {
		s.editing = false
		s.input = zeroRound(s.game.PlayerNames)
	}
}

// State returns a copy of the current snapshot
func (s *Session) State() *model.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Clone()
}

// Editing reports whether the next SaveRound overwrites the last round
func (s *Session) Editing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing
}

// RoundInput returns a copy of the scores pending for the next save
func (s *Session) RoundInput() model.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input.Clone()
}

// TotalScore returns a player's running total
func (s *Session) TotalScore(player string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.TotalScore(player)
}

// Totals returns every player's running total
func (s *Session) Totals() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Totals()
}

// PendingEliminations returns active players at or above the max score
func (s *Session) PendingEliminations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.PendingEliminations()
}

// Subscribe registers fn to be called after every state change. The returned
// function removes the subscription.
func (s *Session) Subscribe(fn func(model.Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[int]func(model.Event))
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// SetRoundInput stores a player's score for the round being entered,
// clamped to [0, model.MaxRoundScore]. It returns the stored value.
func (s *Session) SetRoundInput(player string, value int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWritable(); err != nil {
		return 0, err
	}
	if !s.game.HasPlayer(player) {
		return 0, fmt.Errorf("%w: unknown player %q", model.ErrValidation, player)
	}

	clamped := model.ClampRoundScore(value)
	s.input[player] = clamped
	return clamped, nil
}

// SaveRound commits the pending input, either as a new round or over the
// last round when an edit is in progress. It returns the players whose total
// now reaches the max score; they are not eliminated until
// ResolvePendingEliminations is called. Nothing is committed once ctx is done.
func (s *Session) SaveRound(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()

	if err := s.checkWritable(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	round := make(model.Round, len(s.game.PlayerNames))
	for _, p := range s.game.PlayerNames {
		round[p] = s.input[p]
	}

	eventType := model.EventRoundSaved
	if s.editing && len(s.game.RoundScores) > 0 {
		s.game.RoundScores[len(s.game.RoundScores)-1] = round
		eventType = model.EventRoundEdited
	} else {
		s.game.RoundScores = append(s.game.RoundScores, round)
		s.game.CurrentRound++
	}
	s.editing = false
	s.input = zeroRound(s.game.PlayerNames)

	pending := s.game.PendingEliminations()
	roundNumber := len(s.game.RoundScores)
	event := s.newEvent(eventType, model.RoundSavedPayload{
		RoundNumber:         roundNumber,
		Totals:              s.game.Totals(),
		PendingEliminations: pending,
	})
	s.persist()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "round saved",
		slog.String("game_id", s.key),
		slog.Int("round", roundNumber),
		slog.Bool("edited", eventType == model.EventRoundEdited),
		slog.Int("pending_eliminations", len(pending)),
	)
	s.emit(event)

	return pending, nil
}

// BeginEditLastRound seeds the pending input from the last round; the next
// SaveRound overwrites that round instead of appending.
func (s *Session) BeginEditLastRound() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ModeView {
		return model.ErrReadOnly
	}
	if s.game.GameOver {
		return fmt.Errorf("%w: cannot edit a finished game", model.ErrInvalidState)
	}
	if len(s.game.RoundScores) == 0 {
		return fmt.Errorf("%w: no round to edit", model.ErrInvalidState)
	}

	last := s.game.RoundScores[len(s.game.RoundScores)-1]
	s.input = zeroRound(s.game.PlayerNames)
	for _, p := range s.game.PlayerNames {
		s.input[p] = last[p]
	}
	s.editing = true
	return nil
}

// CancelEdit abandons an edit in progress and clears the pending input
func (s *Session) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = false
	s.input = zeroRound(s.game.PlayerNames)
}

// ResolvePendingEliminations commits the given eliminations. ActionEnd also
// ends the game; ActionContinue ends it only when nobody is left active.
func (s *Session) ResolvePendingEliminations(ctx context.Context, action Action, pending []string) (Resolution, error) {
	s.mu.Lock()

	if err := s.checkWritable(); err != nil {
		s.mu.Unlock()
		return Resolution{}, err
	}
	if action != ActionEnd && action != ActionContinue {
		s.mu.Unlock()
		return Resolution{}, fmt.Errorf("%w: unknown action %q", model.ErrValidation, action)
	}
	for _, p := range pending {
		if !s.game.HasPlayer(p) {
			s.mu.Unlock()
			return Resolution{}, fmt.Errorf("%w: unknown player %q", model.ErrValidation, p)
		}
	}

	var eliminated []string
	for _, p := range pending {
		if !s.game.IsEliminated(p) && !slices.Contains(eliminated, p) {
			eliminated = append(eliminated, p)
		}
	}
	s.game.Eliminate(eliminated)

	if action == ActionEnd || s.game.AllEliminated() {
		s.game.GameOver = true
		s.editing = false
	}

	res := Resolution{Eliminated: eliminated, GameOver: s.game.GameOver}
	if res.GameOver {
		res.Winner = s.game.Winner()
	}

	var events []model.Event
	if len(eliminated) > 0 {
		events = append(events, s.newEvent(model.EventPlayersEliminated, model.PlayersEliminatedPayload{Players: eliminated}))
	}
	if res.GameOver {
		events = append(events, s.newEvent(model.EventGameEnded, model.GameEndedPayload{Winner: res.Winner}))
	}
	finished := s.game.Clone()
	s.persist()
	s.mu.Unlock()

	s.logger.Info("eliminations resolved",
		slog.String("game_id", s.key),
		slog.String("action", string(action)),
		slog.Any("eliminated", eliminated),
		slog.Bool("game_over", res.GameOver),
		slog.String("winner", res.Winner),
	)

	if res.GameOver {
		s.finish(ctx, finished, res.Winner)
	}
	for _, e := range events {
		s.emit(e)
	}

	return res, nil
}

// EndGame ends the game explicitly, eliminating whoever is currently at or
// above the max score
func (s *Session) EndGame(ctx context.Context) (Resolution, error) {
	return s.ResolvePendingEliminations(ctx, ActionEnd, s.PendingEliminations())
}

// Reset clears rounds, eliminations and the game-over flag, keeping the
// roster, name and max score, and saves the cleared game under the same key
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()

	if s.mode == ModeView {
		s.mu.Unlock()
		return model.ErrReadOnly
	}

	s.game.ResetProgress()
	s.editing = false
	s.input = zeroRound(s.game.PlayerNames)
	event := s.newEvent(model.EventGameReset, nil)
	s.persist()
	s.mu.Unlock()

	s.logger.Info("game reset", slog.String("game_id", s.key))
	s.markActive(ctx)
	s.emit(event)
	return nil
}

// ApplyRemote replaces the round, elimination and game-over state with a
// snapshot loaded from the store. It reports whether anything changed.
// Snapshots are ignored outside view mode, and when they are invalid or
// belong to a game with a different roster or max score.
func (s *Session) ApplyRemote(remote *model.Game) bool {
	s.mu.Lock()

	if s.mode != ModeView || s.game.SameProgress(remote) {
		s.mu.Unlock()
		return false
	}
	if err := s.checkRemote(remote); err != nil {
		s.mu.Unlock()
		s.logger.Warn("ignoring remote state",
			slog.String("game_id", s.key),
			slog.String("error", err.Error()),
		)
		return false
	}

	fresh := remote.Clone()
	s.game.RoundScores = fresh.RoundScores
	if s.game.RoundScores == nil {
		s.game.RoundScores = []model.Round{}
	}
	s.game.CurrentRound = fresh.CurrentRound
	s.game.EliminatedPlayers = fresh.EliminatedPlayers
	if s.game.EliminatedPlayers == nil {
		s.game.EliminatedPlayers = []string{}
	}
	s.game.GameOver = fresh.GameOver
	event := s.newEvent(model.EventRemoteRefresh, nil)
	s.mu.Unlock()

	s.logger.Debug("remote state applied",
		slog.String("game_id", s.key),
		slog.Int("round", fresh.CurrentRound),
		slog.Bool("game_over", fresh.GameOver),
	)
	s.emit(event)
	return true
}

// Flush waits for queued saves and reports the latest save error once
func (s *Session) Flush(ctx context.Context) error {
	return s.writer.Flush(ctx)
}

// checkRemote must be called with mu held
func (s *Session) checkRemote(remote *model.Game) error {
	if err := remote.Validate(); err != nil {
		return err
	}
	if !slices.Equal(remote.PlayerNames, s.game.PlayerNames) || remote.MaxScore != s.game.MaxScore {
		return fmt.Errorf("%w: stored game %q was set up again with different players or max score", model.ErrInvalidState, s.key)
	}
	return nil
}

// checkWritable must be called with mu held
func (s *Session) checkWritable() error {
	if s.mode == ModeView {
		return model.ErrReadOnly
	}
	if s.game.GameOver {
		return model.ErrGameOver
	}
	return nil
}

// persist must be called with mu held
func (s *Session) persist() {
	s.writer.Submit(s.key, s.game.Clone())
}

// newEvent must be called with mu held
func (s *Session) newEvent(eventType model.EventType, payload any) model.Event {
	return model.Event{
		Type:      eventType,
		Timestamp: s.clock.Now(),
		GameName:  s.game.GameName,
		State:     s.game.Clone(),
		Payload:   payload,
	}
}

func (s *Session) emit(event model.Event) {
	s.mu.Lock()
	listeners := make([]func(model.Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(event)
	}
}

// finish updates device-local state once a game is over
func (s *Session) finish(ctx context.Context, game *model.Game, winner string) {
	if s.stats != nil {
		if err := s.stats.RecordGame(ctx, game, winner); err != nil {
			s.logger.Warn("failed to record stats",
				slog.String("game_id", s.key),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.resume != nil {
		if err := s.resume.Clear(ctx, s.key); err != nil {
			s.logger.Warn("failed to clear resume pointer",
				slog.String("game_id", s.key),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *Session) markActive(ctx context.Context) {
	if s.resume == nil {
		return
	}
	if err := s.resume.MarkActive(ctx, s.key); err != nil {
		s.logger.Warn("failed to mark game resumable",
			slog.String("game_id", s.key),
			slog.String("error", err.Error()),
		)
	}
}

func zeroRound(players []string) model.Round {
	r := make(model.Round, len(players))
	for _, p := range players {
		r[p] = 0
	}
	return r
}
