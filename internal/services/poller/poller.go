package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/storage"
)

// DefaultInterval is how often a viewer reloads the game
const DefaultInterval = 2 * time.Second

// Target is the session a poller keeps up to date
type Target interface {
	Key() string
	ViewOnly() bool
	ApplyRemote(game *model.Game) bool
}

// Poller reloads a game from the store on a fixed interval and applies any
// change to its target. Load failures are logged and never stop the loop.
type Poller struct {
	store    storage.GameStore
	target   Target
	interval time.Duration
	logger   *slog.Logger

	inFlight atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New creates a poller. A non-positive interval uses DefaultInterval.
func New(store storage.GameStore, target Target, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		store:    store,
		target:   target,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Run polls until ctx is cancelled, Stop is called, the target leaves view
// mode or a loaded snapshot shows the game is over. A load still in flight
// is cancelled and waited for before Run returns.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.wg.Wait()

	// Cancelled before the wait above so a slow load cannot hold up Stop
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	var doneOnce sync.Once
	finish := func() { doneOnce.Do(func() { close(done) }) }

	p.logger.Debug("poller started",
		slog.String("game_id", p.target.Key()),
		slog.Duration("interval", p.interval),
	)

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("poller cancelled", slog.String("game_id", p.target.Key()))
			return
		case <-p.stop:
			p.logger.Debug("poller stopped", slog.String("game_id", p.target.Key()))
			return
		case <-done:
			p.logger.Debug("poller finished", slog.String("game_id", p.target.Key()))
			return
		case <-ticker.C:
			if !p.target.ViewOnly() {
				p.logger.Debug("poller stopped, left view mode", slog.String("game_id", p.target.Key()))
				return
			}
			if !p.inFlight.CompareAndSwap(false, true) {
				p.logger.Debug("skipping tick, load in flight", slog.String("game_id", p.target.Key()))
				continue
			}
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				defer p.inFlight.Store(false)
				if p.poll(ctx) {
					finish()
				}
			}()
		}
	}
}

// Stop ends the loop. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// poll loads the game once and reports whether it is over. Snapshots that
// fail validation are skipped.
func (p *Poller) poll(ctx context.Context) bool {
	loadCtx, cancel := context.WithTimeout(ctx, p.interval*5)
	defer cancel()

	game, err := p.store.GetGame(loadCtx, p.target.Key())
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("failed to refresh game",
				slog.String("game_id", p.target.Key()),
				slog.String("error", err.Error()),
			)
		}
		return false
	}
	if err := game.Validate(); err != nil {
		p.logger.Warn("skipping invalid game snapshot",
			slog.String("game_id", p.target.Key()),
			slog.String("error", err.Error()),
		)
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	if p.target.ApplyRemote(game) {
		p.logger.Debug("game refreshed",
			slog.String("game_id", p.target.Key()),
			slog.Int("round", game.CurrentRound),
		)
	}
	return game.GameOver
}
