package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/storage"
)

// DefaultWriteTimeout bounds a single background save
const DefaultWriteTimeout = 10 * time.Second

type queuedWrite struct {
	key  string
	game *model.Game
}

// Writer flushes snapshots to a store in the background.
//
// At most one save is in flight. Snapshots submitted while a save runs are
// coalesced so only the newest one is written next. Failed saves are logged
// and not retried; the outcome of the latest save is reported once by Flush.
type Writer struct {
	store   storage.GameStore
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	queued  *queuedWrite
	running bool
	lastErr error
	waiters []chan error
}

// NewWriter creates a writer for the given store
func NewWriter(store storage.GameStore, logger *slog.Logger) *Writer {
	return &Writer{
		store:   store,
		logger:  logger,
		timeout: DefaultWriteTimeout,
	}
}

// Submit queues a snapshot for saving and returns immediately.
// The writer takes ownership of game.
func (w *Writer) Submit(key string, game *model.Game) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.queued = &queuedWrite{key: key, game: game}
	if !w.running {
		w.running = true
		go w.drain()
	}
}

// Flush waits until every submitted snapshot has been handled and returns the
// error of the latest save, if any. The error is reported only once.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		err := w.lastErr
		w.lastErr = nil
		w.mu.Unlock()
		return err
	}
	ch := make(chan error, 1)
	w.waiters = append(w.waiters, ch)
	w.mu.Unlock()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) drain() {
	for {
		w.mu.Lock()
		next := w.queued
		w.queued = nil
		if next == nil {
			w.running = false
			waiters := w.waiters
			w.waiters = nil
			err := w.lastErr
			if len(waiters) > 0 {
				w.lastErr = nil
			}
			w.mu.Unlock()

			for _, ch := range waiters {
				ch <- err
			}
			return
		}
		w.mu.Unlock()

		err := w.save(next)

		w.mu.Lock()
		w.lastErr = err
		w.mu.Unlock()
	}
}

func (w *Writer) save(write *queuedWrite) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.store.SaveGame(ctx, write.key, write.game); err != nil {
		w.logger.Error("failed to save game",
			slog.String("game_id", write.key),
			slog.Int("round", write.game.CurrentRound),
			slog.String("error", err.Error()),
		)
		return err
	}

	w.logger.Debug("game saved",
		slog.String("game_id", write.key),
		slog.Int("round", write.game.CurrentRound),
	)
	return nil
}
