package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/testutil"
)

// gatedStore blocks every save until the test releases it
type gatedStore struct {
	mu      sync.Mutex
	saved   []int
	fail    error
	started chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (g *gatedStore) SaveGame(ctx context.Context, _ string, game *model.Game) error {
	g.started <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return g.fail
	}
	g.saved = append(g.saved, game.CurrentRound)
	return nil
}

func (g *gatedStore) GetGame(context.Context, string) (*model.Game, error) {
	return nil, model.ErrGameNotFound
}

func (g *gatedStore) savedRounds() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.saved...)
}

type WriterSuite struct {
	suite.Suite
	store  *gatedStore
	writer *Writer
	ctx    context.Context
}

func TestWriterSuite(t *testing.T) {
	suite.Run(t, new(WriterSuite))
}

func (s *WriterSuite) SetupTest() {
	s.store = newGatedStore()
	s.writer = NewWriter(s.store, testutil.NopLogger())
	s.ctx = context.Background()
}

func snapshot(round int) *model.Game {
	return &model.Game{GameName: "Friday", CurrentRound: round}
}

func (s *WriterSuite) waitStarted() {
	select {
	case <-s.store.started:
	case <-time.After(time.Second):
		s.FailNow("save did not start")
	}
}

func (s *WriterSuite) TestFlushWithNothingQueued() {
	s.NoError(s.writer.Flush(s.ctx))
}

func (s *WriterSuite) TestCoalescesQueuedSnapshots() {
	s.writer.Submit("Friday", snapshot(1))
	s.waitStarted()

	// Saves 2 and 3 queue behind the in-flight save; only 3 is written
	s.writer.Submit("Friday", snapshot(2))
	s.writer.Submit("Friday", snapshot(3))

	s.store.release <- struct{}{}
	s.waitStarted()
	s.store.release <- struct{}{}

	s.Require().NoError(s.writer.Flush(s.ctx))
	s.Equal([]int{1, 3}, s.store.savedRounds())
}

func (s *WriterSuite) TestFlushReportsErrorOnce() {
	s.store.fail = fmt.Errorf("%w: connection refused", model.ErrStorageUnavailable)

	s.writer.Submit("Friday", snapshot(1))
	s.waitStarted()
	s.store.release <- struct{}{}

	err := s.writer.Flush(s.ctx)
	s.ErrorIs(err, model.ErrStorageUnavailable)
	s.NoError(s.writer.Flush(s.ctx))
}

func (s *WriterSuite) TestLaterSuccessClearsEarlierFailure() {
	s.store.fail = errors.New("boom")
	s.writer.Submit("Friday", snapshot(1))
	s.waitStarted()

	s.writer.Submit("Friday", snapshot(2))
	s.store.release <- struct{}{}
	s.waitStarted()

	s.store.mu.Lock()
	s.store.fail = nil
	s.store.mu.Unlock()
	s.store.release <- struct{}{}

	s.NoError(s.writer.Flush(s.ctx))
	s.Equal([]int{2}, s.store.savedRounds())
}

func (s *WriterSuite) TestFlushHonoursContext() {
	s.writer.Submit("Friday", snapshot(1))
	s.waitStarted()

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()
	s.ErrorIs(s.writer.Flush(ctx), context.DeadlineExceeded)

	s.store.release <- struct{}{}
	s.NoError(s.writer.Flush(s.ctx))
}
