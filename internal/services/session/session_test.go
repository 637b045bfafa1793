package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/rummy-tracker/internal/dependencies/mocks"
	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/storage/memory"
	"github.com/mcoot/rummy-tracker/internal/testutil"
)

type recordedGame struct {
	game   *model.Game
	winner string
}

type fakeStats struct {
	mu       sync.Mutex
	recorded []recordedGame
}

func (f *fakeStats) RecordGame(_ context.Context, game *model.Game, winner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, recordedGame{game: game, winner: winner})
	return nil
}

type fakeResume struct {
	mu      sync.Mutex
	active  string
	cleared []string
}

func (f *fakeResume) MarkActive(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = key
	return nil
}

func (f *fakeResume) Clear(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, key)
	if f.active == key {
		f.active = ""
	}
	return nil
}

type SessionSuite struct {
	suite.Suite
	store      *memory.Storage
	stats      *fakeStats
	resume     *fakeResume
	clock      *mocks.MockClock
	controller *Controller
	ctx        context.Context
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.store = memory.New()
	s.stats = &fakeStats{}
	s.resume = &fakeResume{}
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.controller = NewController(s.store, s.stats, s.resume, s.clock, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *SessionSuite) newSession(maxScore int, players ...string) *Session {
	sess, err := s.controller.Create(s.ctx, players, "Friday", maxScore)
	s.Require().NoError(err)
	return sess
}

func (s *SessionSuite) playRound(sess *Session, scores map[string]int) []string {
	for p, v := range scores {
		_, err := sess.SetRoundInput(p, v)
		s.Require().NoError(err)
	}
	pending, err := sess.SaveRound(s.ctx)
	s.Require().NoError(err)
	return pending
}

// Create tests

func (s *SessionSuite) TestCreateStartsFreshGame() {
	sess := s.newSession(101, " Asha ", "Ben")

	game := sess.State()
	s.Equal("Friday", game.GameName)
	s.Equal(101, game.MaxScore)
	s.Equal([]string{"Asha", "Ben"}, game.PlayerNames)
	s.Empty(game.RoundScores)
	s.Equal(1, game.CurrentRound)
	s.False(game.GameOver)
	s.Empty(game.EliminatedPlayers)
	s.Equal(ModeEdit, sess.Mode())
	s.Equal("Friday", sess.Key())
}

func (s *SessionSuite) TestCreateRejectsInvalidSetup() {
	cases := []struct {
		name     string
		players  []string
		game     string
		maxScore int
	}{
		{"one player", []string{"Asha"}, "Friday", 101},
		{"seven players", []string{"a", "b", "c", "d", "e", "f", "g"}, "Friday", 101},
		{"blank player", []string{"Asha", "  "}, "Friday", 101},
		{"duplicate player", []string{"Asha", "Asha"}, "Friday", 101},
		{"zero max score", []string{"Asha", "Ben"}, "Friday", 0},
		{"negative max score", []string{"Asha", "Ben"}, "Friday", -5},
		{"blank game name", []string{"Asha", "Ben"}, " ", 101},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.controller.Create(s.ctx, tc.players, tc.game, tc.maxScore)
			s.ErrorIs(err, model.ErrValidation)
		})
	}
}

func (s *SessionSuite) TestCreatePersistsAndMarksResumable() {
	sess := s.newSession(101, "Asha", "Ben")
	s.Require().NoError(sess.Flush(s.ctx))

	stored, err := s.store.GetGame(s.ctx, "Friday")
	s.Require().NoError(err)
	s.Equal(sess.State(), stored)
	s.Equal("Friday", s.resume.active)
}

// Open tests

func (s *SessionSuite) TestOpenMissingGame() {
	_, err := s.controller.Open(s.ctx, "nope", ModeEdit)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *SessionSuite) TestOpenLoadsStoredState() {
	sess := s.newSession(101, "Asha", "Ben")
	s.playRound(sess, map[string]int{"Asha": 40, "Ben": 50})
	s.Require().NoError(sess.Flush(s.ctx))

	opened, err := s.controller.Open(s.ctx, "Friday", ModeView)
	s.Require().NoError(err)
	s.Equal(sess.State(), opened.State())
	s.True(opened.ViewOnly())
}

func (s *SessionSuite) TestOpenRejectsUnknownMode() {
	_, err := s.controller.Open(s.ctx, "Friday", Mode("admin"))
	s.ErrorIs(err, model.ErrValidation)
}

// Scoring tests

func (s *SessionSuite) TestTotalScoreSumsRounds() {
	sess := s.newSession(500, "Asha", "Ben", "Cy")
	s.playRound(sess, map[string]int{"Asha": 10, "Ben": 20})
	s.playRound(sess, map[string]int{"Asha": 5, "Cy": 80})
	s.playRound(sess, map[string]int{"Ben": 1})

	s.Equal(15, sess.TotalScore("Asha"))
	s.Equal(21, sess.TotalScore("Ben"))
	s.Equal(80, sess.TotalScore("Cy"))
	s.Equal(0, sess.TotalScore("Nobody"))
	s.Equal(map[string]int{"Asha": 15, "Ben": 21, "Cy": 80}, sess.Totals())
}

func (s *SessionSuite) TestTotalScoreZeroWithoutRounds() {
	sess := s.newSession(101, "Asha", "Ben")
	s.Equal(0, sess.TotalScore("Asha"))
}

func (s *SessionSuite) TestSetRoundInputClamps() {
	sess := s.newSession(101, "Asha", "Ben")

	low, err := sess.SetRoundInput("Asha", -5)
	s.Require().NoError(err)
	s.Equal(0, low)

	high, err := sess.SetRoundInput("Ben", 999)
	s.Require().NoError(err)
	s.Equal(80, high)

	s.Equal(model.Round{"Asha": 0, "Ben": 80}, sess.RoundInput())
}

func (s *SessionSuite) TestSetRoundInputUnknownPlayer() {
	sess := s.newSession(101, "Asha", "Ben")
	_, err := sess.SetRoundInput("Cy", 10)
	s.ErrorIs(err, model.ErrValidation)
}

func (s *SessionSuite) TestSaveRoundWithCancelledContext() {
	sess := s.newSession(101, "Asha", "Ben")
	_, err := sess.SetRoundInput("Asha", 20)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err = sess.SaveRound(ctx)
	s.ErrorIs(err, context.Canceled)

	s.Equal(1, sess.State().CurrentRound)
	s.Equal(20, sess.RoundInput()["Asha"])
}

func (s *SessionSuite) TestSaveRoundAppends() {
	sess := s.newSession(101, "Asha", "Ben")

	for i := 1; i <= 3; i++ {
		before := sess.State()
		s.playRound(sess, map[string]int{"Asha": i})
		after := sess.State()
		s.Len(after.RoundScores, len(before.RoundScores)+1)
		s.Equal(before.CurrentRound+1, after.CurrentRound)
	}
}

func (s *SessionSuite) TestSaveRoundResetsInput() {
	sess := s.newSession(101, "Asha", "Ben")
	s.playRound(sess, map[string]int{"Asha": 30, "Ben": 20})

	s.Equal(model.Round{"Asha": 0, "Ben": 0}, sess.RoundInput())
	s.Equal(model.Round{"Asha": 30, "Ben": 20}, sess.State().RoundScores[0])
}

func (s *SessionSuite) TestEditLastRoundOverwrites() {
	sess := s.newSession(101, "Asha", "Ben")
	s.playRound(sess, map[string]int{"Asha": 10, "Ben": 20})
	s.playRound(sess, map[string]int{"Asha": 30, "Ben": 40})

	s.Require().NoError(sess.BeginEditLastRound())
	s.True(sess.Editing())
	s.Equal(model.Round{"Asha": 30, "Ben": 40}, sess.RoundInput())

	before := sess.State()
	s.playRound(sess, map[string]int{"Ben": 5})
	after := sess.State()

	s.Len(after.RoundScores, len(before.RoundScores))
	s.Equal(before.CurrentRound, after.CurrentRound)
	s.False(sess.Editing())
	s.Equal(model.Round{"Asha": 30, "Ben": 5}, after.RoundScores[1])
	s.Equal(model.Round{"Asha": 10, "Ben": 20}, after.RoundScores[0])
}

func (s *SessionSuite) TestBeginEditWithoutRounds() {
	sess := s.newSession(101, "Asha", "Ben")
	s.ErrorIs(sess.BeginEditLastRound(), model.ErrInvalidState)
}

func (s *SessionSuite) TestBeginEditAfterGameOver() {
	sess := s.newSession(101, "Asha", "Ben")
	s.playRound(sess, map[string]int{"Asha": 10})
	_, err := sess.EndGame(s.ctx)
	s.Require().NoError(err)

	s.ErrorIs(sess.BeginEditLastRound(), model.ErrInvalidState)
}

func (s *SessionSuite) TestCancelEdit() {
	sess := s.newSession(101, "Asha", "Ben")
	s.playRound(sess, map[string]int{"Asha": 10})
	s.Require().NoError(sess.BeginEditLastRound())

	sess.CancelEdit()
	s.False(sess.Editing())
	s.Equal(model.Round{"Asha": 0, "Ben": 0}, sess.RoundInput())

	s.playRound(sess, map[string]int{"Ben": 7})
	s.Len(sess.State().RoundScores, 2)
}

// Elimination tests

func (s *SessionSuite) TestPendingEliminationAtThreshold() {
	cases := []struct {
		name  string
		final int
	}{
		{"exactly max score", 21},
		{"above max score", 22},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.SetupTest()
			sess := s.newSession(101, "Asha", "Ben")
			s.Empty(s.playRound(sess, map[string]int{"Asha": 80}))
			s.Empty(sess.PendingEliminations())

			pending := s.playRound(sess, map[string]int{"Asha": tc.final})
			s.Equal([]string{"Asha"}, pending)
			s.Equal([]string{"Asha"}, sess.PendingEliminations())
		})
	}
}

func (s *SessionSuite) TestPendingListsEachPlayerOnce() {
	sess := s.newSession(50, "Asha", "Ben", "Cy")
	s.playRound(sess, map[string]int{"Cy": 60, "Asha": 55})

	pending := sess.PendingEliminations()
	s.Equal([]string{"Asha", "Cy"}, pending)
}

func (s *SessionSuite) TestEliminatedPlayersNotPendingAgain() {
	sess := s.newSession(50, "Asha", "Ben", "Cy")
	pending := s.playRound(sess, map[string]int{"Asha": 60})
	_, err := sess.ResolvePendingEliminations(s.ctx, ActionContinue, pending)
	s.Require().NoError(err)

	pending = s.playRound(sess, map[string]int{"Asha": 10, "Ben": 70})
	s.Equal([]string{"Ben"}, pending)
}

func (s *SessionSuite) TestContinueKeepsGameWithActivePlayer() {
	sess := s.newSession(50, "Asha", "Ben", "Cy")
	pending := s.playRound(sess, map[string]int{"Asha": 60, "Ben": 60})

	res, err := sess.ResolvePendingEliminations(s.ctx, ActionContinue, pending)
	s.Require().NoError(err)
	s.False(res.GameOver)
	s.Empty(res.Winner)
	s.Equal([]string{"Asha", "Ben"}, res.Eliminated)

	game := sess.State()
	s.False(game.GameOver)
	s.Equal([]string{"Asha", "Ben"}, game.EliminatedPlayers)
	s.Empty(s.stats.recorded)
}

func (s *SessionSuite) TestContinueWithEveryoneEliminatedEndsGame() {
	sess := s.newSession(50, "Asha", "Ben")
	pending := s.playRound(sess, map[string]int{"Asha": 60, "Ben": 70})

	res, err := sess.ResolvePendingEliminations(s.ctx, ActionContinue, pending)
	s.Require().NoError(err)
	s.True(res.GameOver)
	s.Empty(res.Winner)
	s.True(sess.State().GameOver)
}

func (s *SessionSuite) TestResolveRejectsUnknownPlayer() {
	sess := s.newSession(50, "Asha", "Ben")
	_, err := sess.ResolvePendingEliminations(s.ctx, ActionContinue, []string{"Zed"})
	s.ErrorIs(err, model.ErrValidation)
}

func (s *SessionSuite) TestResolveRejectsUnknownAction() {
	sess := s.newSession(50, "Asha", "Ben")
	_, err := sess.ResolvePendingEliminations(s.ctx, Action("pause"), nil)
	s.ErrorIs(err, model.ErrValidation)
}

func (s *SessionSuite) TestWinnerTieGoesToFirstInRoster() {
	sess := s.newSession(100, "Asha", "Ben", "Cy")
	s.playRound(sess, map[string]int{"Asha": 30, "Ben": 20, "Cy": 20})

	res, err := sess.EndGame(s.ctx)
	s.Require().NoError(err)
	s.True(res.GameOver)
	s.Equal("Ben", res.Winner)
}

func (s *SessionSuite) TestExampleScenario() {
	sess := s.newSession(101, "Asha", "Ben")

	s.Empty(s.playRound(sess, map[string]int{"Asha": 40, "Ben": 50}))
	s.Equal(40, sess.TotalScore("Asha"))
	s.Equal(50, sess.TotalScore("Ben"))

	pending := s.playRound(sess, map[string]int{"Asha": 65, "Ben": 10})
	s.Equal(105, sess.TotalScore("Asha"))
	s.Equal(60, sess.TotalScore("Ben"))
	s.Equal([]string{"Asha"}, pending)

	res, err := sess.ResolvePendingEliminations(s.ctx, ActionEnd, pending)
	s.Require().NoError(err)
	s.True(res.GameOver)
	s.Equal("Ben", res.Winner)
	s.True(sess.State().GameOver)
	s.Equal([]string{"Asha"}, sess.State().EliminatedPlayers)
}

// Game over tests

func (s *SessionSuite) TestGameOverBlocksRounds() {
	sess := s.newSession(101, "Asha", "Ben")
	_, err := sess.EndGame(s.ctx)
	s.Require().NoError(err)

	_, err = sess.SetRoundInput("Asha", 10)
	s.ErrorIs(err, model.ErrGameOver)
	_, err = sess.SaveRound(s.ctx)
	s.ErrorIs(err, model.ErrGameOver)
	_, err = sess.EndGame(s.ctx)
	s.ErrorIs(err, model.ErrGameOver)
	s.Empty(sess.State().RoundScores)
}

func (s *SessionSuite) TestGameEndRecordsStatsOnceAndClearsResume() {
	sess := s.newSession(101, "Asha", "Ben")
	s.playRound(sess, map[string]int{"Asha": 10, "Ben": 20})

	_, err := sess.EndGame(s.ctx)
	s.Require().NoError(err)
	_, _ = sess.EndGame(s.ctx)

	s.Require().Len(s.stats.recorded, 1)
	s.Equal("Asha", s.stats.recorded[0].winner)
	s.True(s.stats.recorded[0].game.GameOver)
	s.Equal([]string{"Friday"}, s.resume.cleared)
	s.Empty(s.resume.active)
}

// Reset tests

func (s *SessionSuite) TestResetPreservesSetup() {
	sess := s.newSession(50, "Asha", "Ben")
	pending := s.playRound(sess, map[string]int{"Asha": 60})
	_, err := sess.ResolvePendingEliminations(s.ctx, ActionEnd, pending)
	s.Require().NoError(err)

	s.Require().NoError(sess.Reset(s.ctx))

	game := sess.State()
	s.Equal("Friday", game.GameName)
	s.Equal(50, game.MaxScore)
	s.Equal([]string{"Asha", "Ben"}, game.PlayerNames)
	s.Equal([]model.Round{}, game.RoundScores)
	s.Equal(1, game.CurrentRound)
	s.Equal([]string{}, game.EliminatedPlayers)
	s.False(game.GameOver)
	s.Equal("Friday", s.resume.active)
}

func (s *SessionSuite) TestResetPersistsUnderSameKey() {
	sess := s.newSession(101, "Asha", "Ben")
	s.playRound(sess, map[string]int{"Asha": 10})
	s.Require().NoError(sess.Reset(s.ctx))
	s.Require().NoError(sess.Flush(s.ctx))

	stored, err := s.store.GetGame(s.ctx, "Friday")
	s.Require().NoError(err)
	s.Empty(stored.RoundScores)
	s.Equal(1, stored.CurrentRound)
}

func (s *SessionSuite) TestResetClearsEdit() {
	sess := s.newSession(101, "Asha", "Ben")
	s.playRound(sess, map[string]int{"Asha": 10})
	s.Require().NoError(sess.BeginEditLastRound())

	s.Require().NoError(sess.Reset(s.ctx))
	s.False(sess.Editing())
}

// View mode tests

func (s *SessionSuite) TestViewModeIsReadOnly() {
	sess := s.newSession(101, "Asha", "Ben")
	s.playRound(sess, map[string]int{"Asha": 10})
	s.Require().NoError(sess.Flush(s.ctx))

	viewer, err := s.controller.Open(s.ctx, "Friday", ModeView)
	s.Require().NoError(err)

	_, err = viewer.SetRoundInput("Asha", 10)
	s.ErrorIs(err, model.ErrReadOnly)
	_, err = viewer.SaveRound(s.ctx)
	s.ErrorIs(err, model.ErrReadOnly)
	s.ErrorIs(viewer.BeginEditLastRound(), model.ErrReadOnly)
	_, err = viewer.ResolvePendingEliminations(s.ctx, ActionEnd, nil)
	s.ErrorIs(err, model.ErrReadOnly)
	s.ErrorIs(viewer.Reset(s.ctx), model.ErrReadOnly)
}

func (s *SessionSuite) TestSetModeViewDropsEdit() {
	sess := s.newSession(101, "Asha", "Ben")
	s.playRound(sess, map[string]int{"Asha": 10})
	s.Require().NoError(sess.BeginEditLastRound())

	sess.SetMode(ModeView)
	s.True(sess.ViewOnly())
	s.False(sess.Editing())
}

// Remote refresh tests

func (s *SessionSuite) TestApplyRemoteReplacesProgress() {
	sess := s.newSession(101, "Asha", "Ben")
	sess.SetMode(ModeView)
	remote := sess.State()
	remote.RoundScores = []model.Round{{"Asha": 40, "Ben": 50}, {"Asha": 65, "Ben": 10}}
	remote.CurrentRound = 3
	remote.EliminatedPlayers = []string{"Asha"}
	remote.GameOver = true

	s.True(sess.ApplyRemote(remote))
	s.Equal(remote, sess.State())

	s.False(sess.ApplyRemote(remote))
}

func (s *SessionSuite) TestApplyRemoteIgnoredInEditMode() {
	sess := s.newSession(101, "Asha", "Ben")
	s.playRound(sess, map[string]int{"Asha": 30})

	stale := sess.State()
	stale.RoundScores = []model.Round{}
	stale.CurrentRound = 1

	s.False(sess.ApplyRemote(stale))
	s.Equal(2, sess.State().CurrentRound)
	s.Equal(30, sess.TotalScore("Asha"))
}

func (s *SessionSuite) TestApplyRemoteRejectsChangedSetup() {
	sess := s.newSession(101, "Asha", "Ben")
	sess.SetMode(ModeView)
	before := sess.State()

	other := before.Clone()
	other.MaxScore = 5
	other.RoundScores = []model.Round{{"Asha": 1}}
	other.CurrentRound = 2
	s.False(sess.ApplyRemote(other))

	recreated := before.Clone()
	recreated.PlayerNames = []string{"Cara", "Dev"}
	recreated.RoundScores = []model.Round{{"Cara": 50}}
	recreated.CurrentRound = 2
	s.False(sess.ApplyRemote(recreated))

	s.Equal(before, sess.State())
}

func (s *SessionSuite) TestApplyRemoteRejectsInvalidSnapshot() {
	sess := s.newSession(101, "Asha", "Ben")
	sess.SetMode(ModeView)
	before := sess.State()

	cases := map[string]func(g *model.Game){
		"unknown player in round": func(g *model.Game) {
			g.RoundScores = []model.Round{{"Cara": 50}}
			g.CurrentRound = 2
		},
		"round counter out of step": func(g *model.Game) {
			g.RoundScores = []model.Round{{"Asha": 10}}
			g.CurrentRound = 7
		},
		"unknown eliminated player": func(g *model.Game) {
			g.EliminatedPlayers = []string{"Zed"}
			g.GameOver = true
		},
	}
	for name, mutate := range cases {
		remote := before.Clone()
		mutate(remote)
		s.False(sess.ApplyRemote(remote), name)
	}

	state := sess.State()
	s.Equal(before, state)
	s.NoError(state.Validate())
}

// Subscription tests

func (s *SessionSuite) TestSubscribeReceivesEvents() {
	sess := s.newSession(50, "Asha", "Ben")

	var events []model.Event
	unsubscribe := sess.Subscribe(func(e model.Event) {
		events = append(events, e)
	})

	pending := s.playRound(sess, map[string]int{"Asha": 60})
	_, err := sess.ResolvePendingEliminations(s.ctx, ActionEnd, pending)
	s.Require().NoError(err)

	s.Require().Len(events, 3)
	s.Equal(model.EventRoundSaved, events[0].Type)
	s.Equal(model.RoundSavedPayload{
		RoundNumber:         1,
		Totals:              map[string]int{"Asha": 60, "Ben": 0},
		PendingEliminations: []string{"Asha"},
	}, events[0].Payload)
	s.Equal(model.EventPlayersEliminated, events[1].Type)
	s.Equal(model.EventGameEnded, events[2].Type)
	s.Equal(model.GameEndedPayload{Winner: "Ben"}, events[2].Payload)
	s.Equal(s.clock.Now(), events[2].Timestamp)
	s.True(events[2].State.GameOver)

	unsubscribe()
	s.Require().NoError(sess.Reset(s.ctx))
	s.Len(events, 3)
}

func (s *SessionSuite) TestEditEmitsRoundEdited() {
	sess := s.newSession(101, "Asha", "Ben")
	s.playRound(sess, map[string]int{"Asha": 10})

	var got model.EventType
	sess.Subscribe(func(e model.Event) { got = e.Type })

	s.Require().NoError(sess.BeginEditLastRound())
	s.playRound(sess, map[string]int{"Asha": 20})
	s.Equal(model.EventRoundEdited, got)
}

// Persistence tests

func (s *SessionSuite) TestSavedStateRoundTrips() {
	sess := s.newSession(101, "Asha", "Ben")
	s.playRound(sess, map[string]int{"Asha": 40, "Ben": 50})
	s.playRound(sess, map[string]int{"Asha": 65, "Ben": 10})
	s.Require().NoError(sess.Flush(s.ctx))

	stored, err := s.store.GetGame(s.ctx, "Friday")
	s.Require().NoError(err)
	s.Equal(sess.State(), stored)
}
