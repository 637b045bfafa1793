package model

import (
	"fmt"
	"slices"
	"strings"
)

// Roster and scoring limits
const (
	MinPlayers    = 2
	MaxPlayers    = 6
	MaxRoundScore = 80
)

// Round maps a player name to the score they took in that round
type Round map[string]int

// Game is the authoritative state of one Rummy game and also the snapshot
// shape written to every store
type Game struct {
	GameName          string   `json:"gameName"`
	MaxScore          int      `json:"maxScore"`
	PlayerNames       []string `json:"playerNames"`
	RoundScores       []Round  `json:"roundScores"`
	CurrentRound      int      `json:"currentRound"`
	GameOver          bool     `json:"gameOver"`
	EliminatedPlayers []string `json:"eliminatedPlayers"`
}

// NewGame validates the setup input and returns a fresh game at round 1.
// Player and game names are trimmed before validation.
func NewGame(playerNames []string, gameName string, maxScore int) (*Game, error) {
	names := make([]string, len(playerNames))
	for i, n := range playerNames {
		names[i] = strings.TrimSpace(n)
	}
	gameName = strings.TrimSpace(gameName)

	if err := validateSetup(names, gameName, maxScore); err != nil {
		return nil, err
	}

	return &Game{
		GameName:          gameName,
		MaxScore:          maxScore,
		PlayerNames:       names,
		RoundScores:       []Round{},
		CurrentRound:      1,
		GameOver:          false,
		EliminatedPlayers: []string{},
	}, nil
}

func validateSetup(names []string, gameName string, maxScore int) error {
	if len(names) < MinPlayers || len(names) > MaxPlayers {
		return fmt.Errorf("%w: need %d-%d players, got %d", ErrValidation, MinPlayers, MaxPlayers, len(names))
	}
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		if n == "" {
			return fmt.Errorf("%w: player %d has no name", ErrValidation, i+1)
		}
		if seen[n] {
			return fmt.Errorf("%w: duplicate player name %q", ErrValidation, n)
		}
		seen[n] = true
	}
	if gameName == "" {
		return fmt.Errorf("%w: game name is required", ErrValidation)
	}
	if maxScore <= 0 {
		return fmt.Errorf("%w: max score must be positive", ErrValidation)
	}
	return nil
}

// Validate checks a snapshot received from outside (a store or a request body)
// against the game invariants
func (g *Game) Validate() error {
	if err := validateSetup(g.PlayerNames, g.GameName, g.MaxScore); err != nil {
		return err
	}
	for i, r := range g.RoundScores {
		for name, score := range r {
			if !g.HasPlayer(name) {
				return fmt.Errorf("%w: round %d scores unknown player %q", ErrValidation, i+1, name)
			}
			if score < 0 || score > MaxRoundScore {
				return fmt.Errorf("%w: round %d score %d out of range", ErrValidation, i+1, score)
			}
		}
	}
	if g.CurrentRound != len(g.RoundScores)+1 {
		return fmt.Errorf("%w: current round %d does not follow %d rounds", ErrValidation, g.CurrentRound, len(g.RoundScores))
	}
	for _, name := range g.EliminatedPlayers {
		if !g.HasPlayer(name) {
			return fmt.Errorf("%w: unknown eliminated player %q", ErrValidation, name)
		}
	}
	return nil
}

// HasPlayer reports whether name is on the roster
func (g *Game) HasPlayer(name string) bool {
	return slices.Contains(g.PlayerNames, name)
}

// TotalScore sums a player's scores over all rounds
func (g *Game) TotalScore(player string) int {
	total := 0
	for _, r := range g.RoundScores {
		total += r[player]
	}
	return total
}

// Totals returns every player's running total
func (g *Game) Totals() map[string]int {
	totals := make(map[string]int, len(g.PlayerNames))
	for _, p := range g.PlayerNames {
		totals[p] = g.TotalScore(p)
	}
	return totals
}

// IsEliminated reports whether the player has been knocked out
func (g *Game) IsEliminated(player string) bool {
	return slices.Contains(g.EliminatedPlayers, player)
}

// ActivePlayers returns the players not yet eliminated, in roster order
func (g *Game) ActivePlayers() []string {
	active := make([]string, 0, len(g.PlayerNames))
	for _, p := range g.PlayerNames {
		if !g.IsEliminated(p) {
			active = append(active, p)
		}
	}
	return active
}

// PendingEliminations returns the active players whose total has reached
// the max score, in roster order
func (g *Game) PendingEliminations() []string {
	pending := []string{}
	for _, p := range g.ActivePlayers() {
		if g.TotalScore(p) >= g.MaxScore {
			pending = append(pending, p)
		}
	}
	return pending
}

// Eliminate merges players into the eliminated set, ignoring repeats
func (g *Game) Eliminate(players []string) {
	for _, p := range players {
		if !g.IsEliminated(p) {
			g.EliminatedPlayers = append(g.EliminatedPlayers, p)
		}
	}
}

// AllEliminated reports whether no active player remains
func (g *Game) AllEliminated() bool {
	return len(g.ActivePlayers()) == 0
}

// Winner returns the active player with the lowest total. Ties go to the
// player listed first in the roster. Empty when no one is active.
func (g *Game) Winner() string {
	winner := ""
	best := 0
	for _, p := range g.ActivePlayers() {
		total := g.TotalScore(p)
		if winner == "" || total < best {
			winner = p
			best = total
		}
	}
	return winner
}

// ResetProgress clears rounds, eliminations and the game-over flag while
// keeping the roster, name and max score
func (g *Game) ResetProgress() {
	g.RoundScores = []Round{}
	g.CurrentRound = 1
	g.GameOver = false
	g.EliminatedPlayers = []string{}
}

// SameProgress reports whether two snapshots agree on everything a round,
// an elimination or the end of the game can change
func (g *Game) SameProgress(other *Game) bool {
	if g.CurrentRound != other.CurrentRound || g.GameOver != other.GameOver {
		return false
	}
	if !slices.Equal(g.EliminatedPlayers, other.EliminatedPlayers) {
		return false
	}
	if len(g.RoundScores) != len(other.RoundScores) {
		return false
	}
	for i := range g.RoundScores {
		if !g.RoundScores[i].Equal(other.RoundScores[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the game
func (g *Game) Clone() *Game {
	c := *g
	c.PlayerNames = slices.Clone(g.PlayerNames)
	c.EliminatedPlayers = slices.Clone(g.EliminatedPlayers)
	if g.RoundScores != nil {
		c.RoundScores = make([]Round, len(g.RoundScores))
		for i, r := range g.RoundScores {
			c.RoundScores[i] = r.Clone()
		}
	}
	return &c
}

// Clone returns a copy of the round
func (r Round) Clone() Round {
	if r == nil {
		return nil
	}
	c := make(Round, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Equal compares two rounds, treating a missing entry as 0
func (r Round) Equal(other Round) bool {
	for k, v := range r {
		if other[k] != v {
			return false
		}
	}
	for k, v := range other {
		if r[k] != v {
			return false
		}
	}
	return true
}

// ClampRoundScore bounds a round score input to [0, MaxRoundScore]
func ClampRoundScore(value int) int {
	return min(max(value, 0), MaxRoundScore)
}
