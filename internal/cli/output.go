package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/services/session"
	"github.com/mcoot/rummy-tracker/internal/services/stats"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case GameView:
		o.printGame(v)
	case RoundResult:
		o.printRoundResult(v)
	case ResolutionView:
		o.printResolution(v)
	case ResumeView:
		o.printResume(v)
	case []RecentEntry:
		o.printRecent(v)
	case []stats.Standing:
		o.printStandings(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// GameView is a game snapshot with its derived totals
type GameView struct {
	Game                *model.Game    `json:"game"`
	Totals              map[string]int `json:"totals"`
	PendingEliminations []string       `json:"pendingEliminations"`
	Winner              string         `json:"winner,omitempty"`
}

func newGameView(game *model.Game) GameView {
	v := GameView{
		Game:                game,
		Totals:              game.Totals(),
		PendingEliminations: game.PendingEliminations(),
	}
	if game.GameOver {
		v.Winner = game.Winner()
	}
	return v
}

// RoundResult is printed after a round is saved
type RoundResult struct {
	Round               int            `json:"round"`
	Edited              bool           `json:"edited"`
	Totals              map[string]int `json:"totals"`
	PendingEliminations []string       `json:"pendingEliminations"`
}

// ResolutionView is printed after eliminations are resolved
type ResolutionView struct {
	Eliminated []string `json:"eliminated"`
	GameOver   bool     `json:"gameOver"`
	Winner     string   `json:"winner,omitempty"`
}

func newResolutionView(res session.Resolution) ResolutionView {
	eliminated := res.Eliminated
	if eliminated == nil {
		eliminated = []string{}
	}
	return ResolutionView{Eliminated: eliminated, GameOver: res.GameOver, Winner: res.Winner}
}

// ResumeView describes the game this device can resume
type ResumeView struct {
	Key       string    `json:"key"`
	UpdatedAt time.Time `json:"updatedAt"`
	Game      *GameView `json:"game,omitempty"`
}

// RecentEntry is one line of the recent games list
type RecentEntry struct {
	Name         string   `json:"name"`
	Players      []string `json:"players"`
	CurrentRound int      `json:"currentRound"`
	GameOver     bool     `json:"gameOver"`
}

// HealthResult reports whether the game store is reachable
type HealthResult struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

func (o *Output) printGame(v GameView) {
	g := v.Game
	fmt.Fprintf(o.w, "Game: %s (max score %d)\n", g.GameName, g.MaxScore)
	if g.GameOver {
		if v.Winner != "" {
			fmt.Fprintf(o.w, "Game over, winner: %s\n", v.Winner)
		} else {
			fmt.Fprintln(o.w, "Game over, no winner")
		}
	} else {
		fmt.Fprintf(o.w, "Round: %d\n", g.CurrentRound)
	}

	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	header := []string{"Player"}
	for i := range g.RoundScores {
		header = append(header, fmt.Sprintf("R%d", i+1))
	}
	header = append(header, "Total", "")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, p := range g.PlayerNames {
		row := []string{p}
		for _, r := range g.RoundScores {
			row = append(row, fmt.Sprintf("%d", r[p]))
		}
		status := ""
		switch {
		case g.IsEliminated(p):
			status = "eliminated"
		case v.Totals[p] >= g.MaxScore:
			status = "pending elimination"
		}
		row = append(row, fmt.Sprintf("%d", v.Totals[p]), status)
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

func (o *Output) printRoundResult(r RoundResult) {
	verb := "saved"
	if r.Edited {
		verb = "updated"
	}
	fmt.Fprintf(o.w, "Round %d %s\n", r.Round, verb)
	o.printPending(r.PendingEliminations)
}

func (o *Output) printPending(pending []string) {
	if len(pending) == 0 {
		return
	}
	fmt.Fprintf(o.w, "Reached the max score: %s\n", strings.Join(pending, ", "))
	fmt.Fprintln(o.w, `Run "rummy resolve continue" or "rummy resolve end"`)
}

func (o *Output) printResolution(r ResolutionView) {
	if len(r.Eliminated) > 0 {
		fmt.Fprintf(o.w, "Eliminated: %s\n", strings.Join(r.Eliminated, ", "))
	}
	switch {
	case !r.GameOver:
		fmt.Fprintln(o.w, "Game continues")
	case r.Winner != "":
		fmt.Fprintf(o.w, "Game over, winner: %s\n", r.Winner)
	default:
		fmt.Fprintln(o.w, "Game over, no winner")
	}
}

func (o *Output) printResume(r ResumeView) {
	fmt.Fprintf(o.w, "Resume: %s (last active %s)\n", r.Key, r.UpdatedAt.Format(time.RFC3339))
	if r.Game != nil {
		o.printGame(*r.Game)
	}
}

func (o *Output) printRecent(entries []RecentEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(o.w, "No games")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Game\tRound\tPlayers\tStatus")
	for _, e := range entries {
		status := "in progress"
		if e.GameOver {
			status = "finished"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.Name, e.CurrentRound, strings.Join(e.Players, ", "), status)
	}
	_ = tw.Flush()
}

func (o *Output) printStandings(standings []stats.Standing) {
	if len(standings) == 0 {
		fmt.Fprintln(o.w, "No finished games")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Player\tGames\tWins")
	for _, st := range standings {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", st.Player, st.Games, st.Wins)
	}
	_ = tw.Flush()
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	fmt.Fprintf(o.w, "Storage: %s\n", h.Storage)
}
