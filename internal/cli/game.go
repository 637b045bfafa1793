package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/services/session"
)

func newNewCmd() *cobra.Command {
	var (
		players  []string
		maxScore int
	)

	cmd := &cobra.Command{
		Use:   "new <game-name>",
		Short: "Start a new game",
		Long: `Start a new game with 2-6 players. The game name is the key other devices
use to open or watch it; starting a game under an existing name replaces it.`,
		Example: `  rummy new friday --players Asha,Ben --max-score 101`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := app.Controller.Create(ctx, players, args[0], maxScore)
			if err != nil {
				return err
			}
			if err := flush(ctx, sess); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(newGameView(sess.State()))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&players, "players", "p", nil, "Player names, in seating order")
	cmd.Flags().IntVarP(&maxScore, "max-score", "m", 101, "Total at which a player is knocked out")
	_ = cmd.MarkFlagRequired("players")

	return cmd
}

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <player>=<points>...",
		Short: "Record the next round",
		Long: `Record the scores for the next round. Players left out score 0. Scores are
clamped to 0-80.`,
		Example: `  rummy score Asha=40 Ben=50`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return saveRound(cmd, args, false)
		},
	}
}

func newEditLastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit-last <player>=<points>...",
		Short: "Correct the last round",
		Long: `Overwrite scores in the last saved round. Players left out keep their
previous score for that round.`,
		Example: `  rummy edit-last Ben=5`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return saveRound(cmd, args, true)
		},
	}
}

func saveRound(cmd *cobra.Command, args []string, edit bool) error {
	ctx := cmd.Context()

	scores, err := parseScores(args)
	if err != nil {
		return err
	}

	sess, err := openGame(ctx, session.ModeEdit)
	if err != nil {
		return err
	}

	if edit {
		if err := sess.BeginEditLastRound(); err != nil {
			return err
		}
	}
	for _, s := range scores {
		if _, err := sess.SetRoundInput(s.player, s.points); err != nil {
			return err
		}
	}

	pending, err := sess.SaveRound(ctx)
	if err != nil {
		return err
	}
	if err := flush(ctx, sess); err != nil {
		return err
	}

	out := NewOutput(cfg.Output, cmd.OutOrStdout())
	out.Print(RoundResult{
		Round:               len(sess.State().RoundScores),
		Edited:              edit,
		Totals:              sess.Totals(),
		PendingEliminations: pending,
	})
	return nil
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <continue|end>",
		Short: "Eliminate players who reached the max score",
		Long: `Eliminate every player at or above the max score. "continue" keeps playing
unless nobody is left; "end" finishes the game and names the winner.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(session.ActionContinue), string(session.ActionEnd)},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := openGame(ctx, session.ModeEdit)
			if err != nil {
				return err
			}

			res, err := sess.ResolvePendingEliminations(ctx, session.Action(args[0]), sess.PendingEliminations())
			if err != nil {
				return err
			}
			if err := flush(ctx, sess); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(newResolutionView(res))
			return nil
		},
	}
}

func newEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the game now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := openGame(ctx, session.ModeEdit)
			if err != nil {
				return err
			}

			res, err := sess.EndGame(ctx)
			if err != nil {
				return err
			}
			if err := flush(ctx, sess); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(newResolutionView(res))
			return nil
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear all rounds and start over with the same players",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := openGame(ctx, session.ModeEdit)
			if err != nil {
				return err
			}
			if err := sess.Reset(ctx); err != nil {
				return err
			}
			if err := flush(ctx, sess); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.PrintMessage(fmt.Sprintf("Game %s reset", sess.Key()))
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show scores and totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openGame(cmd.Context(), session.ModeView)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(newGameView(sess.State()))
			return nil
		},
	}
}

type playerScore struct {
	player string
	points int
}

// parseScores reads "name=points" arguments, splitting on the last '=' so
// names may contain one
func parseScores(args []string) ([]playerScore, error) {
	scores := make([]playerScore, 0, len(args))
	for _, arg := range args {
		i := strings.LastIndex(arg, "=")
		if i <= 0 {
			return nil, fmt.Errorf("%w: expected <player>=<points>, got %q", model.ErrValidation, arg)
		}
		name := strings.TrimSpace(arg[:i])
		points, err := strconv.Atoi(strings.TrimSpace(arg[i+1:]))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid points for %s: %q", model.ErrValidation, name, arg[i+1:])
		}
		scores = append(scores, playerScore{player: name, points: points})
	}
	return scores, nil
}
