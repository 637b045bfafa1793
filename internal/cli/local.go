package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/mcoot/rummy-tracker/internal/model"
)

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Show the unfinished game this device was last playing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := NewOutput(cfg.Output, cmd.OutOrStdout())

			ptr, err := app.Resume.Current(ctx)
			if err != nil {
				return err
			}
			if ptr == nil {
				out.PrintMessage("No game to resume")
				return nil
			}

			view := ResumeView{Key: ptr.Key, UpdatedAt: ptr.UpdatedAt}
			game, err := app.Store.GetGame(ctx, ptr.Key)
			switch {
			case err == nil:
				gv := newGameView(game)
				view.Game = &gv
			case !errors.Is(err, model.ErrGameNotFound):
				return err
			}

			out.Print(view)
			return nil
		},
	}
}

func newRecentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recent [prefix]",
		Short: "List stored games, unfinished first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}

			games, err := app.Resume.Recent(cmd.Context(), prefix)
			if err != nil {
				return err
			}

			entries := make([]RecentEntry, 0, len(games))
			for _, g := range games {
				entries = append(entries, RecentEntry{
					Name:         g.GameName,
					Players:      g.PlayerNames,
					CurrentRound: g.CurrentRound,
					GameOver:     g.GameOver,
				})
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(entries)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show games played and won on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			standings, err := app.Stats.Standings(cmd.Context())
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(standings)
			return nil
		},
	}
}
