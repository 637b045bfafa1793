package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/services/session"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow a game live from another device",
		Long: `Open the game read-only and reprint it whenever the stored copy changes.
Stops when the game ends.

Press Ctrl+C to stop watching.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchGame(ctx, cmd)
		},
	}
}

func watchGame(ctx context.Context, cmd *cobra.Command) error {
	sess, err := openGame(ctx, session.ModeView)
	if err != nil {
		return err
	}

	out := NewOutput(cfg.Output, cmd.OutOrStdout())
	out.Print(newGameView(sess.State()))
	if sess.State().GameOver {
		return nil
	}

	unsubscribe := sess.Subscribe(func(e model.Event) {
		if e.Type == model.EventRemoteRefresh {
			out.Print(newGameView(e.State))
		}
	})
	defer unsubscribe()

	app.NewPoller(sess).Run(ctx)
	return nil
}
