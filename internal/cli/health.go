package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/mcoot/rummy-tracker/internal/model"
)

// healthCheckKey is looked up to check the store answers; it is never written
const healthCheckKey = "__rummy_health__"

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the game store is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.Store.GetGame(cmd.Context(), healthCheckKey)
			if err != nil && !errors.Is(err, model.ErrGameNotFound) {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(HealthResult{Status: "ok", Storage: storageName()})
			return nil
		},
	}
}

func storageName() string {
	if cfg.App.StorageType == "" {
		return "local"
	}
	return cfg.App.StorageType
}
