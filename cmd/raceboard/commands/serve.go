package commands

import (
	"github.com/spf13/cobra"

	"github.com/regattahq/raceboard/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled scrape loops",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
}
