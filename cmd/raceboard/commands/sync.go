package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/regattahq/raceboard/internal/app"
)

func newSyncCmd() *cobra.Command {
	var eventID string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a full sync of one event and print the summary",
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
			defer a.Close()

			result, err := a.Service().SyncAll(cmd.Context(), eventID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event ID to sync")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}
