package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/regattahq/raceboard/internal/app"
	"github.com/regattahq/raceboard/internal/pipeline"
)

func newScrapeCmd() *cobra.Command {
	var (
		eventID    string
		scrapeType string
		useCache   bool
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !pipeline.ValidType(scrapeType) {
				return fmt.Errorf("invalid type %q: must be event, results, documents, or competitors", scrapeType)
			}
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

			resp, err := a.Service().ScrapeRaceData(cmd.Context(), eventID, scrapeType, useCache)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event ID to scrape")
	cmd.Flags().StringVar(&scrapeType, "type", pipeline.TypeResults,
		"scrape type: event, results, documents, or competitors")
	cmd.Flags().BoolVar(&useCache, "use-cache", false, "serve from cache when fresh")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}
