package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	cobra "github.com/spf13/cobra"

	"github.com/i474232898/forecast-telemetry/internal/config"
	"github.com/i474232898/forecast-telemetry/internal/weather"
	"github.com/i474232898/forecast-telemetry/internal/weather/providers"
)

// newMetaCommand prints the meta batch of the configured view. It makes no
// network calls.
func newMetaCommand() *cobra.Command {
	metaCmd := &cobra.Command{
		Use:   "meta",
		Short: "Prints units and descriptions of the published paths as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if view, _ := cmd.Flags().GetString("view"); view != "" {
				if cfg.View, err = weather.ParseView(view); err != nil {
					return err
				}
			}

			logger := slog.New(slog.DiscardHandler)
			service := weather.NewService(
				providers.NewOpenWeatherProvider(http.DefaultClient),
				weather.WithLogger(logger),
			)
			// Meta does not depend on the credential.
			meta, err := service.Initialize("meta", cfg.View, cfg.Params())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(meta)
		},
	}
	metaCmd.Flags().String("view", "", "View to describe (simple or full); defaults to VIEW_MODE")
	return metaCmd
}
