package cli

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"runtrack/internal/config"
	"runtrack/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Writes a snapshot of completed job runs as a JSON array",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.FromCobraCmd(cmd)
		zerolog.SetGlobalLevel(conf.GetLogLevel())

		db, st := mustStore(conf)
		defer func() {
			if err := db.Close(); err != nil {
				log.Error().Err(err).Msg("Could not close db cleanly on shutdown")
			}
		}()

		limit, err := cmd.Flags().GetInt("limit")
		if err != nil || limit <= 0 {
			limit = conf.Export.Limit
		}

		out := os.Stdout
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				log.Fatal().Err(err).Str("path", path).Msg("Could not create output file")
			}
			defer func() {
				if err := f.Close(); err != nil {
					log.Error().Err(err).Msg("Could not close output file")
				}
			}()
			out = f
		}

		exp := export.New(st)
		if err := exp.WriteJSON(context.Background(), out, limit); err != nil {
			log.Fatal().Err(err).Msg("Could not export job runs")
		}
	},
}

func init() {
	exportCmd.Flags().String("output", "", "output file path (defaults to stdout)")
	exportCmd.Flags().Int("limit", 0, "maximum number of runs to scan (defaults to config)")
}
