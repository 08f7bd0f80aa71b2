package cli

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"runtrack/internal/config"
	"runtrack/internal/database"
	"runtrack/internal/store"
)

var RootCmd = &cobra.Command{
	Use:   "rtctl",
	Short: "RunTrack - batch job run lifecycle tracking",
	Long: `RunTrack records the lifecycle of named batch job runs: when each run
starts, when it ends, how long it took and its terminal status. The history is
queryable as Prometheus metrics and as a JSON snapshot for auditing.`,
}

func init() {
	RootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(exportCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v", err)
		os.Exit(1)
	}
}

func mustStore(conf *config.RTConfig) (*sqlx.DB, *store.Store) {
	db, err := database.New(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not connect to database: %v\n", err)
		os.Exit(1)
	}

	st, err := store.New(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not initialize run store: %v\n", err)
		os.Exit(1)
	}

	return db, st
}
