package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"runtrack/internal/api"
	"runtrack/internal/config"
	"runtrack/internal/events"
	"runtrack/internal/metrics"
	"runtrack/internal/tracker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the tracking API and metrics exposition server",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.FromCobraCmd(cmd)
		zerolog.SetGlobalLevel(conf.GetLogLevel())
		log.Info().Msg("Running run tracking server")

		db, st := mustStore(conf)
		defer func() {
			if err := db.Close(); err != nil {
				log.Error().Err(err).Msg("Could not close db cleanly on shutdown")
			}
		}()

		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())

		emitters := metrics.Multi{metrics.NewPromEmitter(registry)}
		if conf.Events.Enabled {
			pub, err := events.NewPublisher(conf.Events.Host, conf.Events.Password, conf.Events.DB, conf.Events.Channel)
			if err != nil {
				log.Fatal().Err(err).Msg("Could not connect to events channel")
			}
			defer func() {
				if err := pub.Close(); err != nil {
					log.Error().Err(err).Msg("Could not close events publisher cleanly on shutdown")
				}
			}()
			emitters = append(emitters, pub)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		trk := tracker.New(st, emitters)
		server := api.New(ctx, st, trk, registry)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Listen(&api.Config{Host: conf.Server.Host, Port: conf.Server.Port})
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

		select {
		case err := <-errCh:
			if err != nil {
				log.Fatal().Err(err).Msg("Server stopped unexpectedly")
			}
		case sig := <-sigCh:
			log.Info().Msgf("Received signal %v, shutting down...", sig)
		}
	},
}
