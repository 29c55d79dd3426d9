package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"CycleDCA/internal/api"
	"CycleDCA/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the update scheduler",
	Long: `Load the price history, serve the HTTP API and run the daily upsert and
history refresh on their cron schedules until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.aggregator.Init(ctx); err != nil {
			log.Error().Err(err).Msg("initial aggregation failed, serving empty history until the next refresh")
		}

		sched := scheduler.NewScheduler(ctx, a.updater, a.aggregator)
		if err := sched.RegisterAll(cfg.Schedule.DailyCron, cfg.Schedule.RefreshCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		if os.Getenv("RUN_ON_START") == "true" {
			log.Info().Msg("RUN_ON_START enabled, executing daily update now")
			go sched.RunDailyNow()
		}

		handler := api.NewHandler(cfg.Asset.Symbol, a.aggregator, a.updater, a.store, a.fetcher, a.classifier, a.engine)
		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           api.SetupRoutes(handler),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", cfg.HTTP.Addr).Str("symbol", cfg.Asset.Symbol).Msg("server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			log.Info().Msg("initiating graceful shutdown")
		case err := <-errCh:
			if err != nil {
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
		return nil
	},
}
