package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/monocle-dev/statuswatch/internal/handlers"
	"github.com/monocle-dev/statuswatch/internal/live"
	"github.com/monocle-dev/statuswatch/internal/router"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cron, status and live feed endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if a.cfg.CronSecret == "" {
			a.log.Warn("cron_secret is empty, cron endpoints will reject every request")
		}

		hub := live.NewHub(a.log.With("component", "live"))
		dispatcher := a.dispatcher()
		defer dispatcher.Close()

		runner := a.runner(dispatcher, hub)
		if a.cfg.Scheduler.Enabled {
			runner.Start(a.cfg.Scheduler.CheckEvery, a.cfg.Scheduler.SweepEvery)
			defer runner.Stop()
		}

		r := router.NewRouter(router.Dependencies{
			Cron:           handlers.NewCronHandler(runner, a.log),
			Status:         handlers.NewStatusHandler(a.store, a.log),
			Live:           handlers.NewLiveHandler(hub, a.cfg.CORS.AllowedOrigins, a.log),
			Health:         handlers.NewHealthHandler(a.ping),
			CronSecret:     a.cfg.CronSecret,
			AllowedOrigins: a.cfg.CORS.AllowedOrigins,
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.log.Info("server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		a.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
