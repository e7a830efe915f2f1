package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"uptimeworker/handlers"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP trigger surface and run batches on the configured schedule",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Bool("no-schedule", false, "disable the built-in schedule (external trigger only)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	noSchedule, _ := cmd.Flags().GetBool("no-schedule")
	var c *cron.Cron
	if !noSchedule {
		c, err = startSchedule(ctx, a)
		if err != nil {
			return err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	h := handlers.New(a.cfg, a.runner, a.alerter, a.log)
	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-shutdownCtx.Done():
		}
	}
	return srv.Shutdown(shutdownCtx)
}

// startSchedule fires RunBatch on cfg.Schedule. A tick that arrives while the
// previous batch is still running is skipped.
func startSchedule(ctx context.Context, a *app) (*cron.Cron, error) {
	cronLog := cronLogger{a.log}
	c := cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)))
	_, err := c.AddFunc(a.cfg.Schedule, func() {
		if _, err := a.runner.RunBatch(ctx); err != nil {
			a.log.Error().Err(err).Msg("scheduled batch failed")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	a.log.Info().Str("schedule", a.cfg.Schedule).Msg("schedule started")
	return c, nil
}
