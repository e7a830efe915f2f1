package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"uptimeworker/config"
	"uptimeworker/logging"
	"uptimeworker/services"
	"uptimeworker/store"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "uptimeworker",
	Short: "Scheduled uptime checks with alerting",
	Long: `uptimeworker probes registered sites when they are due, records their
history, and emails their owners when a site goes down or recovers.

  uptimeworker serve     # HTTP trigger surface plus the built-in schedule
  uptimeworker run       # one batch, for an external cron
  uptimeworker check ID  # one site, now
  uptimeworker migrate   # apply the database schema`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "optional YAML config file")
	rootCmd.AddCommand(serveCmd, runCmd, checkCmd, migrateCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("uptimeworker %s\n", version)
	},
}

// app is everything a command needs, wired from one Config.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	store   store.Store
	alerter *services.Alerter
	runner  *services.Runner
}

func newApp(ctx context.Context, cmd *cobra.Command, migrate bool) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty)

	st, err := store.Open(ctx, cfg, migrate)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sender := services.NewSender(cfg)
	if !cfg.CanSend() {
		log.Warn().Msg("no email transport configured, alerts will not be emailed")
	}
	alerter := services.NewAlerter(cfg, sender, services.NewSlackNotifier(cfg.SlackWebhookURL), log)

	return &app{
		cfg:     cfg,
		log:     log,
		store:   st,
		alerter: alerter,
		runner:  services.NewRunner(cfg, st, alerter, log),
	}, nil
}

func (a *app) Close() {
	a.runner.Close()
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("closing store")
	}
}
