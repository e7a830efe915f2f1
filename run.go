package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one batch over all due sites and print the summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.runner.RunBatch(ctx)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check SITE_ID",
	Short: "Check one site now, ignoring its schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.runner.RunSingle(ctx, args[0], "")
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()
		a.log.Info().Str("driver", a.cfg.DatabaseDriver).Msg("schema applied")
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
