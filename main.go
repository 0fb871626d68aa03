package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"movie-catalog-bot/internal/app"
	"movie-catalog-bot/internal/config"
	"movie-catalog-bot/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "moviebot",
		Short:         "Telegram bot for keeping a personal movie catalogue",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			logger.Init(cfg.Env, cfg.Debug)
			return nil
		},
	}

	run := func(mode func(*app.App, context.Context) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, logger.Default())
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.Background()); err != nil {
					logger.Default().Warn("close", "error", err)
				}
			}()
			return mode(a, ctx)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "poll",
			Short: "Receive updates by long polling",
			RunE:  run((*app.App).RunPolling),
		},
		&cobra.Command{
			Use:   "webhook",
			Short: "Receive updates on an HTTP webhook",
			RunE:  run((*app.App).RunWebhook),
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or upgrade the catalog schema and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := app.OpenStore(cmd.Context(), cfg.DB)
				if err != nil {
					return err
				}
				logger.Default().Info("schema up to date", "driver", cfg.DB.Driver)
				return s.Close(cmd.Context())
			},
		},
	)
	return root
}
