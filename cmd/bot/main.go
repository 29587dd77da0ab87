package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/presetworks/overseer/internal/server"
	"github.com/presetworks/overseer/internal/setup"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "overseer",
		Usage: "Discord moderation bot for community presets",
		Action: func(ctx context.Context, _ *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Initialize application with required dependencies
			app, err := setup.InitializeApp(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Cleanup(ctx)

			srv := server.New(&app.Config.Server, app.Verifier, app.Router, app.Logger)
			if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		},
	}

	return app.Run(context.Background(), os.Args)
}
