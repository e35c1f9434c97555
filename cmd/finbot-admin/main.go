package main

import (
	"context"
	"fmt"
	"os"

	"finbot/internal/cli"
	"finbot/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("warn")

	root := cli.NewAdminCommand(func(ctx context.Context) (*cli.AdminDeps, error) {
		cfg := cli.LoadAndValidateConfig(logger)
		app, err := cli.Build(ctx, cfg, logger.WithComponent(log.ComponentCLI))
		if err != nil {
			return nil, err
		}
		return &cli.AdminDeps{
			Store: app.Store,
			Chat: func() (cli.MessageHandler, error) {
				bot, err := app.NewAssistant(nil)
				if err != nil {
					return nil, err
				}
				return bot, nil
			},
			Close: app.Close,
		}, nil
	})

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
