package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finbot/internal/amqp"
	"finbot/internal/cli"
	"finbot/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting finbot-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the media worker")
		os.Exit(1)
	}

	app, err := cli.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err)
		os.Exit(1)
	}
	defer app.Close()

	// Voice notes re-enter the text pipeline; nothing is dispatched from here.
	bot, err := app.NewAssistant(nil)
	if err != nil {
		logger.Error("Failed to initialize assistant", log.FieldError, err)
		os.Exit(1)
	}
	mediaWorker := app.NewMediaWorker(bot)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	go func() {
		if err := amqpClient.ConsumeMediaJobs(ctx, mediaWorker.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Media job consumption failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
