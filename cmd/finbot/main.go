package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finbot/internal/amqp"
	"finbot/internal/assistant"
	"finbot/internal/cli"
	apphttp "finbot/internal/http"
	"finbot/internal/log"
	"finbot/internal/media"
	"finbot/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	app, err := cli.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err)
		os.Exit(1)
	}
	defer app.Close()

	// Media goes to the broker when one is configured, otherwise to an
	// in-process pool whose workers call back into the same assistant.
	var (
		dispatcher assistant.MediaDispatcher
		pool       *worker.Pool
		mediaJobs  *worker.MediaWorker
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		dispatcher = amqpClient
	} else {
		pool = worker.NewPool(cfg.MediaWorkers, cfg.MediaQueueSize, func(ctx context.Context, job media.Job) error {
			return mediaJobs.Process(ctx, job)
		}, logger)
		dispatcher = pool
	}

	bot, err := app.NewAssistant(dispatcher)
	if err != nil {
		logger.Error("Failed to initialize assistant", log.FieldError, err)
		os.Exit(1)
	}
	mediaJobs = app.NewMediaWorker(bot)

	srv := apphttp.NewServer(":"+cfg.Port, bot, apphttp.Options{
		TwilioAuthToken: cfg.TwilioAuthToken,
		PublicURL:       cfg.PublicURL,
		RateLimit:       cfg.RateLimit,
		Ready:           app.Store.Ping,
		Ledger:          app.Store,
		APIToken:        cfg.APIToken,
		Logger:          logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if pool != nil {
			pool.Stop()
		}
	})

	if pool != nil {
		pool.Start(ctx)
	}

	logger.Info("Starting finbot server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
