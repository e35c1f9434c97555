package cli

import (
	"context"
	"errors"
	"fmt"

	"finbot/internal/assistant"
	"finbot/internal/backend"
	"finbot/internal/config"
	"finbot/internal/directory"
	"finbot/internal/extract"
	"finbot/internal/log"
	"finbot/internal/media"
	"finbot/internal/messaging"
	"finbot/internal/worker"
)

// ErrNoInterpreter is returned when an assistant is requested without a
// Gemini API key.
var ErrNoInterpreter = errors.New("GEMINI_API_KEY is required to interpret messages")

// App holds the collaborators every binary shares.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Store   backend.Backend
	Gemini  *extract.Gemini
	Fetcher *media.Fetcher
	Sender  messaging.Sender

	cleanup backend.CleanupFunc
}

// Build opens storage and creates the outbound collaborators described by cfg.
// Gemini is optional here; NewAssistant requires it.
func Build(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Store:   res.Backend,
		cleanup: res.Cleanup,
		Fetcher: media.NewFetcher(media.FetcherConfig{
			Username:           cfg.TwilioAccountSID,
			Password:           cfg.TwilioAuthToken,
			Timeout:            cfg.MediaFetchTimeout,
			GCSCredentialsFile: cfg.GCSCredentialsFile,
		}),
	}

	if cfg.GeminiAPIKey != "" {
		g, err := extract.NewGemini(ctx, extract.GeminiConfig{
			APIKey:    cfg.GeminiAPIKey,
			Model:     cfg.GeminiModel,
			FastModel: cfg.GeminiFastModel,
		}, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		app.Gemini = g
	} else {
		logger.Warn("GEMINI_API_KEY not set, message interpretation disabled")
	}

	if cfg.TwilioEnabled() {
		app.Sender = messaging.NewTwilio(messaging.TwilioConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioFrom,
		}, logger)
	} else {
		logger.Info("Twilio not configured, outbound messages are only logged")
		app.Sender = messaging.NewLogSender(logger)
	}

	return app, nil
}

// NewAssistant wires the assistant on the shared store. dispatcher may be nil,
// which disables asynchronous media handling.
func (a *App) NewAssistant(dispatcher assistant.MediaDispatcher) (*assistant.Assistant, error) {
	if a.Gemini == nil {
		return nil, ErrNoInterpreter
	}
	return assistant.New(assistant.Deps{
		Store:            a.Store,
		Directory:        directory.New(a.Store, a.Config.DirectoryCacheTTL),
		Actions:          a.Gemini,
		Periods:          a.Gemini,
		Receipts:         a.Gemini,
		Transcriber:      a.Gemini,
		Media:            dispatcher,
		Logger:           a.Logger,
		PeriodConfidence: a.Config.PeriodConfidenceThreshold,
	}), nil
}

func (a *App) NewMediaWorker(h worker.MediaHandler) *worker.MediaWorker {
	return worker.NewMediaWorker(a.Fetcher, h, a.Sender, a.Logger)
}

// Close releases storage and the object storage client.
func (a *App) Close() error {
	var errs []error
	if a.Fetcher != nil {
		errs = append(errs, a.Fetcher.Close())
	}
	if a.cleanup != nil {
		errs = append(errs, a.cleanup())
	}
	return errors.Join(errs...)
}
