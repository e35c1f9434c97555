// Package worker runs media jobs off the request path, either from the AMQP
// queue or from an in-process pool.
package worker

import (
	"context"
	"errors"
	"time"

	"finbot/internal/amqp"
	"finbot/internal/format"
	"finbot/internal/log"
	"finbot/internal/media"
	"finbot/internal/messaging"
)

type (
	Fetcher interface {
		Fetch(ctx context.Context, ref media.Ref) (media.Media, error)
	}

	MediaHandler interface {
		HandleMedia(ctx context.Context, profileID, text string, m media.Media) string
	}
)

// MediaWorker downloads an attachment, lets the assistant handle it and sends
// the reply as a new outbound message.
type MediaWorker struct {
	fetcher Fetcher
	handler MediaHandler
	sender  messaging.Sender
	logger  *log.Logger
}

func NewMediaWorker(fetcher Fetcher, handler MediaHandler, sender messaging.Sender, logger *log.Logger) *MediaWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MediaWorker{
		fetcher: fetcher,
		handler: handler,
		sender:  sender,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// Process handles one job. Download and delivery failures are reported to
// the user or logged; only a cancelled context is returned as an error.
func (w *MediaWorker) Process(ctx context.Context, job media.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	var reply string
	m, err := w.fetcher.Fetch(ctx, job.Ref)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to fetch media",
			log.FieldJobID, job.ID,
			log.FieldProfileID, job.ProfileID,
			log.FieldError, err)
		reply = format.MediaDownloadFailed(err)
	} else {
		reply = w.handler.HandleMedia(ctx, job.ProfileID, job.Text, m)
	}

	w.deliver(ctx, job, reply)
	w.logger.InfoContext(ctx, "Media job processed",
		log.FieldJobID, job.ID,
		log.FieldProfileID, job.ProfileID,
		log.FieldMediaKind, string(m.Kind),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// HandleMessage adapts Process to the AMQP consumer.
func (w *MediaWorker) HandleMessage(ctx context.Context, msg *amqp.MediaJobMessage) error {
	return w.Process(ctx, msg.Job())
}

func (w *MediaWorker) deliver(ctx context.Context, job media.Job, reply string) {
	err := w.sender.Send(ctx, job.ProfileID, reply)
	switch {
	case err == nil:
	case errors.Is(err, messaging.ErrDailyLimit):
		w.logger.WarnContext(ctx, "Daily message limit reached, reply dropped",
			log.FieldJobID, job.ID, log.FieldProfileID, job.ProfileID)
	default:
		w.logger.ErrorContext(ctx, "Failed to send reply",
			log.FieldJobID, job.ID, log.FieldProfileID, job.ProfileID, log.FieldError, err)
	}
}
