// Package assistant turns inbound messages into replies. It owns the order in
// which undo, pending disambiguation, media and free text are handled.
package assistant

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"finbot/internal/core"
	"finbot/internal/directory"
	"finbot/internal/extract"
	"finbot/internal/format"
	"finbot/internal/log"
	"finbot/internal/media"
	"finbot/internal/pending"
	"finbot/internal/resolver"
	"finbot/internal/spending"
	"finbot/internal/storage"
)

// DefaultPeriodConfidence is the minimum confidence accepted for a period
// guess before the user is asked to spell it out.
const DefaultPeriodConfidence = 0.5

// MediaDispatcher hands a media job to asynchronous processing.
type MediaDispatcher interface {
	Dispatch(ctx context.Context, job media.Job) error
}

// Deps wires the assistant. Store and Actions are required; the rest default
// to implementations built on Store or disable the feature they serve.
type Deps struct {
	Store       storage.Store
	Directory   *directory.Directory
	Pending     *pending.Store
	Locks       *pending.Locks
	Spending    resolver.SpendCalculator
	Actions     extract.ActionInterpreter
	Periods     extract.PeriodInterpreter
	Receipts    extract.ReceiptReader
	Transcriber extract.Transcriber
	Media       MediaDispatcher
	Logger      *log.Logger
	Now         func() time.Time

	PeriodConfidence float64
}

type Assistant struct {
	store       storage.Store
	dir         *directory.Directory
	pending     *pending.Store
	locks       *pending.Locks
	engine      *resolver.Engine
	actions     extract.ActionInterpreter
	periods     extract.PeriodInterpreter
	receipts    extract.ReceiptReader
	transcriber extract.Transcriber
	media       MediaDispatcher
	logger      *log.Logger
	now         func() time.Time
	confidence  float64
}

func New(d Deps) *Assistant {
	if d.Logger == nil {
		d.Logger = log.New(log.DefaultConfig())
	}
	if d.Directory == nil {
		d.Directory = directory.New(d.Store, 0)
	}
	if d.Pending == nil {
		d.Pending = pending.NewStore(d.Store)
	}
	if d.Locks == nil {
		d.Locks = pending.NewLocks()
	}
	if d.Spending == nil {
		d.Spending = spending.NewAggregator(d.Store)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.PeriodConfidence <= 0 {
		d.PeriodConfidence = DefaultPeriodConfidence
	}

	return &Assistant{
		store:       d.Store,
		dir:         d.Directory,
		pending:     d.Pending,
		locks:       d.Locks,
		engine:      resolver.NewEngine(d.Pending, d.Store, d.Store, d.Spending, d.Logger),
		actions:     d.Actions,
		periods:     d.Periods,
		receipts:    d.Receipts,
		transcriber: d.Transcriber,
		media:       d.Media,
		logger:      d.Logger.WithComponent(log.ComponentAssistant),
		now:         d.Now,
		confidence:  d.PeriodConfidence,
	}
}

// HandleMessage answers one inbound message. Media is acknowledged right away
// and processed through the MediaDispatcher. It never fails: internal errors
// become a generic apology.
func (a *Assistant) HandleMessage(ctx context.Context, profileID, text string, ref *media.Ref) (reply string) {
	defer a.recoverInto(ctx, profileID, &reply)

	unlock := a.locks.Lock(profileID)
	defer unlock()

	text = strings.TrimSpace(text)
	if text != "" {
		r, handled, err := a.handleText(ctx, profileID, text)
		if err != nil {
			return a.internalError(ctx, profileID, err)
		}
		if handled {
			return r
		}
	}

	if ref != nil && ref.URL != "" {
		return a.acceptMedia(ctx, profileID, text, *ref)
	}
	if text == "" {
		return format.EmptyMessage
	}

	r, err := a.interpret(ctx, profileID, text)
	if err != nil {
		return a.internalError(ctx, profileID, err)
	}
	return r
}

// HandleMedia processes a downloaded attachment. Images and PDFs are read as
// receipts; audio is transcribed and handled as text.
func (a *Assistant) HandleMedia(ctx context.Context, profileID, text string, m media.Media) (reply string) {
	defer a.recoverInto(ctx, profileID, &reply)

	unlock := a.locks.Lock(profileID)
	defer unlock()

	a.logger.InfoContext(ctx, "Processing media",
		log.FieldProfileID, profileID,
		log.FieldMediaKind, string(m.Kind),
		"bytes", len(m.Data))

	var err error
	switch m.Kind {
	case media.KindImage, media.KindPDF:
		reply, err = a.receipt(ctx, profileID, strings.TrimSpace(text), m)
	case media.KindAudio:
		reply, err = a.voice(ctx, profileID, m)
	default:
		return format.UnknownMedia
	}
	if err != nil {
		return a.internalError(ctx, profileID, err)
	}
	return reply
}

// handleText runs the steps that can answer a text before interpretation:
// undo, new-intent reset and pending resolution.
func (a *Assistant) handleText(ctx context.Context, profileID, text string) (string, bool, error) {
	if IsUndo(text) {
		r, err := a.undo(ctx, profileID)
		return r, true, err
	}

	if IsNewIntent(text) {
		if err := a.pending.Clear(ctx, profileID); err != nil {
			return "", true, fmt.Errorf("clear pending action: %w", err)
		}
		a.logger.DebugContext(ctx, "New intent, pending action cleared", log.FieldProfileID, profileID)
	}

	return a.engine.Resolve(ctx, profileID, text)
}

func (a *Assistant) acceptMedia(ctx context.Context, profileID, text string, ref media.Ref) string {
	if a.media == nil {
		a.logger.WarnContext(ctx, "Media received but processing is disabled", log.FieldProfileID, profileID)
		return format.MediaDisabled
	}
	if kind := media.KindOf(ref.ContentType); ref.ContentType != "" && kind == media.KindUnknown {
		return format.UnknownMedia
	}

	job := media.NewJob(profileID, text, ref)
	if err := a.media.Dispatch(ctx, job); err != nil {
		a.logger.ErrorContext(ctx, "Failed to dispatch media job",
			log.FieldProfileID, profileID, log.FieldJobID, job.ID, log.FieldError, err)
		return format.MediaBusy
	}
	a.logger.InfoContext(ctx, "Media job dispatched",
		log.FieldProfileID, profileID,
		log.FieldJobID, job.ID,
		log.FieldMediaKind, string(media.KindOf(ref.ContentType)))
	return format.MediaAccepted
}

func (a *Assistant) recoverInto(ctx context.Context, profileID string, reply *string) {
	if r := recover(); r != nil {
		a.logger.ErrorContext(ctx, "Recovered from panic while handling message",
			log.FieldProfileID, profileID,
			"panic", fmt.Sprint(r),
			"stack", string(debug.Stack()))
		*reply = format.InternalError
	}
}

func (a *Assistant) internalError(ctx context.Context, profileID string, err error) string {
	a.logger.ErrorContext(ctx, "Failed to handle message", log.FieldProfileID, profileID, log.FieldError, err)
	return format.InternalError
}

// promptTerm is the alias shown above a choice list.
func promptTerm(c core.Conditions) string {
	if c.IBAN != "" {
		return c.IBAN
	}
	if t := strings.TrimSpace(c.Bank + " " + c.Company); t != "" {
		return t
	}
	return "cont"
}
