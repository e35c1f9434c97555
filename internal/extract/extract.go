// Package extract turns free text and documents into structured requests.
// The interfaces are the collaborator ports used by the assistant; Gemini is
// the production implementation.
package extract

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
	"finbot/internal/media"
)

// ErrUnparseable is returned when model output is not the expected JSON.
var ErrUnparseable = errors.New("unparseable model output")

type Operation string

const (
	OpUpdate Operation = "update"
	OpSelect Operation = "select"
	OpNone   Operation = "none"
)

type (
	// Action is a structured request on the accounts table. Amount is nil when
	// the text carried no sum.
	Action struct {
		Operation   Operation
		Conditions  core.Conditions
		Amount      *decimal.Decimal
		Currency    string
		Description *string
	}

	// Vocabulary lists the canonical bank and company names the model should
	// prefer when it fills conditions.
	Vocabulary struct {
		Banks     []string
		Companies []string
	}

	// Period is an inclusive interval guessed from free text.
	Period struct {
		Start      time.Time
		End        time.Time
		Confidence float64
		Normalized string
	}

	// Receipt is what a bill, invoice or bank slip yields. Amount is always an
	// outflow when present.
	Receipt struct {
		InvoiceNumber *string
		IBAN          string
		Amount        *decimal.Decimal
		Currency      string
		Description   *string
	}
)

// Complete reports whether both bounds are set and ordered.
func (p Period) Complete() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && !p.End.Before(p.Start)
}

type (
	ActionInterpreter interface {
		Interpret(ctx context.Context, text string, vocab Vocabulary) (Action, error)
	}

	PeriodInterpreter interface {
		InterpretPeriod(ctx context.Context, text string, now time.Time) (Period, error)
	}

	ReceiptReader interface {
		ReadReceipt(ctx context.Context, m media.Media, hint string) (Receipt, error)
	}

	Transcriber interface {
		Transcribe(ctx context.Context, m media.Media) (string, error)
	}
)
