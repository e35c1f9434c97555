package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"finbot/internal/core"
	"finbot/internal/format"
	"finbot/internal/log"
)

type (
	PendingStore interface {
		Save(ctx context.Context, a core.PendingAction) error
		Get(ctx context.Context, profileID string) (core.PendingAction, bool, error)
		Clear(ctx context.Context, profileID string) error
	}

	AccountReader interface {
		GetAccount(ctx context.Context, iban string) (core.Account, error)
	}

	Ledger interface {
		InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	}

	SpendCalculator interface {
		ComputeSpent(ctx context.Context, start, end time.Time, iban string) (decimal.Decimal, error)
	}
)

// Engine resolves replies against the pending action of a profile. Callers
// serialize calls per profile.
type Engine struct {
	pending  PendingStore
	accounts AccountReader
	ledger   Ledger
	spend    SpendCalculator
	logger   *log.Logger
}

func NewEngine(p PendingStore, accounts AccountReader, ledger Ledger, spend SpendCalculator, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Engine{
		pending:  p,
		accounts: accounts,
		ledger:   ledger,
		spend:    spend,
		logger:   logger.WithComponent(log.ComponentResolver),
	}
}

// Resolve consumes text as the answer to the pending action of profileID.
// handled is false when nothing is pending. Every terminal outcome clears
// the pending action, including failures.
func (e *Engine) Resolve(ctx context.Context, profileID, text string) (reply string, handled bool, err error) {
	a, ok, err := e.pending.Get(ctx, profileID)
	if !ok {
		return "", false, err
	}
	if err != nil {
		e.logger.WarnContext(ctx, "Discarding unreadable pending action",
			log.FieldProfileID, profileID, log.FieldActionType, string(a.Type), log.FieldError, err)
		if cerr := e.pending.Clear(ctx, profileID); cerr != nil {
			return "", true, fmt.Errorf("clear pending action: %w", cerr)
		}
		if errors.Is(err, core.ErrUnknownAction) {
			return format.UnknownOperation, true, nil
		}
		return format.PendingUnreadable, true, nil
	}

	sel := Select(a, text)
	e.logger.DebugContext(ctx, "Pending reply resolved",
		log.FieldProfileID, profileID,
		log.FieldActionType, string(a.Type),
		log.FieldCandidates, len(a.Candidates()),
		"outcome", sel.Outcome.String())

	switch sel.Outcome {
	case Narrowed:
		narrowed := a.WithCandidates(sel.Candidates)
		narrowed.CreatedAt = time.Time{}
		if err := e.pending.Save(ctx, narrowed); err != nil {
			return "", true, fmt.Errorf("save narrowed pending action: %w", err)
		}
		return Prompt(narrowed.Type, strings.TrimSpace(text), sel.Candidates), true, nil

	case Reprompt:
		return Prompt(a.Type, a.SearchTerm(), a.Candidates()), true, nil

	case ChosenMany:
		lines := lo.Map(sel.Candidates, func(c core.Candidate, _ int) string {
			return e.balanceLine(ctx, c.IBAN)
		})
		return e.finish(ctx, profileID, strings.Join(lines, "\n"), nil)

	case DirectLookup:
		return e.finish(ctx, profileID, e.balanceLine(ctx, sel.IBAN), nil)

	case ChosenAll:
		reply, err := e.Execute(ctx, a, nil)
		return e.finish(ctx, profileID, reply, err)
	}

	c := sel.Candidates[0]
	reply, err = e.Execute(ctx, a, &c)
	return e.finish(ctx, profileID, reply, err)
}

func (e *Engine) finish(ctx context.Context, profileID, reply string, execErr error) (string, bool, error) {
	if err := e.pending.Clear(ctx, profileID); err != nil {
		return "", true, errors.Join(execErr, fmt.Errorf("clear pending action: %w", err))
	}
	if execErr != nil {
		return "", true, execErr
	}
	return reply, true, nil
}

// Execute carries out a against the chosen candidate. A nil candidate means
// every account and is only meaningful for sum_spent. It does not touch the
// pending store, so it also serves requests that were never ambiguous.
func (e *Engine) Execute(ctx context.Context, a core.PendingAction, c *core.Candidate) (string, error) {
	switch p := a.Payload.(type) {
	case core.TransferPayload:
		if c == nil {
			return format.UnknownOperation, nil
		}
		return e.insert(ctx, a, p, c.IBAN), nil

	case core.BalancePayload:
		if c == nil {
			return format.UnknownOperation, nil
		}
		return e.balanceLine(ctx, c.IBAN), nil

	case core.SpendPayload:
		iban := ""
		if c != nil {
			iban = c.IBAN
		}
		total, err := e.spend.ComputeSpent(ctx, p.Start, p.End, iban)
		if err != nil {
			return "", fmt.Errorf("compute spent: %w", err)
		}
		return format.Spent(total, c), nil
	}
	return format.UnknownOperation, nil
}

func (e *Engine) insert(ctx context.Context, a core.PendingAction, p core.TransferPayload, iban string) string {
	if p.Amount == nil {
		return format.AmountMissing
	}
	tx := core.NewTransaction(a.ProfileID, iban, *p.Amount, p.Currency)
	tx.Description = p.Description
	if a.Type == core.ActionAddTrx {
		tx.InvoiceNumber = p.InvoiceNumber
	}

	saved, err := e.ledger.InsertTransaction(ctx, tx)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to save transaction",
			log.FieldProfileID, a.ProfileID,
			log.FieldIBAN, format.MaskIBAN(iban),
			log.FieldError, err)
		return format.SaveFailed(err)
	}
	e.logger.InfoContext(ctx, "Transaction saved",
		log.FieldProfileID, a.ProfileID,
		log.FieldIBAN, format.MaskIBAN(iban),
		log.FieldActionType, string(a.Type),
		log.FieldAmount, saved.Amount.Decimal.String(),
		log.FieldCurrency, saved.Currency)

	acc, err := e.accounts.GetAccount(ctx, iban)
	if err != nil {
		return format.TransactionSaved(saved, nil)
	}
	return format.TransactionSaved(saved, &acc)
}

func (e *Engine) balanceLine(ctx context.Context, iban string) string {
	acc, err := e.accounts.GetAccount(ctx, iban)
	if errors.Is(err, core.ErrNotFound) {
		return format.NotFound(iban)
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to read balance", log.FieldIBAN, format.MaskIBAN(iban), log.FieldError, err)
		return format.BalanceUnavailable
	}
	return format.Balance(acc)
}

// Prompt renders the choice list for an action type; spend queries get the
// extra "all accounts" option.
func Prompt(t core.ActionType, alias string, cs []core.Candidate) string {
	if strings.TrimSpace(alias) == "" {
		alias = "cont"
	}
	if t == core.ActionSumSpent {
		return format.ChoicePromptWithAll(alias, cs)
	}
	return format.ChoicePrompt(alias, cs)
}
