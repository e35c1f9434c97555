package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"finbot/internal/core"
	"finbot/internal/directory"
	"finbot/internal/extract"
	"finbot/internal/format"
	"finbot/internal/log"
	"finbot/internal/media"
	"finbot/internal/resolver"
)

// interpret handles text that did not answer a pending action.
func (a *Assistant) interpret(ctx context.Context, profileID, text string) (string, error) {
	if IsSpendQuery(text) {
		return a.spend(ctx, profileID, text)
	}

	m, err := a.dir.Mapping(ctx)
	if err != nil {
		return "", fmt.Errorf("load name mapping: %w", err)
	}
	vocab := extract.Vocabulary{
		Banks:     lo.Map(m.Banks, func(n directory.Name, _ int) string { return n.Display }),
		Companies: lo.Map(m.Companies, func(n directory.Name, _ int) string { return n.Display }),
	}

	act, err := a.actions.Interpret(ctx, text, vocab)
	if err != nil {
		a.logger.WarnContext(ctx, "Could not interpret message", log.FieldProfileID, profileID, log.FieldError, err)
		if errors.Is(err, core.ErrInvalidAmount) {
			return format.AmountInvalid, nil
		}
		return format.NotUnderstood, nil
	}
	return a.dispatch(ctx, profileID, text, act)
}

// dispatch executes an interpreted action.
func (a *Assistant) dispatch(ctx context.Context, profileID, text string, act extract.Action) (string, error) {
	cond, err := a.dir.Canonicalize(ctx, act.Conditions)
	if err != nil {
		a.logger.WarnContext(ctx, "Could not canonicalize conditions", log.FieldError, err)
		cond = act.Conditions
	}

	a.logger.DebugContext(ctx, "Dispatching action",
		log.FieldProfileID, profileID,
		log.FieldOperation, string(act.Operation),
		"bank", cond.Bank,
		"company", cond.Company,
		log.FieldIBAN, format.MaskIBAN(cond.IBAN))

	switch act.Operation {
	case extract.OpNone:
		return format.NotUnderstood, nil
	case extract.OpUpdate:
		return a.update(ctx, profileID, cond, act)
	case extract.OpSelect:
		return a.balance(ctx, profileID, text, cond)
	}
	return format.UnknownOperation, nil
}

func (a *Assistant) update(ctx context.Context, profileID string, cond core.Conditions, act extract.Action) (string, error) {
	if act.Amount == nil {
		return format.AmountUnclear, nil
	}
	payload := core.TransferPayload{
		Amount:      act.Amount,
		Currency:    act.Currency,
		Description: act.Description,
		SearchTerm:  promptTerm(cond),
	}
	return a.transfer(ctx, profileID, core.ActionUpdate, cond, payload)
}

// transfer inserts right away when cond names exactly one account and
// otherwise leaves a pending choice.
func (a *Assistant) transfer(ctx context.Context, profileID string, t core.ActionType, cond core.Conditions, p core.TransferPayload) (string, error) {
	cs, err := a.dir.FindCandidates(ctx, cond)
	if err != nil {
		return "", err
	}

	build := core.NewUpdateAction
	if t == core.ActionAddTrx {
		build = core.NewAddTrxAction
	}

	switch len(cs) {
	case 0:
		return a.notFound(ctx, cond)
	case 1:
		return a.engine.Execute(ctx, build(profileID, p), &cs[0])
	}

	p.Candidates = cs
	if err := a.pending.Save(ctx, build(profileID, p)); err != nil {
		return "", fmt.Errorf("save pending action: %w", err)
	}
	return resolver.Prompt(t, p.SearchTerm, cs), nil
}

func (a *Assistant) balance(ctx context.Context, profileID, text string, cond core.Conditions) (string, error) {
	if cond.IsEmpty() && mentionsAllAccounts(text) {
		return a.allBalances(ctx)
	}

	cs, err := a.dir.FindCandidates(ctx, cond)
	if err != nil {
		return "", err
	}
	term := promptTerm(cond)

	switch len(cs) {
	case 0:
		return a.notFound(ctx, cond)
	case 1:
		return a.engine.Execute(ctx, core.NewSelectAction(profileID, core.BalancePayload{SearchTerm: term}), &cs[0])
	}

	act := core.NewSelectAction(profileID, core.BalancePayload{Candidates: cs, SearchTerm: term})
	if err := a.pending.Save(ctx, act); err != nil {
		return "", fmt.Errorf("save pending action: %w", err)
	}
	return resolver.Prompt(core.ActionSelect, term, cs), nil
}

func (a *Assistant) allBalances(ctx context.Context) (string, error) {
	accounts, err := a.dir.Accounts(ctx)
	if err != nil {
		return "", fmt.Errorf("list accounts: %w", err)
	}
	return format.AllBalances(accounts), nil
}

// notFound distinguishes an empty directory from conditions that matched
// nothing.
func (a *Assistant) notFound(ctx context.Context, cond core.Conditions) (string, error) {
	if cond.IsEmpty() {
		return format.NoAccounts, nil
	}
	return format.NotFound(cond.SearchTerm()), nil
}

func (a *Assistant) spend(ctx context.Context, profileID, text string) (string, error) {
	if a.periods == nil {
		return format.AskPeriod, nil
	}
	p, err := a.periods.InterpretPeriod(ctx, text, a.now())
	if err != nil {
		a.logger.WarnContext(ctx, "Could not interpret period", log.FieldProfileID, profileID, log.FieldError, err)
		return format.AskPeriod, nil
	}
	if !p.Complete() || p.Confidence < a.confidence {
		a.logger.DebugContext(ctx, "Period too uncertain",
			log.FieldProfileID, profileID, "confidence", p.Confidence, "normalized", p.Normalized)
		return format.AskPeriod, nil
	}

	hint, err := a.dir.Guess(ctx, text)
	if err != nil {
		return "", fmt.Errorf("guess account: %w", err)
	}
	cs, err := a.dir.FindCandidates(ctx, hint)
	if err != nil {
		return "", err
	}

	payload := core.SpendPayload{Start: p.Start, End: p.End, SearchTerm: "cont"}
	switch len(cs) {
	case 0:
		return format.NoSpendAccounts, nil
	case 1:
		return a.engine.Execute(ctx, core.NewSpendAction(profileID, payload), &cs[0])
	}

	payload.Candidates = cs
	if err := a.pending.Save(ctx, core.NewSpendAction(profileID, payload)); err != nil {
		return "", fmt.Errorf("save pending action: %w", err)
	}
	return resolver.Prompt(core.ActionSumSpent, payload.SearchTerm, cs), nil
}

// undo deletes the most recent transaction of the profile.
func (a *Assistant) undo(ctx context.Context, profileID string) (string, error) {
	last, err := a.store.LastTransaction(ctx, profileID)
	if errors.Is(err, core.ErrNotFound) {
		return format.NothingToUndo, nil
	}
	if err != nil {
		return "", fmt.Errorf("find last transaction: %w", err)
	}

	if err := a.store.DeleteTransaction(ctx, last.ID); err != nil {
		return "", fmt.Errorf("delete transaction: %w", err)
	}
	a.logger.InfoContext(ctx, "Transaction undone",
		log.FieldProfileID, profileID,
		log.FieldIBAN, format.MaskIBAN(last.Account),
		"transaction_id", last.ID)

	acc, err := a.dir.Account(ctx, last.Account)
	if err != nil {
		return format.Undone(last, nil), nil
	}
	return format.Undone(last, &acc), nil
}

// receipt books the amount read from a bill. An IBAN on the document is used
// only when it is one of our accounts; otherwise the caption names the account.
func (a *Assistant) receipt(ctx context.Context, profileID, caption string, m media.Media) (string, error) {
	if a.receipts == nil {
		return format.UnknownMedia, nil
	}
	r, err := a.receipts.ReadReceipt(ctx, m, caption)
	if err != nil {
		a.logger.WarnContext(ctx, "Could not read receipt", log.FieldProfileID, profileID, log.FieldError, err)
		if errors.Is(err, core.ErrInvalidAmount) {
			return format.AmountInvalid, nil
		}
		return format.ReceiptUnreadable, nil
	}
	if r.Amount == nil {
		return format.AmountUnclear, nil
	}

	cond := core.Conditions{}
	if r.IBAN != "" {
		if _, err := a.dir.Account(ctx, r.IBAN); err == nil {
			cond.IBAN = r.IBAN
		}
	}
	if cond.IBAN == "" {
		if cond, err = a.dir.Guess(ctx, caption); err != nil {
			return "", fmt.Errorf("guess account: %w", err)
		}
	}

	payload := core.TransferPayload{
		Amount:        r.Amount,
		Currency:      r.Currency,
		Description:   r.Description,
		InvoiceNumber: r.InvoiceNumber,
		SearchTerm:    promptTerm(cond),
	}
	return a.transfer(ctx, profileID, core.ActionAddTrx, cond, payload)
}

// voice transcribes audio and handles the transcript like a text message.
func (a *Assistant) voice(ctx context.Context, profileID string, m media.Media) (string, error) {
	if a.transcriber == nil {
		return format.UnknownMedia, nil
	}
	text, err := a.transcriber.Transcribe(ctx, m)
	if err != nil || text == "" {
		a.logger.WarnContext(ctx, "Could not transcribe audio", log.FieldProfileID, profileID, log.FieldError, err)
		return format.AudioUnreadable, nil
	}
	a.logger.DebugContext(ctx, "Audio transcribed", log.FieldProfileID, profileID, "transcript", text)

	r, handled, err := a.handleText(ctx, profileID, text)
	if err != nil || handled {
		return r, err
	}
	return a.interpret(ctx, profileID, text)
}
