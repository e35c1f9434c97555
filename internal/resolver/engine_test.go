package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
	"finbot/internal/format"
	"finbot/internal/pending"
	"finbot/internal/spending"
	"finbot/internal/storage"
	"finbot/internal/storage/memory"
)

type fixture struct {
	store   *memory.Store
	pending *pending.Store
	engine  *Engine
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New(
		core.Account{IBAN: three[0].IBAN, Bank: three[0].Bank, Company: three[0].Company, Balance: decimal.NewFromInt(1000)},
		core.Account{IBAN: three[1].IBAN, Bank: three[1].Bank, Company: three[1].Company, Balance: decimal.NewFromInt(500)},
		core.Account{IBAN: three[2].IBAN, Bank: three[2].Bank, Company: three[2].Company, Balance: decimal.NewFromInt(20)},
	)
	p := pending.NewStore(store)
	return fixture{
		store:   store,
		pending: p,
		engine:  NewEngine(p, store, store, spending.NewAggregator(store), nil),
	}
}

func (f fixture) mustSave(t *testing.T, a core.PendingAction) {
	t.Helper()
	if err := f.pending.Save(context.Background(), a); err != nil {
		t.Fatalf("save pending: %v", err)
	}
}

func (f fixture) assertCleared(t *testing.T) {
	t.Helper()
	if _, ok, _ := f.pending.Get(context.Background(), "p1"); ok {
		t.Fatal("expected pending action to be cleared")
	}
}

func (f fixture) assertPending(t *testing.T) core.PendingAction {
	t.Helper()
	a, ok, err := f.pending.Get(context.Background(), "p1")
	if !ok || err != nil {
		t.Fatalf("expected pending action, ok=%v err=%v", ok, err)
	}
	return a
}

func TestResolve_NothingPending(t *testing.T) {
	f := newFixture(t)
	reply, handled, err := f.engine.Resolve(context.Background(), "p1", "2")
	if handled || err != nil || reply != "" {
		t.Fatalf("expected unhandled, got %q %v %v", reply, handled, err)
	}
}

func TestResolve_UpdateByIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	amount := decimal.NewFromInt(300)
	f.mustSave(t, core.NewUpdateAction("p1", core.TransferPayload{
		Candidates: three[:2], Amount: &amount, Currency: "RON", SearchTerm: "Banca Transilvania",
	}))

	reply, handled, err := f.engine.Resolve(ctx, "p1", "2")
	if !handled || err != nil {
		t.Fatalf("Resolve: handled=%v err=%v", handled, err)
	}
	if !strings.Contains(reply, "300.00 RON") || !strings.Contains(reply, "Sold curent: 800.00 RON") {
		t.Fatalf("unexpected confirmation: %q", reply)
	}
	last, err := f.store.LastTransaction(ctx, "p1")
	if err != nil || last.Account != three[1].IBAN || last.InvoiceNumber != nil {
		t.Fatalf("unexpected transaction: %+v %v", last, err)
	}
	f.assertCleared(t)
}

func TestResolve_AddTrxKeepsInvoiceNumber(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	amount := decimal.RequireFromString("-45.90")
	f.mustSave(t, core.NewAddTrxAction("p1", core.TransferPayload{
		Candidates: three, Amount: &amount, Currency: "ron", InvoiceNumber: core.StringPtr("F-123"), Description: core.StringPtr("Kaufland"),
	}))

	if _, _, err := f.engine.Resolve(ctx, "p1", three[2].IBAN); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	last, _ := f.store.LastTransaction(ctx, "p1")
	if last.InvoiceNumber == nil || *last.InvoiceNumber != "F-123" || last.Currency != "RON" || *last.Description != "Kaufland" {
		t.Fatalf("unexpected transaction: %+v", last)
	}
	acc, _ := f.store.GetAccount(ctx, three[2].IBAN)
	if !acc.Balance.Equal(decimal.RequireFromString("-25.90")) {
		t.Fatalf("unexpected balance %s", acc.Balance)
	}
}

func TestResolve_UpdateWithoutAmount(t *testing.T) {
	f := newFixture(t)
	f.mustSave(t, core.NewUpdateAction("p1", core.TransferPayload{Candidates: three}))

	reply, _, err := f.engine.Resolve(context.Background(), "p1", "1")
	if err != nil || reply != format.AmountMissing {
		t.Fatalf("expected amount-missing reply, got %q %v", reply, err)
	}
	f.assertCleared(t)
}

func TestResolve_InsertFailureClearsPending(t *testing.T) {
	f := newFixture(t)
	amount := decimal.NewFromInt(5)
	gone := core.Candidate{IBAN: "RO00GONE0000000000000000"}
	f.mustSave(t, core.NewUpdateAction("p1", core.TransferPayload{Candidates: []core.Candidate{gone, three[0]}, Amount: &amount}))

	reply, _, err := f.engine.Resolve(context.Background(), "p1", "1")
	if err != nil || !strings.HasPrefix(reply, "❌ Eroare la salvarea tranzacției:") {
		t.Fatalf("expected save failure reply, got %q %v", reply, err)
	}
	f.assertCleared(t)
}

func TestResolve_MultiSelect(t *testing.T) {
	f := newFixture(t)
	f.mustSave(t, core.NewSelectAction("p1", core.BalancePayload{Candidates: three, SearchTerm: "cont"}))

	reply, _, err := f.engine.Resolve(context.Background(), "p1", "1 3")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	lines := strings.Split(reply, "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "1000.00") || !strings.Contains(lines[1], "20.00") {
		t.Fatalf("unexpected balance lines: %q", reply)
	}
	f.assertCleared(t)
}

func TestResolve_DirectIBANLookup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mustSave(t, core.NewSelectAction("p1", core.BalancePayload{Candidates: three[:2]}))

	reply, _, _ := f.engine.Resolve(ctx, "p1", "ro33 ingb 0000 0000 0000 0003")
	if !strings.Contains(reply, "ING Bank - Alpha Construct: 20.00 RON") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	f.assertCleared(t)

	f.mustSave(t, core.NewSelectAction("p1", core.BalancePayload{Candidates: three[:2]}))
	reply, _, _ = f.engine.Resolve(ctx, "p1", "RO99RNCB0000000000000009")
	if reply != format.NotFound("RO99RNCB0000000000000009") {
		t.Fatalf("expected not found for unknown iban, got %q", reply)
	}
}

func TestResolve_NarrowPersistsSubset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	amount := decimal.NewFromInt(10)
	f.mustSave(t, core.NewUpdateAction("p1", core.TransferPayload{Candidates: three, Amount: &amount, SearchTerm: "cont"}))

	reply, _, err := f.engine.Resolve(ctx, "p1", "alpha")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.Contains(reply, "«alpha»") || !strings.Contains(reply, "2) ING Alpha Construct") {
		t.Fatalf("unexpected narrowed prompt: %q", reply)
	}
	if got := f.assertPending(t).Candidates(); len(got) != 2 {
		t.Fatalf("expected 2 candidates persisted, got %d", len(got))
	}

	// Indices now refer to the narrowed list.
	if _, _, err := f.engine.Resolve(ctx, "p1", "2"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	last, _ := f.store.LastTransaction(ctx, "p1")
	if last.Account != three[2].IBAN {
		t.Fatalf("expected the narrowed second candidate, got %s", last.Account)
	}
}

func TestResolve_RepromptKeepsPending(t *testing.T) {
	f := newFixture(t)
	f.mustSave(t, core.NewSpendAction("p1", core.SpendPayload{Candidates: three, SearchTerm: "cont"}))

	reply, handled, err := f.engine.Resolve(context.Background(), "p1", "habar n-am")
	if !handled || err != nil {
		t.Fatalf("Resolve: %v %v", handled, err)
	}
	if !strings.Contains(reply, "0) Toate conturile") || !strings.Contains(reply, "«cont»") {
		t.Fatalf("expected prompt with all option, got %q", reply)
	}
	if got := f.assertPending(t).Candidates(); len(got) != 3 {
		t.Fatalf("expected candidates untouched, got %d", len(got))
	}
}

func TestResolve_SpendAllAndSingle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	for i, c := range three {
		tx := core.NewTransaction("p1", c.IBAN, decimal.NewFromInt(int64(-10*(i+1))), "RON")
		tx.CreatedAt = start.AddDate(0, 0, 1)
		if _, err := f.store.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	spend := core.NewSpendAction("p1", core.SpendPayload{Candidates: three, Start: start, End: end, SearchTerm: "cont"})

	f.mustSave(t, spend)
	reply, _, _ := f.engine.Resolve(ctx, "p1", "0")
	if reply != format.Spent(decimal.NewFromInt(60), nil) {
		t.Fatalf("unexpected all-accounts reply: %q", reply)
	}
	f.assertCleared(t)

	f.mustSave(t, spend)
	reply, _, _ = f.engine.Resolve(ctx, "p1", "2")
	c := three[1]
	if reply != format.Spent(decimal.NewFromInt(20), &c) {
		t.Fatalf("unexpected single-account reply: %q", reply)
	}
}

func TestResolve_UnknownStoredAction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_ = f.store.ReplacePending(ctx, storage.PendingRow{ProfileID: "p1", ActionType: "merge", Payload: []byte(`{}`)})

	reply, handled, err := f.engine.Resolve(ctx, "p1", "1")
	if !handled || err != nil || reply != format.UnknownOperation {
		t.Fatalf("expected unknown operation, got %q %v %v", reply, handled, err)
	}
	f.assertCleared(t)
}

func TestResolve_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_ = f.store.ReplacePending(ctx, storage.PendingRow{ProfileID: "p1", ActionType: "update", Payload: []byte(`{"amount":"lots"}`)})

	reply, _, err := f.engine.Resolve(ctx, "p1", "1")
	if err != nil || reply != format.PendingUnreadable {
		t.Fatalf("expected unreadable reply, got %q %v", reply, err)
	}
	f.assertCleared(t)
}

type failingSpend struct{}

func (failingSpend) ComputeSpent(context.Context, time.Time, time.Time, string) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("db down")
}

func TestResolve_SpendErrorClearsAndPropagates(t *testing.T) {
	f := newFixture(t)
	f.engine = NewEngine(f.pending, f.store, f.store, failingSpend{}, nil)
	f.mustSave(t, core.NewSpendAction("p1", core.SpendPayload{Candidates: three}))

	_, handled, err := f.engine.Resolve(context.Background(), "p1", "0")
	if !handled || err == nil {
		t.Fatalf("expected error, got handled=%v err=%v", handled, err)
	}
	f.assertCleared(t)
}

func TestExecute_DoesNotTouchPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mustSave(t, core.NewSelectAction("p1", core.BalancePayload{Candidates: three}))

	c := three[0]
	reply, err := f.engine.Execute(ctx, core.NewSelectAction("p1", core.BalancePayload{}), &c)
	if err != nil || !strings.Contains(reply, "1000.00") {
		t.Fatalf("unexpected reply %q %v", reply, err)
	}
	f.assertPending(t)

	if reply, _ := f.engine.Execute(ctx, core.NewSelectAction("p1", core.BalancePayload{}), nil); reply != format.UnknownOperation {
		t.Fatalf("expected unknown operation without a candidate, got %q", reply)
	}
}
