package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizeIBAN(t *testing.T) {
	cases := map[string]string{
		"ro49 aaaa 1b31 0075 9384 0000": "RO49AAAA1B31007593840000",
		"\tRO49AAAA1B31007593840000\n":  "RO49AAAA1B31007593840000",
		"":                              "",
	}
	for in, want := range cases {
		if got := NormalizeIBAN(in); got != want {
			t.Fatalf("NormalizeIBAN(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLooksLikeIBAN(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"RO49AAAA1B31007593840000", true},
		{"ro49 aaaa 1b31", true},
		{"RO49AAAA1B3", false},
		{"1249AAAA1B31007593840000", false},
		{"Banca Transilvania", false},
		{"2", false},
	}
	for _, tc := range cases {
		if got := LooksLikeIBAN(tc.in); got != tc.want {
			t.Fatalf("LooksLikeIBAN(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestConditionsSearchTerm(t *testing.T) {
	cases := []struct {
		c    Conditions
		want string
	}{
		{Conditions{IBAN: "RO1", Bank: "BT", Company: "Acme"}, "RO1"},
		{Conditions{Bank: "BT", Company: "Acme"}, "Acme"},
		{Conditions{Bank: "BT"}, "BT"},
		{Conditions{}, ""},
	}
	for _, tc := range cases {
		if got := tc.c.SearchTerm(); got != tc.want {
			t.Fatalf("SearchTerm(%+v) = %q, want %q", tc.c, got, tc.want)
		}
	}
}

func TestNewTransactionDefaults(t *testing.T) {
	tx := NewTransaction("whatsapp:+40700", "ro49 aaaa 1b31 0075 9384 0000", decimal.NewFromInt(-50), "")
	if tx.Currency != DefaultCurrency {
		t.Fatalf("currency = %q, want %q", tx.Currency, DefaultCurrency)
	}
	if tx.Account != "RO49AAAA1B31007593840000" {
		t.Fatalf("account not normalized: %q", tx.Account)
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	tx.Amount = decimal.NullDecimal{}
	if err := tx.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestPendingActionValidate(t *testing.T) {
	amount := decimal.NewFromInt(300)
	ok := NewUpdateAction("p", TransferPayload{Amount: &amount})
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mismatch := PendingAction{ProfileID: "p", Type: ActionSelect, Payload: TransferPayload{}}
	if err := mismatch.Validate(); !errors.Is(err, ErrPayloadMismatch) {
		t.Fatalf("expected ErrPayloadMismatch, got %v", err)
	}

	unknown := PendingAction{ProfileID: "p", Type: "delete_all"}
	if err := unknown.Validate(); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestPendingActionWithCandidates(t *testing.T) {
	a := NewSpendAction("p", SpendPayload{
		Candidates: []Candidate{{IBAN: "A"}, {IBAN: "B"}},
		Start:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		SearchTerm: "cont",
	})
	narrowed := a.WithCandidates([]Candidate{{IBAN: "B"}})

	if len(a.Candidates()) != 2 {
		t.Fatalf("original action mutated: %v", a.Candidates())
	}
	if got := narrowed.Candidates(); len(got) != 1 || got[0].IBAN != "B" {
		t.Fatalf("unexpected narrowed candidates: %v", got)
	}
	p := narrowed.Payload.(SpendPayload)
	if !p.Start.Equal(a.Payload.(SpendPayload).Start) || narrowed.SearchTerm() != "cont" {
		t.Fatalf("narrowing lost payload fields: %+v", p)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"300", "300", true},
		{"-12,5", "-12.5", true},
		{" 1.23 ", "1.23", true},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.want {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
	if FormatAmount(decimal.NewFromFloat(2.5)) != "2.50" {
		t.Fatalf("FormatAmount should pad to two decimals")
	}
}
