package directory

import (
	"context"
	"testing"
	"time"

	"finbot/internal/core"
	"finbot/internal/storage"
	"finbot/internal/storage/memory"
)

func testAccounts() []core.Account {
	return []core.Account{
		{IBAN: "RO11BTRL0000000000000001", Bank: "Banca Transilvania", Company: "Alpha SRL"},
		{IBAN: "RO22BTRL0000000000000002", Bank: "Banca Transilvania", Company: "Beta SRL"},
		{IBAN: "RO33INGB0000000000000003", Bank: "ING Bank", Company: "Alpha SRL"},
		{IBAN: "RO44BTRL0000000000000004", Bank: "Banca  Transilvania", Company: "Gamma"},
	}
}

type countingStore struct {
	storage.AccountStore
	lists int
}

func (c *countingStore) ListAccounts(ctx context.Context, f storage.AccountFilter) ([]core.Account, error) {
	c.lists++
	return c.AccountStore.ListAccounts(ctx, f)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Banca Transilvania", "bancatransilvania"},
		{"  ING\tBank ", "ingbank"},
		{"ȘTEFAN Ș.R.L.", "ștefanș.r.l."},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindCandidates(t *testing.T) {
	ctx := context.Background()
	d := New(memory.New(testAccounts()...), time.Minute)

	tests := []struct {
		name  string
		cond  core.Conditions
		ibans []string
	}{
		{"iban exact", core.Conditions{IBAN: "ro11 btrl 0000 0000 0000 0001"}, []string{"RO11BTRL0000000000000001"}},
		{"iban wins over bank", core.Conditions{IBAN: "RO33INGB0000000000000003", Bank: "Banca Transilvania"}, []string{"RO33INGB0000000000000003"}},
		{"unknown iban", core.Conditions{IBAN: "RO00XXXX0000000000000000", Bank: "ING Bank"}, nil},
		{"bank", core.Conditions{Bank: "Banca Transilvania"}, []string{"RO11BTRL0000000000000001", "RO22BTRL0000000000000002"}},
		{"company", core.Conditions{Company: "Alpha SRL"}, []string{"RO11BTRL0000000000000001", "RO33INGB0000000000000003"}},
		{"bank and company", core.Conditions{Bank: "ING Bank", Company: "Alpha SRL"}, []string{"RO33INGB0000000000000003"}},
		{"no match", core.Conditions{Bank: "BRD"}, nil},
		{"empty matches all", core.Conditions{}, []string{"RO11BTRL0000000000000001", "RO22BTRL0000000000000002", "RO33INGB0000000000000003", "RO44BTRL0000000000000004"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.FindCandidates(ctx, tt.cond)
			if err != nil {
				t.Fatalf("FindCandidates: %v", err)
			}
			if len(got) != len(tt.ibans) {
				t.Fatalf("expected %d candidates, got %+v", len(tt.ibans), got)
			}
			for i, c := range got {
				if c.IBAN != tt.ibans[i] {
					t.Errorf("candidate %d = %s, want %s", i, c.IBAN, tt.ibans[i])
				}
			}
		})
	}
}

func TestCanonicalize_FirstWinsOnCollision(t *testing.T) {
	ctx := context.Background()
	d := New(memory.New(testAccounts()...), time.Minute)

	got, err := d.Canonicalize(ctx, core.Conditions{IBAN: "ro11 btrl", Bank: "banca transilvania", Company: "alphasrl"})
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := core.Conditions{IBAN: "RO11BTRL", Bank: "Banca Transilvania", Company: "Alpha SRL"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	got, _ = d.Canonicalize(ctx, core.Conditions{Bank: "Unknown Bank"})
	if got.Bank != "Unknown Bank" {
		t.Fatalf("unknown names must pass through, got %q", got.Bank)
	}
}

func TestResolveMentioned(t *testing.T) {
	ctx := context.Background()
	d := New(memory.New(testAccounts()...), time.Minute)

	bank, ok, err := d.ResolveMentionedBank(ctx, "cât am cheltuit ieri în ING bank?")
	if err != nil || !ok || bank != "ING Bank" {
		t.Fatalf("expected ING Bank, got %q %v %v", bank, ok, err)
	}
	company, ok, _ := d.ResolveMentionedCompany(ctx, "pe beta srl")
	if !ok || company != "Beta SRL" {
		t.Fatalf("expected Beta SRL, got %q %v", company, ok)
	}
	if _, ok, _ := d.ResolveMentionedBank(ctx, "   "); ok {
		t.Fatal("blank text must not match")
	}

	guess, _ := d.Guess(ctx, "cât am cheltuit săptămâna trecută pe Alpha SRL la Banca Transilvania")
	if guess.Bank != "Banca Transilvania" || guess.Company != "Alpha SRL" {
		t.Fatalf("unexpected guess: %+v", guess)
	}
}

func TestMappingIsCached(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{AccountStore: memory.New(testAccounts()...)}
	d := New(store, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := d.Mapping(ctx); err != nil {
			t.Fatalf("Mapping: %v", err)
		}
	}
	if store.lists != 1 {
		t.Fatalf("expected one load, got %d", store.lists)
	}

	d.Invalidate()
	m, _ := d.Mapping(ctx)
	if store.lists != 2 {
		t.Fatalf("expected reload after invalidate, got %d", store.lists)
	}
	if len(m.Banks) != 2 || len(m.Companies) != 3 {
		t.Fatalf("unexpected mapping: %+v", m)
	}

	uncached := New(store, 0)
	uncached.Mapping(ctx)
	uncached.Mapping(ctx)
	if store.lists != 4 {
		t.Fatalf("expected zero ttl to reload each time, got %d", store.lists)
	}
}
