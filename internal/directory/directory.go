// Package directory resolves partial account identifiers (IBAN, bank name,
// company name) to candidate accounts.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"finbot/internal/cache"
	"finbot/internal/core"
	"finbot/internal/storage"
)

const mappingKey = "mapping"

// Normalize is the lookup form of a bank or company name: lower case with
// every whitespace rune removed.
func Normalize(name string) string {
	lower := cases.Lower(language.Und).String(name)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, lower)
}

// Name pairs a normalized key with its canonical display form.
type Name struct {
	Key     string
	Display string
}

// Mapping holds every distinct bank and company name in account insertion
// order. When two display names normalize to the same key the first one wins.
type Mapping struct {
	Banks     []Name
	Companies []Name
}

func buildMapping(accounts []core.Account) Mapping {
	var m Mapping
	seenBank := map[string]bool{}
	seenCompany := map[string]bool{}
	for _, a := range accounts {
		if k := Normalize(a.Bank); k != "" && !seenBank[k] {
			seenBank[k] = true
			m.Banks = append(m.Banks, Name{Key: k, Display: a.Bank})
		}
		if k := Normalize(a.Company); k != "" && !seenCompany[k] {
			seenCompany[k] = true
			m.Companies = append(m.Companies, Name{Key: k, Display: a.Company})
		}
	}
	return m
}

func lookup(names []Name, key string) (string, bool) {
	n, ok := lo.Find(names, func(n Name) bool { return n.Key == key })
	return n.Display, ok
}

func mentioned(names []Name, text string) (string, bool) {
	joined := Normalize(text)
	if joined == "" {
		return "", false
	}
	n, ok := lo.Find(names, func(n Name) bool { return strings.Contains(joined, n.Key) })
	return n.Display, ok
}

// Directory answers account lookups against a store, caching the name mapping.
type Directory struct {
	store   storage.AccountStore
	mapping *cache.Loading[Mapping]
}

// New creates a Directory whose name mapping is cached for ttl. A zero ttl
// rebuilds the mapping on every lookup.
func New(store storage.AccountStore, ttl time.Duration) *Directory {
	d := &Directory{store: store}
	var c cache.Cache[Mapping] = noCache[Mapping]{}
	if ttl > 0 {
		c = cache.NewLRUCache[Mapping](1, ttl)
	}
	d.mapping = cache.NewLoading(c, func(ctx context.Context, _ string) (Mapping, error) {
		accounts, err := store.ListAccounts(ctx, storage.AccountFilter{})
		if err != nil {
			return Mapping{}, fmt.Errorf("list accounts: %w", err)
		}
		return buildMapping(accounts), nil
	})
	return d
}

// Invalidate drops the cached mapping, e.g. after accounts are added.
func (d *Directory) Invalidate() {
	d.mapping.Invalidate(mappingKey)
}

// Mapping returns the current name mapping.
func (d *Directory) Mapping(ctx context.Context) (Mapping, error) {
	return d.mapping.Get(ctx, mappingKey)
}

// FindCandidates resolves conditions to accounts. A non-empty IBAN takes
// precedence and matches exactly; otherwise bank and company are ANDed
// equality filters on the canonical names. Empty conditions match every account.
func (d *Directory) FindCandidates(ctx context.Context, c core.Conditions) ([]core.Candidate, error) {
	if iban := core.NormalizeIBAN(c.IBAN); iban != "" {
		a, err := d.store.GetAccount(ctx, iban)
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("get account: %w", err)
		}
		return []core.Candidate{a.Candidate()}, nil
	}

	accounts, err := d.store.ListAccounts(ctx, storage.AccountFilter{
		Bank:    strings.TrimSpace(c.Bank),
		Company: strings.TrimSpace(c.Company),
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return lo.Map(accounts, func(a core.Account, _ int) core.Candidate { return a.Candidate() }), nil
}

// Canonicalize replaces bank and company names with their canonical display
// form when the normalized name is known, and normalizes the IBAN.
func (d *Directory) Canonicalize(ctx context.Context, c core.Conditions) (core.Conditions, error) {
	m, err := d.Mapping(ctx)
	if err != nil {
		return c, err
	}
	c.IBAN = core.NormalizeIBAN(c.IBAN)
	if display, ok := lookup(m.Banks, Normalize(c.Bank)); ok {
		c.Bank = display
	}
	if display, ok := lookup(m.Companies, Normalize(c.Company)); ok {
		c.Company = display
	}
	return c, nil
}

// ResolveMentionedBank returns the first known bank whose normalized name
// occurs in the whitespace-stripped text.
func (d *Directory) ResolveMentionedBank(ctx context.Context, text string) (string, bool, error) {
	m, err := d.Mapping(ctx)
	if err != nil {
		return "", false, err
	}
	display, ok := mentioned(m.Banks, text)
	return display, ok, nil
}

// ResolveMentionedCompany is ResolveMentionedBank for company names.
func (d *Directory) ResolveMentionedCompany(ctx context.Context, text string) (string, bool, error) {
	m, err := d.Mapping(ctx)
	if err != nil {
		return "", false, err
	}
	display, ok := mentioned(m.Companies, text)
	return display, ok, nil
}

// Guess builds bank and company conditions from names mentioned in text.
func (d *Directory) Guess(ctx context.Context, text string) (core.Conditions, error) {
	bank, _, err := d.ResolveMentionedBank(ctx, text)
	if err != nil {
		return core.Conditions{}, err
	}
	company, _, err := d.ResolveMentionedCompany(ctx, text)
	if err != nil {
		return core.Conditions{}, err
	}
	return core.Conditions{Bank: bank, Company: company}, nil
}

// Accounts returns every account in insertion order.
func (d *Directory) Accounts(ctx context.Context) ([]core.Account, error) {
	return d.store.ListAccounts(ctx, storage.AccountFilter{})
}

// Account returns one account by IBAN.
func (d *Directory) Account(ctx context.Context, iban string) (core.Account, error) {
	return d.store.GetAccount(ctx, iban)
}

type noCache[T any] struct{}

func (noCache[T]) Get(string) (T, bool) {
	var zero T
	return zero, false
}
func (noCache[T]) Set(string, T) {}
func (noCache[T]) Delete(string) {}
func (noCache[T]) Purge()        {}
func (noCache[T]) Size() int     { return 0 }
