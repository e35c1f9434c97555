// Package memory is an in-process Store used for development and tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"finbot/internal/core"
	"finbot/internal/storage"
)

type Store struct {
	mu       sync.Mutex
	accounts []core.Account
	txs      []core.Transaction
	pending  map[string]storage.PendingRow
	nextID   int64
	now      func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New(accounts ...core.Account) *Store {
	s := &Store{
		pending: map[string]storage.PendingRow{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, a := range accounts {
		_ = s.AddAccount(context.Background(), a)
	}
	return s
}

// NewFromFile seeds the store from a YAML seed file. A missing file yields an
// empty store.
func NewFromFile(path string) (*Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	accounts, err := storage.LoadSeed(path)
	if err != nil {
		return nil, err
	}
	return New(accounts...), nil
}

// SetClock overrides the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) AddAccount(_ context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	a.IBAN = core.NormalizeIBAN(a.IBAN)
	a.Bank = strings.TrimSpace(a.Bank)
	a.Company = strings.TrimSpace(a.Company)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexOf(a.IBAN); ok {
		return fmt.Errorf("account %s already exists", a.IBAN)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.accounts = append(s.accounts, a)
	return nil
}

func (s *Store) ListAccounts(_ context.Context, f storage.AccountFilter) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return page(s.filterAccounts(f), f.Limit, f.Offset), nil
}

func (s *Store) CountAccounts(_ context.Context, f storage.AccountFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.filterAccounts(f)), nil
}

func (s *Store) filterAccounts(f storage.AccountFilter) []core.Account {
	return lo.Filter(s.accounts, func(a core.Account, _ int) bool {
		return (f.Bank == "" || a.Bank == f.Bank) && (f.Company == "" || a.Company == f.Company)
	})
}

func (s *Store) GetAccount(_ context.Context, iban string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.indexOf(core.NormalizeIBAN(iban))
	if !ok {
		return core.Account{}, core.ErrNotFound
	}
	return s.accounts[i], nil
}

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.Account = core.NormalizeIBAN(t.Account)

	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.indexOf(t.Account)
	if !ok {
		return core.Transaction{}, fmt.Errorf("account %s: %w", t.Account, core.ErrNotFound)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.nextID++
	t.ID = s.nextID
	s.txs = append(s.txs, t)
	s.accounts[i].Balance = s.accounts[i].Balance.Add(t.Amount.Decimal)
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, pos, ok := lo.FindIndexOf(s.txs, func(t core.Transaction) bool { return t.ID == id })
	if !ok {
		return core.ErrNotFound
	}
	s.txs = append(s.txs[:pos], s.txs[pos+1:]...)
	if i, ok := s.indexOf(t.Account); ok && t.Amount.Valid {
		s.accounts[i].Balance = s.accounts[i].Balance.Sub(t.Amount.Decimal)
	}
	return nil
}

func (s *Store) LastTransaction(_ context.Context, profileID string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		last  core.Transaction
		found bool
	)
	for _, t := range s.txs {
		if t.ProfileID != profileID {
			continue
		}
		if !found || !t.CreatedAt.Before(last.CreatedAt) {
			last, found = t, true
		}
	}
	if !found {
		return core.Transaction{}, core.ErrNotFound
	}
	return last, nil
}

func (s *Store) ListTransactions(_ context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.filterTransactions(f)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if f.Newest {
			a, b = b, a
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return page(out, f.Limit, f.Offset), nil
}

func (s *Store) CountTransactions(_ context.Context, f storage.TransactionFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.filterTransactions(f)), nil
}

func (s *Store) filterTransactions(f storage.TransactionFilter) []core.Transaction {
	account := core.NormalizeIBAN(f.Account)
	return lo.Filter(s.txs, func(t core.Transaction, _ int) bool {
		if account != "" && t.Account != account {
			return false
		}
		if !f.To.IsZero() && t.CreatedAt.After(f.To) {
			return false
		}
		return !t.CreatedAt.Before(f.From)
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		items = lo.Drop(items, offset)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// AppendRawTransaction stores t without validation or balance changes, the
// way rows written by other tools can show up.
func (s *Store) AppendRawTransaction(t core.Transaction) core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	s.txs = append(s.txs, t)
	return t
}

func (s *Store) ReplacePending(_ context.Context, row storage.PendingRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.now()
	}
	row.Payload = append([]byte(nil), row.Payload...)
	s.pending[row.ProfileID] = row
	return nil
}

func (s *Store) LatestPending(_ context.Context, profileID string) (storage.PendingRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.pending[profileID]
	if !ok {
		return storage.PendingRow{}, core.ErrNotFound
	}
	return row, nil
}

func (s *Store) DeletePending(_ context.Context, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, profileID)
	return nil
}

func (s *Store) indexOf(iban string) (int, bool) {
	_, i, ok := lo.FindIndexOf(s.accounts, func(a core.Account) bool { return a.IBAN == iban })
	return i, ok
}
