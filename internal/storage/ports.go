package storage

import (
	"context"
	"time"

	"finbot/internal/core"
)

// Ports implemented by the SQLite repository and the memory store.
type (
	// AccountFilter narrows ListAccounts by exact bank and company. Empty fields match everything.
	// Limit zero means no limit.
	AccountFilter struct {
		Bank    string
		Company string
		Limit   int
		Offset  int
	}

	// TransactionFilter selects transactions with CreatedAt in [From, To]. A zero To
	// leaves the window open ended and an empty Account matches every account.
	// Results are oldest first unless Newest is set; Limit zero means no limit.
	TransactionFilter struct {
		From    time.Time
		To      time.Time
		Account string
		Newest  bool
		Limit   int
		Offset  int
	}

	AccountStore interface {
		// ListAccounts returns accounts in insertion order.
		ListAccounts(ctx context.Context, f AccountFilter) ([]core.Account, error)
		// GetAccount returns core.ErrNotFound when the IBAN is unknown.
		GetAccount(ctx context.Context, iban string) (core.Account, error)
		AddAccount(ctx context.Context, a core.Account) error
		// CountAccounts ignores Limit and Offset.
		CountAccounts(ctx context.Context, f AccountFilter) (int, error)
	}

	TransactionStore interface {
		// InsertTransaction stores tx and applies its amount to the account balance atomically.
		InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		// DeleteTransaction removes tx and reverts its amount from the account balance atomically.
		DeleteTransaction(ctx context.Context, id int64) error
		// LastTransaction returns the most recent transaction of a profile or core.ErrNotFound.
		LastTransaction(ctx context.Context, profileID string) (core.Transaction, error)
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		// CountTransactions ignores Limit, Offset and Newest.
		CountTransactions(ctx context.Context, f TransactionFilter) (int, error)
	}

	// PendingRow is the persisted form of a pending action; the payload is opaque JSON.
	PendingRow struct {
		ProfileID  string
		ActionType string
		Payload    []byte
		CreatedAt  time.Time
	}

	PendingRepository interface {
		// ReplacePending deletes every row of the profile and inserts row.
		ReplacePending(ctx context.Context, row PendingRow) error
		// LatestPending returns the most recent row of the profile or core.ErrNotFound.
		LatestPending(ctx context.Context, profileID string) (PendingRow, error)
		// DeletePending removes every row of the profile; no rows is not an error.
		DeletePending(ctx context.Context, profileID string) error
	}

	Store interface {
		AccountStore
		TransactionStore
		PendingRepository
		Close() error
	}
)
